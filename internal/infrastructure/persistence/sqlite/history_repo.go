package sqlite

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/domain/entity"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, entry *entity.HistoryEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	query := `
		INSERT INTO update_request_history (
			request_id, actor, previous_status, new_status,
			action, detail, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.executor(ctx).ExecContext(ctx, query,
		entry.RequestID,
		entry.Actor,
		entry.PreviousStatus,
		entry.NewStatus,
		entry.Action,
		entry.Detail,
		entry.Timestamp.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// GetByRequestID retrieves all history records for a request in insertion order
func (r *HistoryRepository) GetByRequestID(ctx context.Context, requestID string) ([]*entity.HistoryEntry, error) {
	query := `
		SELECT id, request_id, actor, previous_status, new_status,
			action, detail, timestamp
		FROM update_request_history
		WHERE request_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.executor(ctx).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to get history by request ID", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var entries []*entity.HistoryEntry
	for rows.Next() {
		var entry entity.HistoryEntry
		err := rows.Scan(
			&entry.ID,
			&entry.RequestID,
			&entry.Actor,
			&entry.PreviousStatus,
			&entry.NewStatus,
			&entry.Action,
			&entry.Detail,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
