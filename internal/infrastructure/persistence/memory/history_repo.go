package memory

import (
	"context"

	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/domain/entity"
)

// HistoryRepository implements port.HistoryRepository in memory
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a history repository over db
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Create(ctx context.Context, entry *entity.HistoryEntry) error {
	return r.db.write(ctx, func(d *data) error {
		entry.ID = int64(len(d.history) + 1)
		stored := *entry
		d.history = append(d.history, &stored)
		return nil
	})
}

func (r *HistoryRepository) GetByRequestID(ctx context.Context, requestID string) ([]*entity.HistoryEntry, error) {
	var entries []*entity.HistoryEntry
	err := r.db.read(ctx, func(d *data) error {
		for _, h := range d.history {
			if h.RequestID == requestID {
				entry := *h
				entries = append(entries, &entry)
			}
		}
		return nil
	})
	return entries, err
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
