package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/domain/entity"
	"github.com/garyjia/update-requests/internal/domain/workflow"
)

const requestColumns = `
	id, status, target_type, target_id, field_name, custom_call, change_kind,
	payload, party_type, approval_party, approved_by, approved_on,
	rejected_by, rejected_on, error, revert_items, created_by,
	created_at, modified_at, version
`

// UpdateRequestRepository implements port.UpdateRequestRepository
type UpdateRequestRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUpdateRequestRepository creates a new update request repository
func NewUpdateRequestRepository(db *DB, logger *zap.Logger) *UpdateRequestRepository {
	return &UpdateRequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new update request. The partial unique index on open
// requests turns a second open request for the same target into
// ErrPendingUpdateRequest.
func (r *UpdateRequestRepository) Create(ctx context.Context, req *entity.UpdateRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.ModifiedAt = now

	revertItems, err := encodeRevertItems(req.RevertItems)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO update_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.executor(ctx).ExecContext(ctx, query,
		req.ID,
		req.Status,
		req.TargetType,
		req.TargetID,
		req.FieldName,
		req.CustomCall,
		req.ChangeKind,
		req.Payload,
		req.PartyType,
		req.ApprovalParty,
		req.ApprovedBy,
		nullTime(req.ApprovedOn),
		req.RejectedBy,
		nullTime(req.RejectedOn),
		req.Error,
		revertItems,
		req.CreatedBy,
		req.CreatedAt.UTC(),
		req.ModifiedAt,
		1,
	)
	if isUniqueViolation(err) {
		if r.exists(ctx, req.ID) {
			return workflow.NewError(workflow.KindConflict, "Update Request %s already exists", req.ID)
		}
		return workflow.ErrPendingUpdateRequest
	}
	if err != nil {
		r.logger.Error("Failed to create update request", zap.Error(err))
		return fmt.Errorf("failed to create update request: %w", err)
	}

	req.Version = 1
	return nil
}

// GetByID retrieves an update request by ID
func (r *UpdateRequestRepository) GetByID(ctx context.Context, id string) (*entity.UpdateRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM update_requests WHERE id = ?`

	req, err := scanRequest(r.db.executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workflow.NewNotFoundError("Update Request", id)
	}
	if err != nil {
		r.logger.Error("Failed to get update request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get update request: %w", err)
	}
	return req, nil
}

// Update writes req if its version still matches the stored row
func (r *UpdateRequestRepository) Update(ctx context.Context, req *entity.UpdateRequest) error {
	revertItems, err := encodeRevertItems(req.RevertItems)
	if err != nil {
		return err
	}
	modifiedAt := req.ModifiedAt
	if modifiedAt.IsZero() {
		modifiedAt = time.Now()
	}

	query := `
		UPDATE update_requests SET
			status = ?, target_type = ?, target_id = ?, field_name = ?,
			custom_call = ?, change_kind = ?, payload = ?, party_type = ?,
			approval_party = ?, approved_by = ?, approved_on = ?,
			rejected_by = ?, rejected_on = ?, error = ?, revert_items = ?,
			modified_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`
	result, err := r.db.executor(ctx).ExecContext(ctx, query,
		req.Status,
		req.TargetType,
		req.TargetID,
		req.FieldName,
		req.CustomCall,
		req.ChangeKind,
		req.Payload,
		req.PartyType,
		req.ApprovalParty,
		req.ApprovedBy,
		nullTime(req.ApprovedOn),
		req.RejectedBy,
		nullTime(req.RejectedOn),
		req.Error,
		revertItems,
		modifiedAt.UTC(),
		req.ID,
		req.Version,
	)
	if isUniqueViolation(err) {
		return workflow.ErrPendingUpdateRequest
	}
	if err != nil {
		r.logger.Error("Failed to update update request", zap.String("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update update request: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		if !r.exists(ctx, req.ID) {
			return workflow.NewNotFoundError("Update Request", req.ID)
		}
		return workflow.ErrConflict
	}

	req.Version++
	req.ModifiedAt = modifiedAt
	return nil
}

func (r *UpdateRequestRepository) HasOpenRequest(ctx context.Context, targetType, targetID string) (bool, error) {
	query := `
		SELECT COUNT(1) FROM update_requests
		WHERE target_type = ? AND target_id = ? AND status IN (?, ?)
	`
	var n int
	err := r.db.executor(ctx).QueryRowContext(ctx, query,
		targetType, targetID, workflow.StatePending, workflow.StatePendingApproval,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check open requests: %w", err)
	}
	return n > 0, nil
}

// ListSuccessful returns the target's successful requests, latest write first
func (r *UpdateRequestRepository) ListSuccessful(ctx context.Context, targetType, targetID string) ([]*entity.UpdateRequest, error) {
	query := `
		SELECT ` + requestColumns + ` FROM update_requests
		WHERE target_type = ? AND target_id = ? AND status = ?
		ORDER BY modified_at DESC, rowid DESC
	`

	rows, err := r.db.executor(ctx).QueryContext(ctx, query, targetType, targetID, workflow.StateSuccess)
	if err != nil {
		r.logger.Error("Failed to list successful requests",
			zap.String("target_type", targetType),
			zap.String("target_id", targetID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list update requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.UpdateRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan update request: %w", err)
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

func (r *UpdateRequestRepository) exists(ctx context.Context, id string) bool {
	var n int
	query := `SELECT COUNT(1) FROM update_requests WHERE id = ?`
	if err := r.db.executor(ctx).QueryRowContext(ctx, query, id).Scan(&n); err != nil {
		return false
	}
	return n > 0
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row scanner) (*entity.UpdateRequest, error) {
	var req entity.UpdateRequest
	var approvedOn, rejectedOn sql.NullTime
	var revertItems string

	err := row.Scan(
		&req.ID,
		&req.Status,
		&req.TargetType,
		&req.TargetID,
		&req.FieldName,
		&req.CustomCall,
		&req.ChangeKind,
		&req.Payload,
		&req.PartyType,
		&req.ApprovalParty,
		&req.ApprovedBy,
		&approvedOn,
		&req.RejectedBy,
		&rejectedOn,
		&req.Error,
		&revertItems,
		&req.CreatedBy,
		&req.CreatedAt,
		&req.ModifiedAt,
		&req.Version,
	)
	if err != nil {
		return nil, err
	}

	if approvedOn.Valid {
		req.ApprovedOn = &approvedOn.Time
	}
	if rejectedOn.Valid {
		req.RejectedOn = &rejectedOn.Time
	}
	if err := json.Unmarshal([]byte(revertItems), &req.RevertItems); err != nil {
		return nil, fmt.Errorf("failed to decode revert items of %s: %w", req.ID, err)
	}
	if len(req.RevertItems) == 0 {
		req.RevertItems = nil
	}

	return &req, nil
}

func encodeRevertItems(items []entity.RevertItem) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode revert items: %w", err)
	}
	return string(data), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// Verify interface compliance
var _ port.UpdateRequestRepository = (*UpdateRequestRepository)(nil)
