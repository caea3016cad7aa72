package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/domain/entity"
	"github.com/garyjia/update-requests/internal/domain/workflow"
)

// UpdateRequestRepository implements port.UpdateRequestRepository in memory
type UpdateRequestRepository struct {
	db *DB
}

// NewUpdateRequestRepository creates a request repository over db
func NewUpdateRequestRepository(db *DB) *UpdateRequestRepository {
	return &UpdateRequestRepository{db: db}
}

func (r *UpdateRequestRepository) Create(ctx context.Context, req *entity.UpdateRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.ModifiedAt = now
	req.Version = 1

	return r.db.write(ctx, func(d *data) error {
		if _, exists := d.requests[req.ID]; exists {
			return workflow.NewError(workflow.KindConflict, "Update Request %s already exists", req.ID)
		}
		if conflictsWithOpen(d, req) {
			return workflow.ErrPendingUpdateRequest
		}
		d.requests[req.ID] = storedRequest{seq: d.nextSeq(), req: req.Clone()}
		return nil
	})
}

func (r *UpdateRequestRepository) GetByID(ctx context.Context, id string) (*entity.UpdateRequest, error) {
	var found *entity.UpdateRequest
	err := r.db.read(ctx, func(d *data) error {
		stored, ok := d.requests[id]
		if !ok {
			return workflow.NewNotFoundError("Update Request", id)
		}
		found = stored.req.Clone()
		return nil
	})
	return found, err
}

func (r *UpdateRequestRepository) Update(ctx context.Context, req *entity.UpdateRequest) error {
	return r.db.write(ctx, func(d *data) error {
		stored, ok := d.requests[req.ID]
		if !ok {
			return workflow.NewNotFoundError("Update Request", req.ID)
		}
		if stored.req.Version != req.Version {
			return workflow.ErrConflict
		}
		if conflictsWithOpen(d, req) {
			return workflow.ErrPendingUpdateRequest
		}

		req.Version++
		if req.ModifiedAt.IsZero() {
			req.ModifiedAt = time.Now()
		}
		d.requests[req.ID] = storedRequest{seq: d.nextSeq(), req: req.Clone()}
		return nil
	})
}

func (r *UpdateRequestRepository) HasOpenRequest(ctx context.Context, targetType, targetID string) (bool, error) {
	var open bool
	err := r.db.read(ctx, func(d *data) error {
		for _, stored := range d.requests {
			if stored.req.TargetType == targetType && stored.req.TargetID == targetID && stored.req.IsOpen() {
				open = true
				return nil
			}
		}
		return nil
	})
	return open, err
}

func (r *UpdateRequestRepository) ListSuccessful(ctx context.Context, targetType, targetID string) ([]*entity.UpdateRequest, error) {
	return r.list(ctx, targetType, targetID, func(req *entity.UpdateRequest) bool {
		return req.Status == workflow.StateSuccess
	})
}

// list returns matching requests ordered by modification time, latest write first
func (r *UpdateRequestRepository) list(ctx context.Context, targetType, targetID string, keep func(*entity.UpdateRequest) bool) ([]*entity.UpdateRequest, error) {
	var matched []storedRequest
	err := r.db.read(ctx, func(d *data) error {
		for _, stored := range d.requests {
			if stored.req.TargetType == targetType && stored.req.TargetID == targetID && keep(stored.req) {
				matched = append(matched, storedRequest{seq: stored.seq, req: stored.req.Clone()})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.req.ModifiedAt.Equal(b.req.ModifiedAt) {
			return a.req.ModifiedAt.After(b.req.ModifiedAt)
		}
		return a.seq > b.seq
	})

	result := make([]*entity.UpdateRequest, len(matched))
	for i, stored := range matched {
		result[i] = stored.req
	}
	return result, nil
}

// conflictsWithOpen mirrors the one-open-request-per-target constraint
func conflictsWithOpen(d *data, req *entity.UpdateRequest) bool {
	if req.TargetID == "" || !req.IsOpen() {
		return false
	}
	for id, stored := range d.requests {
		if id == req.ID {
			continue
		}
		if stored.req.TargetType == req.TargetType && stored.req.TargetID == req.TargetID && stored.req.IsOpen() {
			return true
		}
	}
	return false
}

// Verify interface compliance
var _ port.UpdateRequestRepository = (*UpdateRequestRepository)(nil)
