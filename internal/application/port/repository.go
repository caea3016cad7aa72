package port

import (
	"context"

	"github.com/garyjia/update-requests/internal/domain/entity"
)

// UpdateRequestRepository defines persistence operations for UpdateRequest
type UpdateRequestRepository interface {
	// Create inserts a new request. A second open request for the same target
	// fails with a PendingUpdateRequestError.
	Create(ctx context.Context, req *entity.UpdateRequest) error

	// GetByID retrieves a request, failing with a NotFoundError when absent
	GetByID(ctx context.Context, id string) (*entity.UpdateRequest, error)

	// Update writes every mutable column when the stored version equals req.Version,
	// then increments req.Version. A stale version fails with a ConflictError.
	Update(ctx context.Context, req *entity.UpdateRequest) error

	// HasOpenRequest reports whether a Pending or Pending Approval request exists for the target
	HasOpenRequest(ctx context.Context, targetType, targetID string) (bool, error)

	// ListSuccessful returns the Success requests of a target, most recently modified first
	ListSuccessful(ctx context.Context, targetType, targetID string) ([]*entity.UpdateRequest, error)
}

// HistoryRepository defines persistence operations for the status audit trail
type HistoryRepository interface {
	Create(ctx context.Context, entry *entity.HistoryEntry) error
	GetByRequestID(ctx context.Context, requestID string) ([]*entity.HistoryEntry, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
