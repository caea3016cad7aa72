// Package mediation applies and reverts update requests against mediated documents.
package mediation

import (
	"context"

	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/entity"
)

// Handler performs the change an update request describes and returns the revert
// items undoing it. A handler that defers to an approval party may return none.
type Handler func(ctx context.Context, call *Call) ([]entity.RevertItem, error)

// Handlers maps handler names to handlers. Field handlers are keyed "_<field>";
// custom calls are keyed by their exact name.
type Handlers map[string]Handler

// Mediated is a document whose changes are routed through update requests
type Mediated interface {
	document.Document
	UpdateHandlers() Handlers
}

// Reverter is implemented by documents that replay their own revert items
// instead of using the generic replay
type Reverter interface {
	RevertUpdateRequest(ctx context.Context, call *RevertCall) error
}

// CompletionHook is implemented by documents that react once an update request
// against them settles. It runs inside the same transaction as the change.
type CompletionHook interface {
	OnUpdateRequestComplete(ctx context.Context, req *entity.UpdateRequest, outcome Outcome) error
}

// Outcome tells how an update request action ended
type Outcome string

const (
	// OutcomeCreated: the request was stored as Pending
	OutcomeCreated Outcome = "created"
	// OutcomeApplied: the change was made and the request is Success
	OutcomeApplied Outcome = "applied"
	// OutcomeDeferred: the handler gated the request behind an approval party
	OutcomeDeferred Outcome = "deferred"
	// OutcomeRejected: the approval party turned the request down
	OutcomeRejected Outcome = "rejected"
	// OutcomeReverted: the revert items were replayed and the request is Reverted
	OutcomeReverted Outcome = "reverted"
	// OutcomeFailed: the request is Failed and holds the error
	OutcomeFailed Outcome = "failed"
	// OutcomeUnchanged: nothing to do, the request kept its status
	OutcomeUnchanged Outcome = "unchanged"
)

// FieldHandlerName returns the conventional handler name of a field
func FieldHandlerName(field string) string {
	return "_" + field
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
