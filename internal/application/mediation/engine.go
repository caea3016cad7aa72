package mediation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/entity"
	"github.com/garyjia/update-requests/internal/domain/event"
	domainwf "github.com/garyjia/update-requests/internal/domain/workflow"
)

// Engine applies and reverts update requests
type Engine struct {
	store     port.DocumentStore
	requests  port.UpdateRequestRepository
	txManager port.TransactionManager
	codec     port.PayloadCodec
	registry  *Registry
	lifecycle *Lifecycle
	identity  port.IdentityProvider
	logger    Logger
}

// EngineOption configures the engine
type EngineOption func(*Engine)

// WithIdentity sets the provider naming the actor recorded in history
func WithIdentity(identity port.IdentityProvider) EngineOption {
	return func(e *Engine) {
		e.identity = identity
	}
}

// WithLogger sets a logger for the engine
func WithLogger(logger Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

type systemIdentity struct{}

func (systemIdentity) CurrentUser(context.Context) string { return "system" }

// NewEngine creates a new engine
func NewEngine(
	store port.DocumentStore,
	requests port.UpdateRequestRepository,
	txManager port.TransactionManager,
	codec port.PayloadCodec,
	registry *Registry,
	lifecycle *Lifecycle,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		store:     store,
		requests:  requests,
		txManager: txManager,
		codec:     codec,
		registry:  registry,
		lifecycle: lifecycle,
		identity:  systemIdentity{},
		logger:    nopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs the handler of a Pending or Approved request.
//
// A request in any other status is refused with a PendingApprovalError or an
// AlreadyProcessedError and nothing changes. Otherwise the request settles:
// Success, Pending Approval when the handler defers, or Failed with the cause
// recorded in its error field and returned in Result.Err. Handler changes are
// rolled back when the request fails.
//
// Apply opens its own transactions and must not run inside another one.
func (e *Engine) Apply(ctx context.Context, requestID string) (*Result, error) {
	actor := e.identity.CurrentUser(ctx)

	var (
		result *Result
		evt    *event.Event
	)
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.requests.GetByID(txCtx, requestID)
		if err != nil {
			return &refusal{err: err}
		}
		if err := checkApplicable(req); err != nil {
			return &refusal{err: err}
		}

		result, evt, err = e.apply(txCtx, req, actor)
		return err
	})

	var ref *refusal
	if errors.As(err, &ref) {
		return nil, ref.err
	}
	if err != nil {
		return e.fail(ctx, requestID, actor, err)
	}

	e.logger.Info("Update request applied",
		"request_id", requestID,
		"outcome", result.Outcome,
		"status", result.Request.Status,
	)
	e.lifecycle.Publish(ctx, evt)
	return result, nil
}

func (e *Engine) apply(ctx context.Context, req *entity.UpdateRequest, actor string) (*Result, *event.Event, error) {
	var target document.Document
	if !req.IsCreate() {
		var err error
		target, err = e.store.Load(ctx, req.TargetType, req.TargetID)
		if err != nil {
			return nil, nil, err
		}
	}

	handler, err := e.registry.Resolve(req, target)
	if err != nil {
		return nil, nil, err
	}

	payload, err := e.parsePayload(req)
	if err != nil {
		return nil, nil, err
	}

	if err := checkChildRowStillExists(req, target, payload); err != nil {
		return nil, nil, err
	}

	call, err := newCall(req, target, payload, NewDocuments(e.store))
	if err != nil {
		return nil, nil, err
	}

	items, err := handler(ctx, call)
	if err != nil {
		return nil, nil, err
	}

	outcome, trigger := OutcomeDeferred, domainwf.TriggerDefer
	if !call.Deferred() {
		if len(items) == 0 {
			return nil, nil, domainwf.ErrMissingRevertData
		}
		if err := appendRevertItems(req, items); err != nil {
			return nil, nil, err
		}
		outcome, trigger = OutcomeApplied, domainwf.TriggerSucceed
	}

	if target != nil {
		if err := e.store.Save(ctx, target, true); err != nil {
			return nil, nil, fmt.Errorf("failed to save %s %s: %w", target.DocType(), target.DocID(), err)
		}
		if hook, ok := target.(CompletionHook); ok {
			if err := hook.OnUpdateRequestComplete(ctx, req, outcome); err != nil {
				return nil, nil, err
			}
		}
	}

	evt, err := e.lifecycle.Transition(ctx, req, trigger, actor, "")
	if err != nil {
		return nil, nil, err
	}
	return &Result{Request: req, Outcome: outcome}, evt, nil
}

// fail records cause on the request and moves it to Failed
func (e *Engine) fail(ctx context.Context, requestID, actor string, cause error) (*Result, error) {
	var (
		failed *entity.UpdateRequest
		evt    *event.Event
	)
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.requests.GetByID(txCtx, requestID)
		if err != nil {
			return err
		}
		if !req.Status.IsApplicable() {
			// settled concurrently
			return &refusal{err: cause}
		}

		req.Error = domainwf.Describe(cause)
		evt, err = e.lifecycle.Transition(txCtx, req, domainwf.TriggerFail, actor, req.Error)
		failed = req
		return err
	})

	var ref *refusal
	if errors.As(err, &ref) {
		return nil, ref.err
	}
	if err != nil {
		e.logger.Error("Failed to record update request failure",
			"request_id", requestID,
			"cause", cause,
			"error", err,
		)
		return nil, fmt.Errorf("failed to record failure of update request %s: %w", requestID, err)
	}

	e.logger.Error("Update request failed",
		"request_id", requestID,
		"kind", domainwf.KindOf(cause),
		"error", cause,
	)
	e.lifecycle.Publish(ctx, evt)
	return &Result{Request: failed, Outcome: OutcomeFailed, Err: cause}, nil
}

func (e *Engine) parsePayload(req *entity.UpdateRequest) (interface{}, error) {
	if req.Payload == "" {
		return nil, nil
	}
	return e.codec.Parse(req.Payload)
}

func checkApplicable(req *entity.UpdateRequest) error {
	switch {
	case req.Status.IsApplicable():
		return nil
	case req.IsPendingApproval():
		return domainwf.ErrPendingApproval
	default:
		return domainwf.ErrAlreadyProcessed
	}
}

// checkChildRowStillExists repeats the creation-time row check, since an approved
// request may be applied long after it was validated
func checkChildRowStillExists(req *entity.UpdateRequest, target document.Document, payload interface{}) error {
	if target == nil || req.FieldName == "" || !req.ChangeKind.RequiresExistingRow() {
		return nil
	}
	name, ok := childRowName(payload)
	if !ok {
		return domainwf.NewError(domainwf.KindMissingOrInvalidData, "%s: payload has no row name", domainwf.ErrMissingOrInvalidData.Message)
	}
	body, err := json.Marshal(target)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", req.TargetType, req.TargetID, err)
	}
	if !childRowExists(body, req.FieldName, name) {
		return domainwf.NewError(domainwf.KindMissingOrInvalidData, "%s: %s has no row %s", domainwf.ErrMissingOrInvalidData.Message, req.FieldName, name)
	}
	return nil
}

func appendRevertItems(req *entity.UpdateRequest, items []entity.RevertItem) error {
	if len(req.RevertItems) > 0 {
		return fmt.Errorf("update request %s already holds revert data", req.ID)
	}
	for i, item := range items {
		if item.TargetType == "" {
			item.TargetType = req.TargetType
		}
		if item.TargetID == "" {
			item.TargetID = req.TargetID
		}
		if !item.ChangeType.IsValid() {
			return domainwf.NewError(domainwf.KindMissingRevertData, "%s: item %d has change type %q", domainwf.ErrMissingRevertData.Message, i+1, item.ChangeType)
		}
		item.Seq = i + 1
		req.RevertItems = append(req.RevertItems, item)

		if req.TargetID == "" && item.ChangeType == entity.ChangeTypeCreate && item.TargetType == req.TargetType {
			req.TargetID = item.TargetID
		}
	}
	return nil
}
