package service

import (
	"context"
	"time"

	"github.com/garyjia/update-requests/internal/application/mediation"
	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/domain/entity"
	"github.com/garyjia/update-requests/internal/domain/event"
	domainwf "github.com/garyjia/update-requests/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateParams describes a proposed change
type CreateParams struct {
	TargetType string            `json:"target_type"`
	TargetID   string            `json:"target_id"`
	FieldName  string            `json:"field_name"`
	CustomCall string            `json:"custom_call"`
	ChangeKind entity.ChangeKind `json:"change_kind"`
	Payload    string            `json:"payload"`
	// Submit applies the request right after it is stored
	Submit bool `json:"submit"`
}

// UpdateRequestService exposes the update request actions
type UpdateRequestService interface {
	// Create validates and stores a request, and applies it when params.Submit is set
	Create(ctx context.Context, params CreateParams) (*mediation.Result, error)
	// Submit applies a Pending or Approved request. An Approved request left behind
	// when Approve stopped before its apply step is re-driven this way.
	Submit(ctx context.Context, id string) (*mediation.Result, error)
	// Approve records the approval party's consent and applies the request.
	// The Approved write and the apply commit separately.
	Approve(ctx context.Context, id string) (*mediation.Result, error)
	// Reject records the approval party's refusal
	Reject(ctx context.Context, id string) (*mediation.Result, error)
	// Revert undoes the latest Success request of a target
	Revert(ctx context.Context, id string) (*mediation.Result, error)
	// Get returns a request
	Get(ctx context.Context, id string) (*entity.UpdateRequest, error)
	// History returns the status changes of a request in order
	History(ctx context.Context, id string) ([]*entity.HistoryEntry, error)
}

type updateRequestServiceImpl struct {
	requests  port.UpdateRequestRepository
	history   port.HistoryRepository
	txManager port.TransactionManager
	validator *mediation.Validator
	engine    *mediation.Engine
	lifecycle *mediation.Lifecycle
	identity  port.IdentityProvider
	logger    Logger
}

// NewUpdateRequestService creates a new UpdateRequestService
func NewUpdateRequestService(
	requests port.UpdateRequestRepository,
	history port.HistoryRepository,
	txManager port.TransactionManager,
	validator *mediation.Validator,
	engine *mediation.Engine,
	lifecycle *mediation.Lifecycle,
	identity port.IdentityProvider,
	logger Logger,
) UpdateRequestService {
	return &updateRequestServiceImpl{
		requests:  requests,
		history:   history,
		txManager: txManager,
		validator: validator,
		engine:    engine,
		lifecycle: lifecycle,
		identity:  identity,
		logger:    logger,
	}
}

func (s *updateRequestServiceImpl) Create(ctx context.Context, params CreateParams) (*mediation.Result, error) {
	actor := s.identity.CurrentUser(ctx)
	req := &entity.UpdateRequest{
		TargetType: params.TargetType,
		TargetID:   params.TargetID,
		FieldName:  params.FieldName,
		CustomCall: params.CustomCall,
		ChangeKind: params.ChangeKind,
		Payload:    params.Payload,
		CreatedBy:  actor,
	}

	// Validation and insert share a transaction so the open-request check holds
	var evt *event.Event
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.validator.Validate(txCtx, req); err != nil {
			return err
		}
		if err := s.requests.Create(txCtx, req); err != nil {
			return err
		}
		var err error
		evt, err = s.lifecycle.Record(txCtx, req, actor)
		return err
	})
	if err != nil {
		s.logger.Error("Update request refused",
			"target_type", params.TargetType,
			"target_id", params.TargetID,
			"kind", domainwf.KindOf(err),
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Update request created",
		"request_id", req.ID,
		"target_type", req.TargetType,
		"target_id", req.TargetID,
		"actor", actor,
	)
	s.lifecycle.Publish(ctx, evt)

	if params.Submit {
		return s.Submit(ctx, req.ID)
	}
	return &mediation.Result{Request: req, Outcome: mediation.OutcomeCreated}, nil
}

func (s *updateRequestServiceImpl) Submit(ctx context.Context, id string) (*mediation.Result, error) {
	return s.engine.Apply(ctx, id)
}

func (s *updateRequestServiceImpl) Approve(ctx context.Context, id string) (*mediation.Result, error) {
	actor := s.identity.CurrentUser(ctx)

	var evt *event.Event
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.loadForDecision(txCtx, id, actor)
		if err != nil {
			return err
		}
		now := time.Now()
		req.ApprovedBy = actor
		req.ApprovedOn = &now
		evt, err = s.lifecycle.Transition(txCtx, req, domainwf.TriggerApprove, actor, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Update request approved", "request_id", id, "actor", actor)
	s.lifecycle.Publish(ctx, evt)
	return s.engine.Apply(ctx, id)
}

func (s *updateRequestServiceImpl) Reject(ctx context.Context, id string) (*mediation.Result, error) {
	actor := s.identity.CurrentUser(ctx)

	var (
		rejected *entity.UpdateRequest
		evt      *event.Event
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.loadForDecision(txCtx, id, actor)
		if err != nil {
			return err
		}
		now := time.Now()
		req.RejectedBy = actor
		req.RejectedOn = &now
		evt, err = s.lifecycle.Transition(txCtx, req, domainwf.TriggerReject, actor, "")
		rejected = req
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Update request rejected", "request_id", id, "actor", actor)
	s.lifecycle.Publish(ctx, evt)
	return &mediation.Result{Request: rejected, Outcome: mediation.OutcomeRejected}, nil
}

// loadForDecision loads a request awaiting approval and checks actor is its approval party
func (s *updateRequestServiceImpl) loadForDecision(ctx context.Context, id, actor string) (*entity.UpdateRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case req.IsPendingApproval():
	case req.IsPending():
		return nil, domainwf.NewValidationError("Update Request %s is not pending approval", id)
	default:
		return nil, domainwf.ErrAlreadyProcessed
	}
	if req.ApprovalParty != actor {
		return nil, domainwf.NewInvalidActorError(actor, req.ApprovalParty)
	}
	return req, nil
}

func (s *updateRequestServiceImpl) Revert(ctx context.Context, id string) (*mediation.Result, error) {
	return s.engine.Revert(ctx, id)
}

func (s *updateRequestServiceImpl) Get(ctx context.Context, id string) (*entity.UpdateRequest, error) {
	return s.requests.GetByID(ctx, id)
}

func (s *updateRequestServiceImpl) History(ctx context.Context, id string) ([]*entity.HistoryEntry, error) {
	if _, err := s.requests.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.history.GetByRequestID(ctx, id)
}
