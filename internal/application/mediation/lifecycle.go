package mediation

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/update-requests/internal/application/dispatcher"
	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/domain/entity"
	"github.com/garyjia/update-requests/internal/domain/event"
	domainwf "github.com/garyjia/update-requests/internal/domain/workflow"
)

var eventTypes = map[domainwf.State]event.Type{
	domainwf.StatePending:         event.TypeRequestCreated,
	domainwf.StatePendingApproval: event.TypeRequestPendingApproval,
	domainwf.StateApproved:        event.TypeRequestApproved,
	domainwf.StateRejected:        event.TypeRequestRejected,
	domainwf.StateSuccess:         event.TypeRequestSucceeded,
	domainwf.StateFailed:          event.TypeRequestFailed,
	domainwf.StateReverted:        event.TypeRequestReverted,
}

// Lifecycle moves update requests between statuses. Every move is checked by the
// state machine, written with a version check, recorded in history and announced
// once the surrounding transaction commits.
type Lifecycle struct {
	requests   port.UpdateRequestRepository
	history    port.HistoryRepository
	dispatcher dispatcher.Dispatcher
	logger     Logger
}

// NewLifecycle creates a Lifecycle. dispatcher may be nil.
func NewLifecycle(requests port.UpdateRequestRepository, history port.HistoryRepository, d dispatcher.Dispatcher, logger Logger) *Lifecycle {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Lifecycle{
		requests:   requests,
		history:    history,
		dispatcher: d,
		logger:     logger,
	}
}

// Record stores a newly created request's history entry and returns its event
func (l *Lifecycle) Record(ctx context.Context, req *entity.UpdateRequest, actor string) (*event.Event, error) {
	if err := l.writeHistory(ctx, req, actor, "", "CREATE", ""); err != nil {
		return nil, err
	}
	return l.newEvent(req, actor, "", "CREATE"), nil
}

// Transition fires trigger on req and persists the new status. The returned event
// must be published after the transaction commits.
func (l *Lifecycle) Transition(ctx context.Context, req *entity.UpdateRequest, trigger domainwf.Trigger, actor, detail string) (*event.Event, error) {
	if !req.Status.IsValid() {
		return nil, domainwf.NewError(domainwf.KindInternal, "update request %s has unknown status %q", req.ID, req.Status)
	}
	machine := domainwf.BuildUpdateRequestStateMachine(req.Status)
	previous := req.Status

	if err := machine.Fire(ctx, trigger); err != nil {
		return nil, fmt.Errorf("update request %s: %w", req.ID, err)
	}

	req.Status = machine.State()
	req.ModifiedAt = time.Now()
	if err := l.requests.Update(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to update request %s: %w", req.ID, err)
	}

	if err := l.writeHistory(ctx, req, actor, previous.String(), trigger.String(), detail); err != nil {
		return nil, err
	}

	return l.newEvent(req, actor, previous.String(), trigger.String()), nil
}

// Publish dispatches events without blocking the caller
func (l *Lifecycle) Publish(ctx context.Context, events ...*event.Event) {
	for _, evt := range events {
		if evt == nil {
			continue
		}
		l.logger.Info("Update request status changed",
			"request_id", evt.RequestID,
			"event_type", evt.Type,
			"target_type", evt.TargetType,
			"target_id", evt.TargetID,
		)
		if l.dispatcher != nil {
			l.dispatcher.DispatchAsync(context.WithoutCancel(ctx), evt)
		}
	}
}

func (l *Lifecycle) writeHistory(ctx context.Context, req *entity.UpdateRequest, actor, previous, action, detail string) error {
	entry := &entity.HistoryEntry{
		RequestID:      req.ID,
		Actor:          actor,
		PreviousStatus: previous,
		NewStatus:      req.Status.String(),
		Action:         action,
		Detail:         detail,
		Timestamp:      time.Now(),
	}
	if err := l.history.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to create history record: %w", err)
	}
	return nil
}

func (l *Lifecycle) newEvent(req *entity.UpdateRequest, actor, previous, action string) *event.Event {
	return event.NewEvent(eventTypes[req.Status], req.ID, req.TargetType, req.TargetID, map[string]interface{}{
		"previous_status": previous,
		"new_status":      req.Status.String(),
		"trigger":         action,
		"error":           req.Error,
	}).WithActor(actor)
}
