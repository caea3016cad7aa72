package mediation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/update-requests/internal/domain/workflow"
	"github.com/garyjia/update-requests/internal/orders"
)

func TestLifecycle_TransitionRejectsUnknownStatus(t *testing.T) {
	h := newHarness(t, orders.Rules{})
	h.seedOrder(t, "O-1", orders.StatusOrdered)
	req := h.insert(t, statusRequest("O-1", orders.StatusShipped))

	req.Status = workflow.State("Archived")
	var err error
	require.NotPanics(t, func() {
		_, err = h.lifecycle.Transition(h.ctx, req, workflow.TriggerSucceed, "tester", "")
	})
	require.Error(t, err)
	assert.Equal(t, workflow.KindInternal, workflow.KindOf(err))

	stored := h.request(t, req.ID)
	assert.Equal(t, workflow.StatePending, stored.Status)
}

func TestLifecycle_TransitionWritesHistory(t *testing.T) {
	h := newHarness(t, orders.Rules{})
	h.seedOrder(t, "O-1", orders.StatusOrdered)
	req := h.insert(t, statusRequest("O-1", orders.StatusShipped))

	evt, err := h.lifecycle.Transition(h.ctx, req, workflow.TriggerFail, "tester", "boom")
	require.NoError(t, err)
	require.NotNil(t, evt)
	assert.Equal(t, workflow.StateFailed, h.request(t, req.ID).Status)

	entries, err := h.history.GetByRequestID(h.ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "FAIL", entries[1].Action)
	assert.Equal(t, "boom", entries[1].Detail)
	assert.Equal(t, string(workflow.StatePending), entries[1].PreviousStatus)
}
