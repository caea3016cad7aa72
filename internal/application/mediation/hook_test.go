package mediation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/update-requests/internal/application/mediation"
	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/entity"
	"github.com/garyjia/update-requests/internal/orders"
)

type hookRecord struct {
	requestID string
	outcome   mediation.Outcome
}

// note is a mediated document with an unqualified custom call and a completion hook
type note struct {
	document.Base
	Text string `json:"text"`

	calls *[]hookRecord
}

func (n *note) DocType() string { return "Note" }

func (n *note) UpdateHandlers() mediation.Handlers {
	return mediation.Handlers{
		"shout": func(ctx context.Context, call *mediation.Call) ([]entity.RevertItem, error) {
			n.Text += "!"
			return call.StandardRevertData()
		},
	}
}

func (n *note) OnUpdateRequestComplete(ctx context.Context, req *entity.UpdateRequest, outcome mediation.Outcome) error {
	*n.calls = append(*n.calls, hookRecord{requestID: req.ID, outcome: outcome})
	return nil
}

func TestCompletionHook_ReceivesOutcome(t *testing.T) {
	h := newHarness(t, orders.Rules{})
	var calls []hookRecord
	require.NoError(t, h.catalog.Register(document.Meta{
		Name: "Note",
		New:  func() document.Document { return &note{calls: &calls} },
	}))
	require.NoError(t, h.store.Create(h.ctx, &note{Base: document.Base{ID: "N-1"}, Text: "hi"}, true))

	req := &entity.UpdateRequest{TargetType: "Note", TargetID: "N-1", CustomCall: "shout"}
	result := h.applied(t, req)
	require.Equal(t, mediation.OutcomeApplied, result.Outcome, h.request(t, req.ID).Error)

	doc, err := h.store.Load(h.ctx, "Note", "N-1")
	require.NoError(t, err)
	assert.Equal(t, "hi!", doc.(*note).Text)

	_, err = h.engine.Revert(h.ctx, req.ID)
	require.NoError(t, err)

	doc, err = h.store.Load(h.ctx, "Note", "N-1")
	require.NoError(t, err)
	assert.Equal(t, "hi", doc.(*note).Text)

	assert.Equal(t, []hookRecord{
		{requestID: req.ID, outcome: mediation.OutcomeApplied},
		{requestID: req.ID, outcome: mediation.OutcomeReverted},
	}, calls)
}
