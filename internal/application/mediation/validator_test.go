package mediation_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/entity"
	"github.com/garyjia/update-requests/internal/domain/workflow"
	"github.com/garyjia/update-requests/internal/orders"
)

type plain struct {
	document.Base
}

func (p *plain) DocType() string { return "Plain" }

func TestValidate_Refusals(t *testing.T) {
	h := newHarness(t, orders.Rules{})
	h.seedOrder(t, "O-1", orders.StatusOrdered, orders.OrderItem{Name: "row-1", Qty: 1})
	require.NoError(t, h.catalog.Register(document.Meta{Name: "Plain", New: func() document.Document { return &plain{} }}))
	require.NoError(t, h.store.Create(h.ctx, &plain{Base: document.Base{ID: "P-1"}}, true))

	tests := []struct {
		name string
		req  *entity.UpdateRequest
		want error
	}{
		{
			name: "missing target type",
			req:  &entity.UpdateRequest{TargetID: "O-1", FieldName: "status", ChangeKind: entity.ChangeKindFieldUpdate},
			want: workflow.ErrValidation,
		},
		{
			name: "missing target id",
			req:  &entity.UpdateRequest{TargetType: orders.TypeOrder, FieldName: "status", ChangeKind: entity.ChangeKindFieldUpdate},
			want: workflow.ErrValidation,
		},
		{
			name: "unknown change kind",
			req:  &entity.UpdateRequest{TargetType: orders.TypeOrder, TargetID: "O-1", FieldName: "status", ChangeKind: "Rename"},
			want: workflow.ErrValidation,
		},
		{
			name: "unknown type",
			req:  &entity.UpdateRequest{TargetType: "Invoice", TargetID: "I-1", FieldName: "status", ChangeKind: entity.ChangeKindFieldUpdate},
			want: workflow.ErrNotFound,
		},
		{
			name: "child table target",
			req:  &entity.UpdateRequest{TargetType: orders.TypeOrderItem, TargetID: "row-1", FieldName: "qty", ChangeKind: entity.ChangeKindFieldUpdate},
			want: workflow.ErrValidation,
		},
		{
			name: "missing target",
			req:  &entity.UpdateRequest{TargetType: orders.TypeOrder, TargetID: "O-404", FieldName: "status", ChangeKind: entity.ChangeKindFieldUpdate},
			want: workflow.ErrNotFound,
		},
		{
			name: "target not mediated",
			req:  &entity.UpdateRequest{TargetType: "Plain", TargetID: "P-1", FieldName: "x", ChangeKind: entity.ChangeKindFieldUpdate},
			want: workflow.ErrValidation,
		},
		{
			name: "neither field nor custom call",
			req:  &entity.UpdateRequest{TargetType: orders.TypeOrder, TargetID: "O-1", ChangeKind: entity.ChangeKindFieldUpdate},
			want: workflow.ErrValidation,
		},
		{
			name: "both field and custom call",
			req:  &entity.UpdateRequest{TargetType: orders.TypeOrder, TargetID: "O-1", FieldName: "status", CustomCall: "create_shipment", ChangeKind: entity.ChangeKindFieldUpdate},
			want: workflow.ErrValidation,
		},
		{
			name: "field without change kind",
			req:  &entity.UpdateRequest{TargetType: orders.TypeOrder, TargetID: "O-1", FieldName: "status"},
			want: workflow.ErrValidation,
		},
		{
			name: "child row payload not an object",
			req:  &entity.UpdateRequest{TargetType: orders.TypeOrder, TargetID: "O-1", FieldName: "items", ChangeKind: entity.ChangeKindAddChildRow, Payload: `[1]`},
			want: workflow.ErrMissingOrInvalidData,
		},
		{
			name: "child row payload missing",
			req:  &entity.UpdateRequest{TargetType: orders.TypeOrder, TargetID: "O-1", FieldName: "items", ChangeKind: entity.ChangeKindDeleteChildRow},
			want: workflow.ErrMissingOrInvalidData,
		},
		{
			name: "custom call with child row payload not an object",
			req:  &entity.UpdateRequest{TargetType: orders.TypeOrder, TargetID: "O-1", CustomCall: "create_shipment", ChangeKind: entity.ChangeKindAddChildRow, Payload: `[1,2]`},
			want: workflow.ErrMissingOrInvalidData,
		},
		{
			name: "custom call with child row payload missing",
			req:  &entity.UpdateRequest{TargetType: orders.TypeOrder, TargetID: "O-1", CustomCall: "create_shipment", ChangeKind: entity.ChangeKindUpdateChildRow},
			want: workflow.ErrMissingOrInvalidData,
		},
		{
			name: "child row without name",
			req:  &entity.UpdateRequest{TargetType: orders.TypeOrder, TargetID: "O-1", FieldName: "items", ChangeKind: entity.ChangeKindDeleteChildRow, Payload: `{"qty":1}`},
			want: workflow.ErrMissingOrInvalidData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.validator.Validate(h.ctx, tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestValidate_NormalizesPrefilledRecord(t *testing.T) {
	h := newHarness(t, orders.Rules{})
	h.seedOrder(t, "O-1", orders.StatusOrdered)

	now := time.Now()
	req := statusRequest("O-1", orders.StatusShipped)
	req.Status = workflow.StateSuccess
	req.ApprovalParty = "me"
	req.ApprovedBy = "me"
	req.ApprovedOn = &now
	req.Error = "stale"
	req.RevertItems = []entity.RevertItem{{ChangeType: entity.ChangeTypeUpdate}}

	require.NoError(t, h.validator.Validate(h.ctx, req))

	assert.Equal(t, workflow.StatePending, req.Status)
	assert.Empty(t, req.ApprovalParty)
	assert.Empty(t, req.ApprovedBy)
	assert.Nil(t, req.ApprovedOn)
	assert.Empty(t, req.Error)
	assert.Empty(t, req.RevertItems)
}

func TestValidate_AddChildRowNeedsNoExistingRow(t *testing.T) {
	h := newHarness(t, orders.Rules{})
	h.seedOrder(t, "O-1", orders.StatusOrdered)

	req := &entity.UpdateRequest{
		TargetType: orders.TypeOrder,
		TargetID:   "O-1",
		FieldName:  "items",
		ChangeKind: entity.ChangeKindAddChildRow,
		Payload:    `{"name":"row-1","item_code":"SKU","qty":1}`,
	}
	assert.NoError(t, h.validator.Validate(h.ctx, req))
}
