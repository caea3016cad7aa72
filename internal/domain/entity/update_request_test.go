package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/update-requests/internal/domain/workflow"
)

func TestUpdateRequest_Normalize(t *testing.T) {
	now := time.Now()
	req := &UpdateRequest{
		Status:        workflow.StateSuccess,
		TargetType:    "Order",
		TargetID:      "O-1",
		FieldName:     "status",
		Error:         "boom",
		ApprovalParty: "manager",
		ApprovedBy:    "manager",
		ApprovedOn:    &now,
		RejectedBy:    "someone",
		RejectedOn:    &now,
		RevertItems:   []RevertItem{{TargetType: "Order", TargetID: "O-1", ChangeType: ChangeTypeUpdate}},
		Version:       4,
	}

	req.Normalize()

	assert.Equal(t, workflow.StatePending, req.Status)
	assert.Empty(t, req.Error)
	assert.Empty(t, req.ApprovalParty)
	assert.Empty(t, req.ApprovedBy)
	assert.Nil(t, req.ApprovedOn)
	assert.Empty(t, req.RejectedBy)
	assert.Nil(t, req.RejectedOn)
	assert.Empty(t, req.RevertItems)
	assert.Zero(t, req.Version)
	// caller-owned fields survive
	assert.Equal(t, "O-1", req.TargetID)
	assert.Equal(t, "status", req.FieldName)
}

func TestUpdateRequest_Clone(t *testing.T) {
	now := time.Now()
	req := &UpdateRequest{
		ID:          "r1",
		ApprovedOn:  &now,
		RevertItems: []RevertItem{{Snapshot: json.RawMessage(`{"status":"Ordered"}`)}},
	}

	c := req.Clone()
	c.RevertItems[0].Snapshot[2] = 'X'
	*c.ApprovedOn = now.Add(time.Hour)

	require.Len(t, req.RevertItems, 1)
	assert.JSONEq(t, `{"status":"Ordered"}`, string(req.RevertItems[0].Snapshot))
	assert.Equal(t, now, *req.ApprovedOn)
}

func TestChangeKind_Predicates(t *testing.T) {
	assert.True(t, ChangeKindAddChildRow.IsChildRow())
	assert.False(t, ChangeKindAddChildRow.RequiresExistingRow())
	assert.True(t, ChangeKindDeleteChildRow.RequiresExistingRow())
	assert.False(t, ChangeKindFieldUpdate.IsChildRow())
	assert.False(t, ChangeKindCreate.IsChildRow())
}

func TestUpdateRequest_Predicates(t *testing.T) {
	req := &UpdateRequest{Status: workflow.StatePendingApproval}
	assert.True(t, req.IsPendingApproval())
	assert.True(t, req.IsOpen())
	assert.False(t, req.IsPending())
	assert.False(t, req.IsApproved())

	req.Status = workflow.StateApproved
	assert.True(t, req.IsApproved())
	assert.False(t, req.IsOpen())
}
