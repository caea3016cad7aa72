package entity

import (
	"encoding/json"
	"time"

	"github.com/garyjia/update-requests/internal/domain/workflow"
)

// ChangeKind describes what an update request does to its target
type ChangeKind string

const (
	ChangeKindAddChildRow    ChangeKind = "Add Child Row"
	ChangeKindUpdateChildRow ChangeKind = "Update Child Row"
	ChangeKindDeleteChildRow ChangeKind = "Delete Child Row"
	ChangeKindFieldUpdate    ChangeKind = "Field Update"
	ChangeKindCreate         ChangeKind = "Create"
)

// IsChildRow returns true for changes that operate on a child table row
func (k ChangeKind) IsChildRow() bool {
	return k == ChangeKindAddChildRow || k == ChangeKindUpdateChildRow || k == ChangeKindDeleteChildRow
}

// RequiresExistingRow returns true for child row changes that reference an existing row
func (k ChangeKind) RequiresExistingRow() bool {
	return k == ChangeKindUpdateChildRow || k == ChangeKindDeleteChildRow
}

// ChangeType describes the original operation a revert item undoes
type ChangeType string

const (
	// ChangeTypeCreate: the document was created; reverting cancels or deletes it
	ChangeTypeCreate ChangeType = "Create"
	// ChangeTypeUpdate: the document was modified; reverting restores the snapshot
	ChangeTypeUpdate ChangeType = "Update"
	// ChangeTypeRemove: the document was deleted; reverting recreates it from the snapshot
	ChangeTypeRemove ChangeType = "Remove"
)

// IsValid returns true for the three known change types
func (t ChangeType) IsValid() bool {
	return t == ChangeTypeCreate || t == ChangeTypeUpdate || t == ChangeTypeRemove
}

// RevertItem is one captured inverse operation of an applied update request
type RevertItem struct {
	Seq        int             `json:"seq"`
	TargetType string          `json:"target_type"`
	TargetID   string          `json:"target_id"`
	ChangeType ChangeType      `json:"change_type"`
	Snapshot   json.RawMessage `json:"snapshot,omitempty"`
}

// UpdateRequest is the workflow record governing one proposed change to a document
type UpdateRequest struct {
	ID            string         `json:"id"`
	Status        workflow.State `json:"status"`
	TargetType    string         `json:"target_type" validate:"required"`
	TargetID      string         `json:"target_id" validate:"required_unless=ChangeKind Create"`
	FieldName     string         `json:"field_name,omitempty"`
	CustomCall    string         `json:"custom_call,omitempty"`
	ChangeKind    ChangeKind     `json:"change_kind,omitempty" validate:"omitempty,oneof='Add Child Row' 'Update Child Row' 'Delete Child Row' 'Field Update' 'Create'"`
	Payload       string         `json:"payload,omitempty"`
	PartyType     string         `json:"party_type,omitempty"`
	ApprovalParty string         `json:"approval_party,omitempty"`
	ApprovedBy    string         `json:"approved_by,omitempty"`
	ApprovedOn    *time.Time     `json:"approved_on,omitempty"`
	RejectedBy    string         `json:"rejected_by,omitempty"`
	RejectedOn    *time.Time     `json:"rejected_on,omitempty"`
	Error         string         `json:"error,omitempty"`
	RevertItems   []RevertItem   `json:"revert_items"`
	CreatedBy     string         `json:"created_by,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	ModifiedAt    time.Time      `json:"modified_at"`
	Version       int64          `json:"version"`
}

// IsPending returns true while the request waits to be applied
func (r *UpdateRequest) IsPending() bool {
	return r.Status == workflow.StatePending
}

// IsPendingApproval returns true while the request waits for its approval party
func (r *UpdateRequest) IsPendingApproval() bool {
	return r.Status == workflow.StatePendingApproval
}

// IsApproved returns true once the approval party accepted the request
func (r *UpdateRequest) IsApproved() bool {
	return r.Status == workflow.StateApproved
}

// IsOpen returns true while the request blocks other requests on the same target
func (r *UpdateRequest) IsOpen() bool {
	return r.Status.IsOpen()
}

// IsChildRowChange returns true when the request adds, updates or deletes a child row
func (r *UpdateRequest) IsChildRowChange() bool {
	return r.ChangeKind.IsChildRow()
}

// IsCreate returns true when the request creates its target
func (r *UpdateRequest) IsCreate() bool {
	return r.ChangeKind == ChangeKindCreate
}

// Normalize resets every workflow-owned field so a pre-filled record starts clean
func (r *UpdateRequest) Normalize() {
	r.Status = workflow.StatePending
	r.Error = ""
	r.RevertItems = nil
	r.ApprovalParty = ""
	r.ApprovedBy = ""
	r.ApprovedOn = nil
	r.RejectedBy = ""
	r.RejectedOn = nil
	r.Version = 0
}

// Clone returns a deep copy of the request
func (r *UpdateRequest) Clone() *UpdateRequest {
	c := *r
	if r.ApprovedOn != nil {
		t := *r.ApprovedOn
		c.ApprovedOn = &t
	}
	if r.RejectedOn != nil {
		t := *r.RejectedOn
		c.RejectedOn = &t
	}
	if r.RevertItems != nil {
		c.RevertItems = make([]RevertItem, len(r.RevertItems))
		for i, item := range r.RevertItems {
			item.Snapshot = append(json.RawMessage(nil), item.Snapshot...)
			c.RevertItems[i] = item
		}
	}
	return &c
}
