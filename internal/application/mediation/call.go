package mediation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/wI2L/jsondiff"

	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/entity"
	"github.com/garyjia/update-requests/internal/domain/workflow"
)

// Call is what a handler sees while applying one update request
type Call struct {
	// Request is the update request being applied
	Request *entity.UpdateRequest
	// Target is the document the request changes; nil for Create requests
	Target document.Document
	// Payload is the parsed request payload, nil when the request carries none
	Payload interface{}
	// Documents writes on behalf of the request
	Documents Documents

	before   json.RawMessage
	deferred bool
}

func newCall(req *entity.UpdateRequest, target document.Document, payload interface{}, docs Documents) (*Call, error) {
	call := &Call{
		Request:   req,
		Target:    target,
		Payload:   payload,
		Documents: docs,
	}
	if target != nil {
		before, err := json.Marshal(target)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot %s %s: %w", target.DocType(), target.DocID(), err)
		}
		call.before = before
	}
	return call, nil
}

// DeferTo gates the request behind party. The engine moves it to Pending Approval
// instead of completing it and does not require revert data.
func (c *Call) DeferTo(party, partyType string) {
	c.deferred = true
	c.Request.ApprovalParty = party
	c.Request.PartyType = partyType
}

// Deferred reports whether the handler gated the request
func (c *Call) Deferred() bool {
	return c.deferred
}

// IsPending returns true while the request has not been gated or approved
func (c *Call) IsPending() bool {
	return c.Request.IsPending() && !c.deferred
}

// IsPendingApproval returns true once the handler deferred the request
func (c *Call) IsPendingApproval() bool {
	return c.deferred || c.Request.IsPendingApproval()
}

// IsApproved returns true when the request is being re-applied after approval
func (c *Call) IsApproved() bool {
	return c.Request.IsApproved()
}

// Before returns the JSON of the target as loaded, before the handler ran
func (c *Call) Before() json.RawMessage {
	return c.before
}

// Bind decodes the raw payload into v
func (c *Call) Bind(v interface{}) error {
	if c.Request.Payload == "" {
		return workflow.Wrap(workflow.KindMissingOrInvalidData, workflow.ErrMissingOrInvalidData.Message, fmt.Errorf("payload is empty"))
	}
	if err := json.Unmarshal([]byte(c.Request.Payload), v); err != nil {
		return workflow.Wrap(workflow.KindMissingOrInvalidData, workflow.ErrMissingOrInvalidData.Message, err)
	}
	return nil
}

// Fields returns the payload as an object
func (c *Call) Fields() (map[string]interface{}, error) {
	fields, ok := c.Payload.(map[string]interface{})
	if !ok {
		return nil, workflow.NewError(workflow.KindMissingOrInvalidData, "%s: payload must be an object", workflow.ErrMissingOrInvalidData.Message)
	}
	return fields, nil
}

// StandardRevertData returns one Update item restoring, from the before snapshot,
// every top-level field of the target the handler changed. It returns nothing
// when the target did not change.
func (c *Call) StandardRevertData() ([]entity.RevertItem, error) {
	if c.Target == nil {
		return nil, nil
	}
	after, err := json.Marshal(c.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s %s: %w", c.Target.DocType(), c.Target.DocID(), err)
	}
	patch, err := jsondiff.CompareJSON(c.before, after)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s %s: %w", c.Target.DocType(), c.Target.DocID(), err)
	}

	changed := map[string]bool{}
	for _, op := range patch {
		if field := topLevelField(op.Path); field != "" {
			changed[field] = true
		}
	}
	if len(changed) == 0 {
		return nil, nil
	}

	fields := make([]string, 0, len(changed))
	for field := range changed {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	item, err := snapshotFields(c.Target, c.before, fields)
	if err != nil {
		return nil, err
	}
	return []entity.RevertItem{item}, nil
}

// UpdatedItem returns an Update item restoring the current values of fields on doc.
// Call it before changing doc.
func (c *Call) UpdatedItem(doc document.Document, fields ...string) (entity.RevertItem, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return entity.RevertItem{}, fmt.Errorf("failed to encode %s %s: %w", doc.DocType(), doc.DocID(), err)
	}
	return snapshotFields(doc, body, fields)
}

// CreatedItem returns the item removing doc on revert
func (c *Call) CreatedItem(doc document.Document) entity.RevertItem {
	return entity.RevertItem{
		TargetType: doc.DocType(),
		TargetID:   doc.DocID(),
		ChangeType: entity.ChangeTypeCreate,
	}
}

// RemovedItem returns the item recreating doc on revert. Call it before removing doc.
func (c *Call) RemovedItem(doc document.Document) (entity.RevertItem, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return entity.RevertItem{}, fmt.Errorf("failed to encode %s %s: %w", doc.DocType(), doc.DocID(), err)
	}
	return entity.RevertItem{
		TargetType: doc.DocType(),
		TargetID:   doc.DocID(),
		ChangeType: entity.ChangeTypeRemove,
		Snapshot:   body,
	}, nil
}

// snapshotFields builds an Update item holding the values of fields in body.
// Fields absent from body are recorded as null so a merge patch removes them.
func snapshotFields(doc document.Document, body []byte, fields []string) (entity.RevertItem, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(body, &all); err != nil {
		return entity.RevertItem{}, fmt.Errorf("failed to decode %s %s: %w", doc.DocType(), doc.DocID(), err)
	}

	snapshot := make(map[string]json.RawMessage, len(fields))
	for _, field := range fields {
		if value, ok := all[field]; ok {
			snapshot[field] = value
		} else {
			snapshot[field] = json.RawMessage("null")
		}
	}
	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return entity.RevertItem{}, err
	}

	return entity.RevertItem{
		TargetType: doc.DocType(),
		TargetID:   doc.DocID(),
		ChangeType: entity.ChangeTypeUpdate,
		Snapshot:   encoded,
	}, nil
}

// topLevelField returns the first segment of a JSON pointer
func topLevelField(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if i := strings.IndexByte(pointer, '/'); i >= 0 {
		pointer = pointer[:i]
	}
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(pointer)
}

// childRowExists reports whether the child table of body holds a row with the given name
func childRowExists(body []byte, table, name string) bool {
	found := false
	gjson.GetBytes(body, table).ForEach(func(_, row gjson.Result) bool {
		if row.Get("name").String() == name {
			found = true
			return false
		}
		return true
	})
	return found
}

// childRowName extracts the row name of a child row payload
func childRowName(payload interface{}) (string, bool) {
	fields, ok := payload.(map[string]interface{})
	if !ok {
		return "", false
	}
	name, ok := fields["name"].(string)
	return name, ok && name != ""
}
