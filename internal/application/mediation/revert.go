package mediation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/entity"
	"github.com/garyjia/update-requests/internal/domain/event"
	domainwf "github.com/garyjia/update-requests/internal/domain/workflow"
)

// RevertCall is what a Reverter sees while undoing one update request
type RevertCall struct {
	Request   *entity.UpdateRequest
	Target    document.Document
	Documents Documents
}

// Replay undoes one revert item the generic way
func (c *RevertCall) Replay(ctx context.Context, item entity.RevertItem) error {
	return ReplayItem(ctx, c.Documents, item)
}

// ReplayAll undoes every revert item of the request in recorded order
func (c *RevertCall) ReplayAll(ctx context.Context) error {
	for _, item := range c.Request.RevertItems {
		if err := c.Replay(ctx, item); err != nil {
			return fmt.Errorf("failed to revert item %d (%s %s %s): %w", item.Seq, item.ChangeType, item.TargetType, item.TargetID, err)
		}
	}
	return nil
}

// Revert undoes a Success request and marks it Reverted.
//
// The request must be the most recently modified Success request of its target,
// otherwise the revert is refused. The replay runs in one transaction: a failing
// item rolls back every replayed item and the request stays Success. A request
// without revert items is left untouched.
func (e *Engine) Revert(ctx context.Context, requestID string) (*Result, error) {
	actor := e.identity.CurrentUser(ctx)

	var (
		result *Result
		evt    *event.Event
	)
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := e.requests.GetByID(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.Status != domainwf.StateSuccess {
			return domainwf.ErrNotRevertible
		}

		successful, err := e.requests.ListSuccessful(txCtx, req.TargetType, req.TargetID)
		if err != nil {
			return fmt.Errorf("failed to list successful requests: %w", err)
		}
		if len(successful) == 0 || successful[0].ID != req.ID {
			return domainwf.ErrNotLatestRequest
		}

		if len(req.RevertItems) == 0 {
			result = &Result{Request: req, Outcome: OutcomeUnchanged}
			return nil
		}

		target, err := e.replay(txCtx, req)
		if err != nil {
			return err
		}

		if hook, ok := target.(CompletionHook); ok {
			if err := hook.OnUpdateRequestComplete(txCtx, req, OutcomeReverted); err != nil {
				return err
			}
		}

		evt, err = e.lifecycle.Transition(txCtx, req, domainwf.TriggerRevert, actor, "")
		if err != nil {
			return err
		}
		result = &Result{Request: req, Outcome: OutcomeReverted}
		return nil
	})
	if err != nil {
		e.logger.Error("Update request revert refused",
			"request_id", requestID,
			"kind", domainwf.KindOf(err),
			"error", err,
		)
		return nil, err
	}

	e.logger.Info("Update request reverted",
		"request_id", requestID,
		"outcome", result.Outcome,
	)
	e.lifecycle.Publish(ctx, evt)
	return result, nil
}

// replay hands the revert to the target when it is a Reverter and replays the
// items generically otherwise. It returns the target as it stands afterwards, or
// nil when the target does not exist.
func (e *Engine) replay(ctx context.Context, req *entity.UpdateRequest) (document.Document, error) {
	docs := NewDocuments(e.store)
	call := &RevertCall{Request: req, Documents: docs}

	target, err := e.loadIfExists(ctx, req.TargetType, req.TargetID)
	if err != nil {
		return nil, err
	}
	call.Target = target

	if reverter, ok := target.(Reverter); ok {
		if err := reverter.RevertUpdateRequest(ctx, call); err != nil {
			return nil, err
		}
	} else if err := call.ReplayAll(ctx); err != nil {
		return nil, err
	}

	return e.loadIfExists(ctx, req.TargetType, req.TargetID)
}

func (e *Engine) loadIfExists(ctx context.Context, docType, id string) (document.Document, error) {
	if id == "" {
		return nil, nil
	}
	exists, err := e.store.Exists(ctx, docType, id)
	if err != nil || !exists {
		return nil, err
	}
	return e.store.Load(ctx, docType, id)
}

// ReplayItem undoes one revert item:
// Create cancels a submitted document of a submittable type and deletes anything else,
// Update overlays the snapshot onto the document, Remove recreates the document
// with its original identity.
func ReplayItem(ctx context.Context, docs Documents, item entity.RevertItem) error {
	switch item.ChangeType {
	case entity.ChangeTypeCreate:
		meta, err := docs.Meta(item.TargetType)
		if err != nil {
			return err
		}
		doc, err := docs.Load(ctx, item.TargetType, item.TargetID)
		if err != nil {
			return err
		}
		if document.IsCancellable(meta, doc) {
			return docs.Cancel(ctx, item.TargetType, item.TargetID)
		}
		return docs.Delete(ctx, item.TargetType, item.TargetID)

	case entity.ChangeTypeUpdate:
		if len(item.Snapshot) == 0 {
			return domainwf.ErrMissingRevertData
		}
		doc, err := docs.Load(ctx, item.TargetType, item.TargetID)
		if err != nil {
			return err
		}
		restored, err := overlay(docs, doc, item.Snapshot)
		if err != nil {
			return err
		}
		return docs.Save(ctx, restored)

	case entity.ChangeTypeRemove:
		if len(item.Snapshot) == 0 {
			return domainwf.ErrMissingRevertData
		}
		exists, err := docs.Exists(ctx, item.TargetType, item.TargetID)
		if err != nil {
			return err
		}
		if exists {
			return domainwf.NewError(domainwf.KindConflict, "%s %s already exists and can't be recreated", item.TargetType, item.TargetID)
		}
		doc, err := docs.New(item.TargetType)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(item.Snapshot, doc); err != nil {
			return fmt.Errorf("failed to decode snapshot of %s %s: %w", item.TargetType, item.TargetID, err)
		}
		doc.SetDocID(item.TargetID)
		return docs.Create(ctx, doc)

	default:
		return domainwf.NewError(domainwf.KindMissingRevertData, "%s: unknown change type %q", domainwf.ErrMissingRevertData.Message, item.ChangeType)
	}
}

// overlay replaces every top-level field captured in snapshot on doc and returns
// the result as a fresh document. A null snapshot value removes the field.
func overlay(docs Documents, doc document.Document, snapshot json.RawMessage) (document.Document, error) {
	current, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s %s: %w", doc.DocType(), doc.DocID(), err)
	}
	patch, err := restorePatch(current, snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to build restore patch for %s %s: %w", doc.DocType(), doc.DocID(), err)
	}
	restoredJSON, err := patch.Apply(current)
	if err != nil {
		return nil, fmt.Errorf("failed to restore snapshot on %s %s: %w", doc.DocType(), doc.DocID(), err)
	}

	restored, err := docs.New(doc.DocType())
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(restoredJSON, restored); err != nil {
		return nil, fmt.Errorf("failed to decode restored %s %s: %w", doc.DocType(), doc.DocID(), err)
	}
	restored.SetDocID(doc.DocID())
	return restored, nil
}

type patchOp struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
}

// restorePatch builds one JSON Patch op per snapshot field. Fields are replaced
// whole, so keys added inside nested objects don't survive the restore.
func restorePatch(current, snapshot []byte) (jsonpatch.Patch, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(snapshot, &fields); err != nil {
		return nil, domainwf.Wrap(domainwf.KindMissingRevertData, domainwf.ErrMissingRevertData.Message, err)
	}
	var present map[string]json.RawMessage
	if err := json.Unmarshal(current, &present); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	ops := make([]patchOp, 0, len(keys))
	for _, key := range keys {
		value := fields[key]
		path := "/" + pointerEscaper.Replace(key)
		if string(bytes.TrimSpace(value)) == "null" {
			if _, ok := present[key]; ok {
				ops = append(ops, patchOp{Op: "remove", Path: path})
			}
			continue
		}
		// add replaces an existing member
		ops = append(ops, patchOp{Op: "add", Path: path, Value: value})
	}

	raw, err := json.Marshal(ops)
	if err != nil {
		return nil, err
	}
	return jsonpatch.DecodePatch(raw)
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")
