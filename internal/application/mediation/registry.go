package mediation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/entity"
	"github.com/garyjia/update-requests/internal/domain/workflow"
)

type fieldKey struct {
	docType string
	field   string
}

// Registry maps custom call names and (document type, field) pairs to handlers.
// It is filled at startup.
//
// Resolution order:
//  1. custom call: a qualified name ("pkg.func") is looked up among registered
//     functions, an unqualified one among the target's own handlers
//  2. a handler registered for (target type, field name)
//  3. the target's own handler named "_<field name>"
//
// Create requests without a custom call use the built-in document creation handler.
type Registry struct {
	mu     sync.RWMutex
	funcs  map[string]Handler
	fields map[fieldKey]Handler
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		funcs:  make(map[string]Handler),
		fields: make(map[fieldKey]Handler),
	}
}

// RegisterFunc registers a globally addressable handler under a qualified name
func (r *Registry) RegisterFunc(name string, handler Handler) error {
	if !strings.Contains(name, ".") {
		return fmt.Errorf("function name %q must be qualified", name)
	}
	if handler == nil {
		return fmt.Errorf("function %q has no handler", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("function %q already registered", name)
	}
	r.funcs[name] = handler
	return nil
}

// RegisterField binds a handler to a field of a document type
func (r *Registry) RegisterField(docType, field string, handler Handler) error {
	if docType == "" || field == "" {
		return fmt.Errorf("document type and field are required")
	}
	if handler == nil {
		return fmt.Errorf("field %s.%s has no handler", docType, field)
	}

	key := fieldKey{docType: docType, field: field}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.fields[key]; exists {
		return fmt.Errorf("field %s.%s already registered", docType, field)
	}
	r.fields[key] = handler
	return nil
}

// Resolve finds the handler for req. target is nil for Create requests.
func (r *Registry) Resolve(req *entity.UpdateRequest, target document.Document) (Handler, error) {
	if req.CustomCall != "" {
		if strings.Contains(req.CustomCall, ".") {
			r.mu.RLock()
			handler, ok := r.funcs[req.CustomCall]
			r.mu.RUnlock()
			if ok {
				return handler, nil
			}
		} else if handler, ok := ownHandler(target, req.CustomCall); ok {
			return handler, nil
		}
		return nil, notDefined(req.TargetType, req.CustomCall)
	}

	if req.IsCreate() {
		return createDocument, nil
	}

	r.mu.RLock()
	handler, ok := r.fields[fieldKey{docType: req.TargetType, field: req.FieldName}]
	r.mu.RUnlock()
	if ok {
		return handler, nil
	}

	name := FieldHandlerName(req.FieldName)
	if handler, ok := ownHandler(target, name); ok {
		return handler, nil
	}
	return nil, notDefined(req.TargetType, name)
}

func ownHandler(target document.Document, name string) (Handler, bool) {
	mediated, ok := target.(Mediated)
	if !ok {
		return nil, false
	}
	handler, ok := mediated.UpdateHandlers()[name]
	return handler, ok && handler != nil
}

func notDefined(docType, name string) error {
	return workflow.NewError(workflow.KindMethodNotDefined, "%s: %s on %s", workflow.ErrMethodNotDefined.Message, name, docType)
}

// createDocument creates a document of the request's target type from the payload
func createDocument(ctx context.Context, call *Call) ([]entity.RevertItem, error) {
	req := call.Request
	doc, err := call.Documents.New(req.TargetType)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(req.Payload), doc); err != nil {
		return nil, workflow.Wrap(workflow.KindMissingOrInvalidData, workflow.ErrMissingOrInvalidData.Message, err)
	}
	if req.TargetID != "" {
		doc.SetDocID(req.TargetID)
	}
	if err := call.Documents.Create(ctx, doc); err != nil {
		return nil, err
	}
	return []entity.RevertItem{call.CreatedItem(doc)}, nil
}
