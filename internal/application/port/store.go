package port

import (
	"context"

	"github.com/garyjia/update-requests/internal/domain/document"
)

// Policy actions checked by a PolicyInterceptor
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionWrite  = "write"
	ActionDelete = "delete"
	ActionCancel = "cancel"
)

// DocumentStore persists mediated documents. Writes consult the PolicyInterceptor
// unless bypassAuthz is set.
type DocumentStore interface {
	// Meta returns the registered metadata of a document type
	Meta(docType string) (document.Meta, error)

	// New returns an empty document of a registered type
	New(docType string) (document.Document, error)

	// Load retrieves a document, failing with a NotFoundError when absent
	Load(ctx context.Context, docType, id string) (document.Document, error)

	// Exists reports whether a document is stored
	Exists(ctx context.Context, docType, id string) (bool, error)

	// Create inserts doc, assigning a new identity when DocID is empty.
	// An identity already in use fails with a ConflictError.
	Create(ctx context.Context, doc document.Document, bypassAuthz bool) error

	// Save overwrites an existing document
	Save(ctx context.Context, doc document.Document, bypassAuthz bool) error

	// Delete removes a document
	Delete(ctx context.Context, docType, id string, bypassAuthz bool) error

	// Cancel moves a submitted document to Cancelled
	Cancel(ctx context.Context, docType, id string, bypassAuthz bool) error
}

// IdentityProvider resolves the user acting in a context
type IdentityProvider interface {
	CurrentUser(ctx context.Context) string
}

// PolicyInterceptor authorizes ordinary document writes. It returns an AuthorizationError
// when actor may not perform action on docType.
type PolicyInterceptor interface {
	Authorize(ctx context.Context, actor, docType, action string) error
}

// PayloadCodec parses and renders the opaque payload of an update request
type PayloadCodec interface {
	// Parse decodes text, failing with an InvalidPayloadError on malformed input
	Parse(text string) (interface{}, error)

	// Render encodes a structured value
	Render(v interface{}) (string, error)
}
