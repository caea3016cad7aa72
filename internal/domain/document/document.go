// Package document defines the contract between the update request engine and the
// records it governs. Storage of documents is left to a DocumentStore implementation.
package document

// DocStatus is the submit/cancel lifecycle position of a document
type DocStatus int

const (
	DocStatusDraft     DocStatus = 0
	DocStatusSubmitted DocStatus = 1
	DocStatusCancelled DocStatus = 2
)

// String returns a readable name for the status
func (s DocStatus) String() string {
	switch s {
	case DocStatusDraft:
		return "Draft"
	case DocStatusSubmitted:
		return "Submitted"
	case DocStatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Document is a persisted record addressable by (DocType, DocID)
type Document interface {
	DocType() string
	DocID() string
	SetDocID(id string)
}

// Submittable is implemented by documents with a submit/cancel lifecycle
type Submittable interface {
	Document
	DocStatus() DocStatus
	SetDocStatus(status DocStatus)
}

// Base carries the identity and lifecycle columns shared by every document.
// Embed it and implement DocType to satisfy Document and Submittable.
type Base struct {
	ID     string    `json:"id"`
	Status DocStatus `json:"docstatus"`
}

// DocID returns the document identity
func (b *Base) DocID() string { return b.ID }

// SetDocID assigns the document identity
func (b *Base) SetDocID(id string) { b.ID = id }

// DocStatus returns the submit/cancel status
func (b *Base) DocStatus() DocStatus { return b.Status }

// SetDocStatus sets the submit/cancel status
func (b *Base) SetDocStatus(status DocStatus) { b.Status = status }

// Meta describes a registered document type
type Meta struct {
	// Name is the document type name, e.g. "Order"
	Name string
	// IsTable marks child-row types that only live inside a parent document
	IsTable bool
	// IsSubmittable marks types where removal means cancel rather than delete
	IsSubmittable bool
	// New returns an empty document of this type
	New func() Document
}

// Key identifies a document across types
type Key struct {
	Type string
	ID   string
}

// KeyOf returns the key of doc
func KeyOf(doc Document) Key {
	return Key{Type: doc.DocType(), ID: doc.DocID()}
}

// IsCancellable reports whether removing doc should cancel it instead of deleting it
func IsCancellable(meta Meta, doc Document) bool {
	if !meta.IsSubmittable {
		return false
	}
	sub, ok := doc.(Submittable)
	return ok && sub.DocStatus() == DocStatusSubmitted
}
