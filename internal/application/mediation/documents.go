package mediation

import (
	"context"

	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/domain/document"
)

// Documents is a view of the document store for code running on behalf of an
// update request. Its writes skip authorization: the request is the authorization record.
type Documents struct {
	store port.DocumentStore
}

// NewDocuments wraps store
func NewDocuments(store port.DocumentStore) Documents {
	return Documents{store: store}
}

func (d Documents) Meta(docType string) (document.Meta, error) {
	return d.store.Meta(docType)
}

func (d Documents) New(docType string) (document.Document, error) {
	return d.store.New(docType)
}

func (d Documents) Load(ctx context.Context, docType, id string) (document.Document, error) {
	return d.store.Load(ctx, docType, id)
}

func (d Documents) Exists(ctx context.Context, docType, id string) (bool, error) {
	return d.store.Exists(ctx, docType, id)
}

func (d Documents) Create(ctx context.Context, doc document.Document) error {
	return d.store.Create(ctx, doc, true)
}

func (d Documents) Save(ctx context.Context, doc document.Document) error {
	return d.store.Save(ctx, doc, true)
}

func (d Documents) Delete(ctx context.Context, docType, id string) error {
	return d.store.Delete(ctx, docType, id, true)
}

func (d Documents) Cancel(ctx context.Context, docType, id string) error {
	return d.store.Cancel(ctx, docType, id, true)
}
