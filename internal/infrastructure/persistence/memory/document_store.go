package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/workflow"
	"github.com/garyjia/update-requests/internal/infrastructure/persistence"
)

// DocumentStore implements port.DocumentStore in memory
type DocumentStore struct {
	db      *DB
	catalog *persistence.Catalog
	guard   persistence.Guard
}

// NewDocumentStore creates a document store over db
func NewDocumentStore(db *DB, catalog *persistence.Catalog, guard persistence.Guard) *DocumentStore {
	return &DocumentStore{db: db, catalog: catalog, guard: guard}
}

func (s *DocumentStore) Meta(docType string) (document.Meta, error) {
	return s.catalog.Meta(docType)
}

func (s *DocumentStore) New(docType string) (document.Document, error) {
	return s.catalog.New(docType)
}

func (s *DocumentStore) Load(ctx context.Context, docType, id string) (document.Document, error) {
	doc, err := s.catalog.New(docType)
	if err != nil {
		return nil, err
	}

	err = s.db.read(ctx, func(d *data) error {
		body, ok := d.documents[keyOf(docType, id)]
		if !ok {
			return workflow.NewNotFoundError(docType, id)
		}
		return json.Unmarshal(body, doc)
	})
	if err != nil {
		return nil, err
	}
	doc.SetDocID(id)
	return doc, nil
}

func (s *DocumentStore) Exists(ctx context.Context, docType, id string) (bool, error) {
	var exists bool
	err := s.db.read(ctx, func(d *data) error {
		_, exists = d.documents[keyOf(docType, id)]
		return nil
	})
	return exists, err
}

func (s *DocumentStore) Create(ctx context.Context, doc document.Document, bypassAuthz bool) error {
	if _, err := s.catalog.Meta(doc.DocType()); err != nil {
		return err
	}
	if err := s.guard.Check(ctx, doc.DocType(), port.ActionCreate, bypassAuthz); err != nil {
		return err
	}
	if doc.DocID() == "" {
		doc.SetDocID(uuid.NewString())
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", doc.DocType(), err)
	}

	return s.db.write(ctx, func(d *data) error {
		key := document.KeyOf(doc)
		if _, exists := d.documents[key]; exists {
			return workflow.NewError(workflow.KindConflict, "%s %s already exists", key.Type, key.ID)
		}
		d.documents[key] = body
		return nil
	})
}

func (s *DocumentStore) Save(ctx context.Context, doc document.Document, bypassAuthz bool) error {
	if err := s.guard.Check(ctx, doc.DocType(), port.ActionWrite, bypassAuthz); err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", doc.DocType(), doc.DocID(), err)
	}

	return s.db.write(ctx, func(d *data) error {
		key := document.KeyOf(doc)
		if _, exists := d.documents[key]; !exists {
			return workflow.NewNotFoundError(key.Type, key.ID)
		}
		d.documents[key] = body
		return nil
	})
}

func (s *DocumentStore) Delete(ctx context.Context, docType, id string, bypassAuthz bool) error {
	if err := s.guard.Check(ctx, docType, port.ActionDelete, bypassAuthz); err != nil {
		return err
	}

	return s.db.write(ctx, func(d *data) error {
		key := keyOf(docType, id)
		if _, exists := d.documents[key]; !exists {
			return workflow.NewNotFoundError(docType, id)
		}
		delete(d.documents, key)
		return nil
	})
}

func (s *DocumentStore) Cancel(ctx context.Context, docType, id string, bypassAuthz bool) error {
	if err := s.guard.Check(ctx, docType, port.ActionCancel, bypassAuthz); err != nil {
		return err
	}

	doc, err := s.catalog.New(docType)
	if err != nil {
		return err
	}

	return s.db.write(ctx, func(d *data) error {
		key := keyOf(docType, id)
		body, exists := d.documents[key]
		if !exists {
			return workflow.NewNotFoundError(docType, id)
		}
		if err := json.Unmarshal(body, doc); err != nil {
			return fmt.Errorf("failed to decode %s %s: %w", docType, id, err)
		}
		sub, ok := doc.(document.Submittable)
		if !ok || sub.DocStatus() != document.DocStatusSubmitted {
			return workflow.NewValidationError("%s %s is not submitted and can't be cancelled", docType, id)
		}
		sub.SetDocStatus(document.DocStatusCancelled)

		updated, err := json.Marshal(sub)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s: %w", docType, id, err)
		}
		d.documents[key] = updated
		return nil
	})
}

// Verify interface compliance
var _ port.DocumentStore = (*DocumentStore)(nil)
