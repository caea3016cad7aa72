package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/workflow"
	"github.com/garyjia/update-requests/internal/infrastructure/persistence"
)

// DocumentStore implements port.DocumentStore over the documents table.
// Each document is stored as its JSON body keyed by (doc_type, doc_id).
type DocumentStore struct {
	db      *DB
	catalog *persistence.Catalog
	guard   persistence.Guard
}

// NewDocumentStore creates a document store
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

	var body string
	query := `SELECT body FROM documents WHERE doc_type = ? AND doc_id = ?`
	err = s.db.executor(ctx).QueryRowContext(ctx, query, docType, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workflow.NewNotFoundError(docType, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", docType, id, err)
	}

	if err := json.Unmarshal([]byte(body), doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s %s: %w", docType, id, err)
	}
	doc.SetDocID(id)
	return doc, nil
}

func (s *DocumentStore) Exists(ctx context.Context, docType, id string) (bool, error) {
	var n int
	query := `SELECT COUNT(1) FROM documents WHERE doc_type = ? AND doc_id = ?`
	if err := s.db.executor(ctx).QueryRowContext(ctx, query, docType, id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check %s %s: %w", docType, id, err)
	}
	return n > 0, nil
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

	now := time.Now().UTC()
	query := `
		INSERT INTO documents (doc_type, doc_id, docstatus, body, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.executor(ctx).ExecContext(ctx, query, doc.DocType(), doc.DocID(), docStatusOf(doc), string(body), now, now)
	if isUniqueViolation(err) {
		return workflow.NewError(workflow.KindConflict, "%s %s already exists", doc.DocType(), doc.DocID())
	}
	if err != nil {
		return fmt.Errorf("failed to create %s %s: %w", doc.DocType(), doc.DocID(), err)
	}
	return nil
}

func (s *DocumentStore) Save(ctx context.Context, doc document.Document, bypassAuthz bool) error {
	if err := s.guard.Check(ctx, doc.DocType(), port.ActionWrite, bypassAuthz); err != nil {
		return err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", doc.DocType(), doc.DocID(), err)
	}

	query := `
		UPDATE documents SET docstatus = ?, body = ?, modified_at = ?
		WHERE doc_type = ? AND doc_id = ?
	`
	result, err := s.db.executor(ctx).ExecContext(ctx, query, docStatusOf(doc), string(body), time.Now().UTC(), doc.DocType(), doc.DocID())
	if err != nil {
		return fmt.Errorf("failed to save %s %s: %w", doc.DocType(), doc.DocID(), err)
	}
	return expectOneRow(result, workflow.NewNotFoundError(doc.DocType(), doc.DocID()))
}

func (s *DocumentStore) Delete(ctx context.Context, docType, id string, bypassAuthz bool) error {
	if err := s.guard.Check(ctx, docType, port.ActionDelete, bypassAuthz); err != nil {
		return err
	}

	query := `DELETE FROM documents WHERE doc_type = ? AND doc_id = ?`
	result, err := s.db.executor(ctx).ExecContext(ctx, query, docType, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", docType, id, err)
	}
	return expectOneRow(result, workflow.NewNotFoundError(docType, id))
}

func (s *DocumentStore) Cancel(ctx context.Context, docType, id string, bypassAuthz bool) error {
	if err := s.guard.Check(ctx, docType, port.ActionCancel, bypassAuthz); err != nil {
		return err
	}

	doc, err := s.Load(ctx, docType, id)
	if err != nil {
		return err
	}
	sub, ok := doc.(document.Submittable)
	if !ok || sub.DocStatus() != document.DocStatusSubmitted {
		return workflow.NewValidationError("%s %s is not submitted and can't be cancelled", docType, id)
	}
	sub.SetDocStatus(document.DocStatusCancelled)

	return s.Save(ctx, sub, true)
}

func docStatusOf(doc document.Document) int {
	if sub, ok := doc.(document.Submittable); ok {
		return int(sub.DocStatus())
	}
	return int(document.DocStatusDraft)
}

func expectOneRow(result sql.Result, missing error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return missing
	}
	return nil
}

// Verify interface compliance
var _ port.DocumentStore = (*DocumentStore)(nil)
