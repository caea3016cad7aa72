package service

import (
	"context"
	"encoding/json"

	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/domain/document"
	domainwf "github.com/garyjia/update-requests/internal/domain/workflow"
)

// DocumentService reads documents and creates them outside the update request
// workflow. Creation goes through the policy interceptor.
type DocumentService interface {
	Create(ctx context.Context, docType string, body []byte) (document.Document, error)
	Get(ctx context.Context, docType, id string) (document.Document, error)
}

type documentServiceImpl struct {
	store     port.DocumentStore
	txManager port.TransactionManager
	logger    Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(store port.DocumentStore, txManager port.TransactionManager, logger Logger) DocumentService {
	return &documentServiceImpl{
		store:     store,
		txManager: txManager,
		logger:    logger,
	}
}

func (s *documentServiceImpl) Create(ctx context.Context, docType string, body []byte) (document.Document, error) {
	meta, err := s.store.Meta(docType)
	if err != nil {
		return nil, err
	}
	if meta.IsTable {
		return nil, domainwf.NewValidationError("%s is a child table and can't be created on its own", docType)
	}

	doc := meta.New()
	if err := json.Unmarshal(body, doc); err != nil {
		return nil, domainwf.Wrap(domainwf.KindInvalidPayload, domainwf.ErrInvalidPayload.Message, err)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.store.Create(txCtx, doc, false)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Document created", "doc_type", docType, "doc_id", doc.DocID())
	return doc, nil
}

func (s *documentServiceImpl) Get(ctx context.Context, docType, id string) (document.Document, error) {
	return s.store.Load(ctx, docType, id)
}
