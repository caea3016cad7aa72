package mediation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/garyjia/update-requests/internal/application/mediation"
	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/entity"
	"github.com/garyjia/update-requests/internal/infrastructure/codec"
	"github.com/garyjia/update-requests/internal/infrastructure/persistence"
	"github.com/garyjia/update-requests/internal/infrastructure/persistence/memory"
	"github.com/garyjia/update-requests/internal/orders"
)

type harness struct {
	ctx       context.Context
	db        *memory.DB
	catalog   *persistence.Catalog
	store     *memory.DocumentStore
	requests  *memory.UpdateRequestRepository
	history   *memory.HistoryRepository
	registry  *mediation.Registry
	validator *mediation.Validator
	lifecycle *mediation.Lifecycle
	engine    *mediation.Engine
}

func newHarness(t *testing.T, rules orders.Rules) *harness {
	t.Helper()

	h := &harness{
		ctx:      context.Background(),
		db:       memory.NewDB(),
		catalog:  persistence.NewCatalog(),
		registry: mediation.NewRegistry(),
	}
	h.store = memory.NewDocumentStore(h.db, h.catalog, persistence.Guard{})
	h.requests = memory.NewUpdateRequestRepository(h.db)
	h.history = memory.NewHistoryRepository(h.db)
	require.NoError(t, orders.Register(h.catalog, h.registry, rules))

	jsonCodec := codec.NewJSONCodec()
	h.validator = mediation.NewValidator(h.store, h.requests, jsonCodec)
	h.lifecycle = mediation.NewLifecycle(h.requests, h.history, nil, nil)
	h.engine = mediation.NewEngine(h.store, h.requests, h.db, jsonCodec, h.registry, h.lifecycle)
	return h
}

func (h *harness) seedOrder(t *testing.T, id, status string, items ...orders.OrderItem) {
	t.Helper()
	doc, err := h.store.New(orders.TypeOrder)
	require.NoError(t, err)
	order := doc.(*orders.Order)
	order.ID = id
	order.Status = document.DocStatusSubmitted
	order.Customer = "ACME"
	order.OrderStatus = status
	order.Items = items
	require.NoError(t, h.store.Create(h.ctx, order, true))
}

func (h *harness) order(t *testing.T, id string) *orders.Order {
	t.Helper()
	doc, err := h.store.Load(h.ctx, orders.TypeOrder, id)
	require.NoError(t, err)
	return doc.(*orders.Order)
}

// insert validates and stores req the way the service does
func (h *harness) insert(t *testing.T, req *entity.UpdateRequest) *entity.UpdateRequest {
	t.Helper()
	require.NoError(t, h.tryInsert(req))
	return req
}

func (h *harness) tryInsert(req *entity.UpdateRequest) error {
	return h.db.WithTransaction(h.ctx, func(txCtx context.Context) error {
		if err := h.validator.Validate(txCtx, req); err != nil {
			return err
		}
		if err := h.requests.Create(txCtx, req); err != nil {
			return err
		}
		_, err := h.lifecycle.Record(txCtx, req, "tester")
		return err
	})
}

// applied inserts and applies req, failing the test on refusal
func (h *harness) applied(t *testing.T, req *entity.UpdateRequest) *mediation.Result {
	t.Helper()
	h.insert(t, req)
	result, err := h.engine.Apply(h.ctx, req.ID)
	require.NoError(t, err)
	return result
}

func (h *harness) request(t *testing.T, id string) *entity.UpdateRequest {
	t.Helper()
	req, err := h.requests.GetByID(h.ctx, id)
	require.NoError(t, err)
	return req
}

func statusRequest(orderID, status string) *entity.UpdateRequest {
	return &entity.UpdateRequest{
		TargetType: orders.TypeOrder,
		TargetID:   orderID,
		FieldName:  "status",
		ChangeKind: entity.ChangeKindFieldUpdate,
		Payload:    `{"status":"` + status + `"}`,
	}
}
