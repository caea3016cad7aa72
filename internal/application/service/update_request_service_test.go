package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/update-requests/internal/application/mediation"
	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/entity"
	domainwf "github.com/garyjia/update-requests/internal/domain/workflow"
	"github.com/garyjia/update-requests/internal/infrastructure/codec"
	"github.com/garyjia/update-requests/internal/infrastructure/identity"
	"github.com/garyjia/update-requests/internal/infrastructure/persistence"
	"github.com/garyjia/update-requests/internal/infrastructure/persistence/memory"
	"github.com/garyjia/update-requests/internal/orders"
)

type recordingLogger struct {
	infos  []string
	errors []string
}

func (l *recordingLogger) Info(msg string, keysAndValues ...interface{})  { l.infos = append(l.infos, msg) }
func (l *recordingLogger) Error(msg string, keysAndValues ...interface{}) { l.errors = append(l.errors, msg) }

type serviceFixture struct {
	service  UpdateRequestService
	store    *memory.DocumentStore
	requests *memory.UpdateRequestRepository
	logger   *recordingLogger
}

func newServiceFixture(t *testing.T, rules orders.Rules) *serviceFixture {
	t.Helper()

	db := memory.NewDB()
	catalog := persistence.NewCatalog()
	registry := mediation.NewRegistry()
	require.NoError(t, orders.Register(catalog, registry, rules))

	store := memory.NewDocumentStore(db, catalog, persistence.Guard{})
	requests := memory.NewUpdateRequestRepository(db)
	history := memory.NewHistoryRepository(db)
	jsonCodec := codec.NewJSONCodec()
	users := identity.NewContextProvider("system")
	logger := &recordingLogger{}

	lifecycle := mediation.NewLifecycle(requests, history, nil, logger)
	engine := mediation.NewEngine(store, requests, db, jsonCodec, registry, lifecycle, mediation.WithIdentity(users))

	doc, err := store.New(orders.TypeOrder)
	require.NoError(t, err)
	order := doc.(*orders.Order)
	order.ID = "O-1"
	order.Customer = "ACME"
	order.OrderStatus = orders.StatusOrdered
	order.Status = document.DocStatusSubmitted
	require.NoError(t, store.Create(context.Background(), order, true))

	return &serviceFixture{
		service: NewUpdateRequestService(
			requests,
			history,
			db,
			mediation.NewValidator(store, requests, jsonCodec),
			engine,
			lifecycle,
			users,
			logger,
		),
		store:    store,
		requests: requests,
		logger:   logger,
	}
}

func asUser(user string) context.Context {
	return identity.WithUser(context.Background(), user)
}

func statusParams(status string, submit bool) CreateParams {
	return CreateParams{
		TargetType: orders.TypeOrder,
		TargetID:   "O-1",
		FieldName:  "status",
		ChangeKind: entity.ChangeKindFieldUpdate,
		Payload:    `{"status":"` + status + `"}`,
		Submit:     submit,
	}
}

func TestCreate_StoresPendingRequest(t *testing.T) {
	f := newServiceFixture(t, orders.Rules{})

	result, err := f.service.Create(asUser("clerk"), statusParams(orders.StatusShipped, false))
	require.NoError(t, err)
	assert.Equal(t, mediation.OutcomeCreated, result.Outcome)
	assert.Equal(t, domainwf.StatePending, result.Request.Status)
	assert.Equal(t, "clerk", result.Request.CreatedBy)

	stored, err := f.service.Get(asUser("clerk"), result.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatePending, stored.Status)
	assert.Contains(t, f.logger.infos, "Update request created")
}

func TestCreate_RefusalIsLoggedAndNothingStored(t *testing.T) {
	f := newServiceFixture(t, orders.Rules{})
	_, err := f.service.Create(asUser("clerk"), statusParams(orders.StatusShipped, false))
	require.NoError(t, err)

	_, err = f.service.Create(asUser("clerk"), statusParams(orders.StatusCancelled, false))
	assert.True(t, errors.Is(err, domainwf.ErrPendingUpdateRequest))
	assert.Contains(t, f.logger.errors, "Update request refused")
}

func TestCreate_SubmitApplies(t *testing.T) {
	f := newServiceFixture(t, orders.Rules{})

	result, err := f.service.Create(asUser("clerk"), statusParams(orders.StatusShipped, true))
	require.NoError(t, err)
	assert.Equal(t, mediation.OutcomeApplied, result.Outcome)

	doc, err := f.store.Load(context.Background(), orders.TypeOrder, "O-1")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusShipped, doc.(*orders.Order).OrderStatus)
}

func TestApproveAndReject_EnforceApprovalParty(t *testing.T) {
	tests := []struct {
		name    string
		actor   string
		reject  bool
		kind    domainwf.Kind
		outcome mediation.Outcome
		status  domainwf.State
	}{
		{name: "wrong actor approves", actor: "clerk", kind: domainwf.KindInvalidActor},
		{name: "wrong actor rejects", actor: "clerk", reject: true, kind: domainwf.KindInvalidActor},
		{name: "party approves", actor: "boss", outcome: mediation.OutcomeApplied, status: domainwf.StateSuccess},
		{name: "party rejects", actor: "boss", reject: true, outcome: mediation.OutcomeRejected, status: domainwf.StateRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, orders.Rules{CancelApprover: "boss", CancelApproverType: "User"})

			created, err := f.service.Create(asUser("clerk"), statusParams(orders.StatusCancelled, true))
			require.NoError(t, err)
			require.Equal(t, mediation.OutcomeDeferred, created.Outcome)
			id := created.Request.ID

			decide := f.service.Approve
			if tt.reject {
				decide = f.service.Reject
			}
			result, err := decide(asUser(tt.actor), id)

			if tt.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.kind, domainwf.KindOf(err))
				stored, getErr := f.service.Get(asUser("clerk"), id)
				require.NoError(t, getErr)
				assert.Equal(t, domainwf.StatePendingApproval, stored.Status)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.outcome, result.Outcome)
			stored, err := f.service.Get(asUser("clerk"), id)
			require.NoError(t, err)
			assert.Equal(t, tt.status, stored.Status)
			if tt.reject {
				assert.Equal(t, "boss", stored.RejectedBy)
				assert.NotNil(t, stored.RejectedOn)
			} else {
				assert.Equal(t, "boss", stored.ApprovedBy)
				assert.NotNil(t, stored.ApprovedOn)
			}
		})
	}
}

func TestApprove_RequiresPendingApproval(t *testing.T) {
	f := newServiceFixture(t, orders.Rules{})

	created, err := f.service.Create(asUser("clerk"), statusParams(orders.StatusShipped, false))
	require.NoError(t, err)

	_, err = f.service.Approve(asUser("boss"), created.Request.ID)
	assert.Equal(t, domainwf.KindValidation, domainwf.KindOf(err))

	_, err = f.service.Submit(asUser("clerk"), created.Request.ID)
	require.NoError(t, err)

	_, err = f.service.Approve(asUser("boss"), created.Request.ID)
	assert.True(t, errors.Is(err, domainwf.ErrAlreadyProcessed))

	_, err = f.service.Approve(asUser("boss"), "missing")
	assert.Equal(t, domainwf.KindNotFound, domainwf.KindOf(err))
}

func TestRevertAndHistory(t *testing.T) {
	f := newServiceFixture(t, orders.Rules{})

	created, err := f.service.Create(asUser("clerk"), statusParams(orders.StatusShipped, true))
	require.NoError(t, err)

	reverted, err := f.service.Revert(asUser("clerk"), created.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, mediation.OutcomeReverted, reverted.Outcome)

	history, err := f.service.History(asUser("clerk"), created.Request.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "CREATE", history[0].Action)
	assert.Equal(t, "SUCCEED", history[1].Action)
	assert.Equal(t, "REVERT", history[2].Action)
	assert.Equal(t, "clerk", history[2].Actor)

	_, err = f.service.History(asUser("clerk"), "missing")
	assert.Equal(t, domainwf.KindNotFound, domainwf.KindOf(err))
}

func TestSubmit_RedrivesApprovedRequest(t *testing.T) {
	f := newServiceFixture(t, orders.Rules{CancelApprover: "boss", CancelApproverType: "User"})

	created, err := f.service.Create(asUser("clerk"), statusParams(orders.StatusCancelled, true))
	require.NoError(t, err)
	require.Equal(t, mediation.OutcomeDeferred, created.Outcome)

	// approval recorded, apply never ran
	stuck, err := f.requests.GetByID(context.Background(), created.Request.ID)
	require.NoError(t, err)
	stuck.Status = domainwf.StateApproved
	stuck.ApprovedBy = "boss"
	require.NoError(t, f.requests.Update(context.Background(), stuck))

	result, err := f.service.Submit(asUser("system"), created.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, mediation.OutcomeApplied, result.Outcome)
	assert.Equal(t, domainwf.StateSuccess, result.Request.Status)

	doc, err := f.store.Load(context.Background(), orders.TypeOrder, "O-1")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, doc.(*orders.Order).OrderStatus)
}
