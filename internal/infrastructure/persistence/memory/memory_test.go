package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/entity"
	"github.com/garyjia/update-requests/internal/domain/workflow"
	"github.com/garyjia/update-requests/internal/infrastructure/persistence"
	"github.com/garyjia/update-requests/internal/infrastructure/persistence/memory"
)

type note struct {
	document.Base
	Title string `json:"title"`
}

func (n *note) DocType() string { return "Note" }

func newStore(t *testing.T) (*memory.DB, *memory.DocumentStore) {
	t.Helper()
	catalog := persistence.NewCatalog()
	require.NoError(t, catalog.Register(document.Meta{
		Name: "Note",
		New:  func() document.Document { return &note{} },
	}))
	db := memory.NewDB()
	return db, memory.NewDocumentStore(db, catalog, persistence.Guard{})
}

func pendingRequest(targetID string) *entity.UpdateRequest {
	return &entity.UpdateRequest{
		Status:     workflow.StatePending,
		TargetType: "Note",
		TargetID:   targetID,
		FieldName:  "title",
		ChangeKind: entity.ChangeKindFieldUpdate,
	}
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db, store := newStore(t)
	requests := memory.NewUpdateRequestRepository(db)

	boom := errors.New("boom")
	err := db.WithTransaction(ctx, func(txCtx context.Context) error {
		require.NoError(t, store.Create(txCtx, &note{Base: document.Base{ID: "N-1"}}, false))
		require.NoError(t, requests.Create(txCtx, pendingRequest("N-1")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := store.Exists(ctx, "Note", "N-1")
	require.NoError(t, err)
	assert.False(t, exists)

	open, err := requests.HasOpenRequest(ctx, "Note", "N-1")
	require.NoError(t, err)
	assert.False(t, open)
}

func TestWithTransaction_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	db, store := newStore(t)

	assert.Panics(t, func() {
		_ = db.WithTransaction(ctx, func(txCtx context.Context) error {
			_ = store.Create(txCtx, &note{Base: document.Base{ID: "N-1"}}, false)
			panic("handler blew up")
		})
	})

	exists, err := store.Exists(ctx, "Note", "N-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDocumentStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	_, store := newStore(t)

	n := &note{Title: "draft"}
	require.NoError(t, store.Create(ctx, n, false))
	n.Title = "changed in memory only"

	doc, err := store.Load(ctx, "Note", n.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft", doc.(*note).Title)

	err = store.Create(ctx, &note{Base: document.Base{ID: n.ID}}, false)
	assert.Equal(t, workflow.KindConflict, workflow.KindOf(err))
}

func TestUpdateRequestRepository_OpenConstraintAndVersion(t *testing.T) {
	ctx := context.Background()
	db := memory.NewDB()
	requests := memory.NewUpdateRequestRepository(db)

	req := pendingRequest("N-1")
	require.NoError(t, requests.Create(ctx, req))
	assert.EqualValues(t, 1, req.Version)

	err := requests.Create(ctx, pendingRequest("N-1"))
	assert.True(t, errors.Is(err, workflow.ErrPendingUpdateRequest))

	stale, err := requests.GetByID(ctx, req.ID)
	require.NoError(t, err)

	req.Status = workflow.StateSuccess
	require.NoError(t, requests.Update(ctx, req))
	assert.EqualValues(t, 2, req.Version)

	stale.Status = workflow.StateFailed
	assert.True(t, errors.Is(requests.Update(ctx, stale), workflow.ErrConflict))

	require.NoError(t, requests.Create(ctx, pendingRequest("N-1")))

	listed, err := requests.ListSuccessful(ctx, "Note", "N-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, req.ID, listed[0].ID)
}

func TestHistoryRepository_FiltersByRequest(t *testing.T) {
	ctx := context.Background()
	history := memory.NewHistoryRepository(memory.NewDB())

	require.NoError(t, history.Create(ctx, &entity.HistoryEntry{RequestID: "a", Action: "CREATE"}))
	require.NoError(t, history.Create(ctx, &entity.HistoryEntry{RequestID: "b", Action: "CREATE"}))
	require.NoError(t, history.Create(ctx, &entity.HistoryEntry{RequestID: "a", Action: "SUCCEED"}))

	entries, err := history.GetByRequestID(ctx, "a")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "SUCCEED", entries[1].Action)
	assert.EqualValues(t, 3, entries[1].ID)
}
