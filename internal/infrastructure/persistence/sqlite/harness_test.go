package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/entity"
	"github.com/garyjia/update-requests/internal/domain/workflow"
	"github.com/garyjia/update-requests/internal/infrastructure/persistence"
	"github.com/garyjia/update-requests/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/update-requests/pkg/database"
)

const typeNote = "Note"

type note struct {
	document.Base
	Title string `json:"title"`
}

func (n *note) DocType() string { return typeNote }

type fixture struct {
	ctx      context.Context
	db       *sqlite.DB
	catalog  *persistence.Catalog
	store    *sqlite.DocumentStore
	requests *sqlite.UpdateRequestRepository
	history  *sqlite.HistoryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	raw, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 4,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	require.NoError(t, database.NewMigrator(raw, logger).Run(""))

	db := sqlite.NewDB(raw.DB, logger)
	catalog := persistence.NewCatalog()
	require.NoError(t, catalog.Register(document.Meta{
		Name:          typeNote,
		IsSubmittable: true,
		New:           func() document.Document { return &note{} },
	}))

	return &fixture{
		ctx:      context.Background(),
		db:       db,
		catalog:  catalog,
		store:    sqlite.NewDocumentStore(db, catalog, persistence.Guard{}),
		requests: sqlite.NewUpdateRequestRepository(db, logger),
		history:  sqlite.NewHistoryRepository(db, logger),
	}
}

func pendingRequest(targetID string) *entity.UpdateRequest {
	return &entity.UpdateRequest{
		Status:     workflow.StatePending,
		TargetType: typeNote,
		TargetID:   targetID,
		FieldName:  "title",
		ChangeKind: entity.ChangeKindFieldUpdate,
		Payload:    `{"title":"new"}`,
	}
}
