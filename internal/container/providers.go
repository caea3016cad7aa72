package container

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/update-requests/internal/application/dispatcher"
	"github.com/garyjia/update-requests/internal/application/mediation"
	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/application/service"
	"github.com/garyjia/update-requests/internal/domain/event"
	"github.com/garyjia/update-requests/internal/infrastructure/codec"
	"github.com/garyjia/update-requests/internal/infrastructure/persistence"
	"github.com/garyjia/update-requests/internal/infrastructure/persistence/memory"
	"github.com/garyjia/update-requests/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/update-requests/internal/infrastructure/policy"
	"github.com/garyjia/update-requests/internal/orders"
	"github.com/garyjia/update-requests/pkg/database"
	"github.com/garyjia/update-requests/pkg/utils"
)

// StoreBundle holds the document store, the repositories and their transaction manager.
type StoreBundle struct {
	// SQL is the sqlite connection, nil for the memory driver
	SQL       *database.DB
	TxManager port.TransactionManager
	Documents port.DocumentStore
	Requests  port.UpdateRequestRepository
	History   port.HistoryRepository
}

// ProvideStores opens the configured store over catalog.
// For sqlite it also runs any pending database migrations.
func ProvideStores(cfg *DatabaseConfig, catalog *persistence.Catalog, guard persistence.Guard, logger *zap.Logger) (*StoreBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Driver {
	case DriverMemory:
		db := memory.NewDB()
		logger.Info("Using in-memory store")
		return &StoreBundle{
			TxManager: db,
			Documents: memory.NewDocumentStore(db, catalog, guard),
			Requests:  memory.NewUpdateRequestRepository(db),
			History:   memory.NewHistoryRepository(db),
		}, nil

	case DriverSQLite:
		sqlDB, err := database.New(database.Config{
			Path:            cfg.Path,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			BusyTimeout:     cfg.BusyTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}

		if err := database.NewMigrator(sqlDB, logger).Run(cfg.MigrationsDir); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		db := sqlite.NewDB(sqlDB.DB, logger)
		return &StoreBundle{
			SQL:       sqlDB,
			TxManager: db,
			Documents: sqlite.NewDocumentStore(db, catalog, guard),
			Requests:  sqlite.NewUpdateRequestRepository(db, logger),
			History:   sqlite.NewHistoryRepository(db, logger),
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// ProvidePolicy creates the policy interceptor, or nil when authorization is off.
func ProvidePolicy(cfg *PolicyConfig, logger *zap.Logger) (port.PolicyInterceptor, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	interceptor, err := policy.NewCasbinInterceptor(cfg.Config, logger)
	if err != nil {
		return nil, err
	}
	return interceptor, nil
}

// ProvideRegistry registers the mediated document types in catalog and returns
// the handler registry.
func ProvideRegistry(catalog *persistence.Catalog, rules orders.Rules) (*mediation.Registry, error) {
	registry := mediation.NewRegistry()
	if err := orders.Register(catalog, registry, rules); err != nil {
		return nil, fmt.Errorf("failed to register orders: %w", err)
	}
	return registry, nil
}

// ProvideDispatcher creates the event dispatcher with an audit log subscriber.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	d := dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger)),
	)
	d.SubscribeAll("audit-log", auditHandler(logger))
	return d, nil
}

// auditHandler writes every workflow event to the log
func auditHandler(logger *zap.Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		logger.Info("Update request event",
			zap.String("event_type", evt.Type.String()),
			zap.String("request_id", evt.RequestID),
			zap.String("target_type", evt.TargetType),
			zap.String("target_id", evt.TargetID),
			zap.String("actor", evt.Actor),
			zap.Any("payload", evt.Payload),
		)
		return nil
	}
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Stores     *StoreBundle
	Registry   *mediation.Registry
	Dispatcher dispatcher.Dispatcher
	Identity   port.IdentityProvider
	Logger     *zap.Logger
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	UpdateRequests service.UpdateRequestService
	Documents      service.DocumentService
	Engine         *mediation.Engine
}

// ProvideServices creates the mediation core and the application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Stores == nil {
		return nil, fmt.Errorf("stores are required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if deps.Identity == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	// Create logger adapter for services
	serviceLogger := utils.NewKVLogger(deps.Logger)
	payloadCodec := codec.NewJSONCodec()
	stores := deps.Stores

	validator := mediation.NewValidator(stores.Documents, stores.Requests, payloadCodec)
	lifecycle := mediation.NewLifecycle(stores.Requests, stores.History, deps.Dispatcher, serviceLogger)
	engine := mediation.NewEngine(
		stores.Documents,
		stores.Requests,
		stores.TxManager,
		payloadCodec,
		deps.Registry,
		lifecycle,
		mediation.WithIdentity(deps.Identity),
		mediation.WithLogger(serviceLogger),
	)

	return &ServiceBundle{
		UpdateRequests: service.NewUpdateRequestService(
			stores.Requests,
			stores.History,
			stores.TxManager,
			validator,
			engine,
			lifecycle,
			deps.Identity,
			serviceLogger,
		),
		Documents: service.NewDocumentService(
			stores.Documents,
			stores.TxManager,
			serviceLogger,
		),
		Engine: engine,
	}, nil
}
