package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/update-requests/internal/application/dispatcher"
	"github.com/garyjia/update-requests/internal/application/mediation"
	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/infrastructure/identity"
	"github.com/garyjia/update-requests/internal/infrastructure/persistence"
)

// Container manages all application dependencies and lifecycle.
// It follows Clean Architecture principles with ordered initialization
// and reverse-order teardown.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure
	identity port.IdentityProvider
	policy   port.PolicyInterceptor
	catalog  *persistence.Catalog
	stores   *StoreBundle

	// Application
	registry   *mediation.Registry
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components.
// Components are initialized in dependency order:
// 1. Policy interceptor and identity
// 2. Document catalog and handler registry
// 3. Stores and repositories
// 4. Event dispatcher
// 5. Mediation engine and application services
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	// Step 1: Initialize policy and identity
	if err := c.initPolicy(); err != nil {
		return fmt.Errorf("failed to initialize policy: %w", err)
	}
	c.logger.Info("Policy initialized", zap.Bool("enabled", c.policy != nil))

	// Step 2: Register document types and handlers
	if err := c.initRegistry(); err != nil {
		return fmt.Errorf("failed to initialize registry: %w", err)
	}
	c.logger.Info("Document types registered", zap.Strings("types", c.catalog.Types()))

	// Step 3: Initialize stores
	if err := c.initStores(); err != nil {
		return fmt.Errorf("failed to initialize stores: %w", err)
	}
	c.logger.Info("Stores initialized", zap.String("driver", c.config.Database.Driver))

	// Step 4: Initialize dispatcher
	if err := c.initDispatcher(); err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.logger.Info("Dispatcher initialized")

	// Step 5: Initialize engine and services
	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Step 1: Services hold no resources (reverse of step 5)
	c.services = nil

	// Step 2: Close dispatcher, waiting for async handlers (reverse of step 4)
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 3: Close database (reverse of step 3)
	if c.stores != nil && c.stores.SQL != nil {
		if err := c.stores.SQL.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Healthy reports whether every component is up.
func (c *Container) Healthy() bool {
	return c.Health().Overall
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, healthy bool, message string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: message}
		if !healthy {
			status.Overall = false
		}
	}

	// Check database
	switch {
	case c.stores == nil:
		set("database", false, "not initialized")
	case c.stores.SQL != nil:
		if err := c.stores.SQL.Ping(); err != nil {
			set("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("database", true, "")
		}
	default:
		set("database", true, "in-memory")
	}

	// Check dispatcher
	if c.dispatcher != nil {
		set("dispatcher", true, "")
	} else {
		set("dispatcher", false, "not initialized")
	}

	// Check services
	if c.services != nil {
		set("services", true, "")
	} else {
		set("services", false, "not initialized")
	}

	return status
}

func (c *Container) initPolicy() error {
	interceptor, err := ProvidePolicy(&c.config.Policy, c.logger)
	if err != nil {
		return err
	}
	c.policy = interceptor
	c.identity = identity.NewContextProvider(c.config.Workflow.SystemUser)
	return nil
}

func (c *Container) initRegistry() error {
	c.catalog = persistence.NewCatalog()
	registry, err := ProvideRegistry(c.catalog, c.config.Workflow.Orders)
	if err != nil {
		return err
	}
	c.registry = registry
	return nil
}

func (c *Container) initStores() error {
	guard := persistence.Guard{Policy: c.policy, Identity: c.identity}
	stores, err := ProvideStores(&c.config.Database, c.catalog, guard, c.logger)
	if err != nil {
		return err
	}
	c.stores = stores
	return nil
}

func (c *Container) initDispatcher() error {
	d, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = d
	return nil
}

func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Stores:     c.stores,
		Registry:   c.registry,
		Dispatcher: c.dispatcher,
		Identity:   c.identity,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

// Services returns the application services.
func (c *Container) Services() *ServiceBundle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.services
}

// Stores returns the stores and repositories.
func (c *Container) Stores() *StoreBundle {
	return c.stores
}

// Registry returns the handler registry, for registering additional handlers.
func (c *Container) Registry() *mediation.Registry {
	return c.registry
}

// Catalog returns the document type catalog.
func (c *Container) Catalog() *persistence.Catalog {
	return c.catalog
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Logger returns the logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the configuration.
func (c *Container) Config() *Config {
	return c.config
}
