// Package container provides dependency injection and lifecycle management
// for the update request service following Clean Architecture principles.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/update-requests/internal/infrastructure/policy"
	"github.com/garyjia/update-requests/internal/orders"
)

// Database drivers
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Policy configuration
	Policy PolicyConfig

	// Workflow configuration
	Workflow WorkflowConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver selects the store: sqlite or memory
	Driver string

	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits for the database lock
	BusyTimeout time.Duration

	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string
}

// PolicyConfig holds authorization settings for ordinary document writes.
type PolicyConfig struct {
	// Enabled turns on the casbin interceptor; when off every write is allowed
	Enabled bool

	policy.Config
}

// WorkflowConfig holds update request settings.
type WorkflowConfig struct {
	// SystemUser acts for work started without a caller
	SystemUser string

	// Orders configures the order domain
	Orders orders.Rules
}

// DefaultConfig returns an in-memory configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: DriverMemory,
		},
		Workflow: WorkflowConfig{
			SystemUser: "system",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Workflow.SystemUser == "" {
		return fmt.Errorf("system user is required")
	}

	return nil
}
