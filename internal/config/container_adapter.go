package config

import (
	"github.com/garyjia/update-requests/internal/container"
	"github.com/garyjia/update-requests/internal/infrastructure/policy"
	"github.com/garyjia/update-requests/internal/orders"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Driver:          c.Database.Driver,
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Policy: container.PolicyConfig{
			Enabled: c.Policy.Enabled,
			Config: policy.Config{
				PolicyPath: c.Policy.PolicyPath,
				Rules:      c.Policy.Rules,
				Roles:      c.Policy.Roles,
			},
		},
		Workflow: container.WorkflowConfig{
			SystemUser: c.Workflow.SystemUser,
			Orders: orders.Rules{
				CancelApprover:     c.Workflow.OrderCancelApprover,
				CancelApproverType: c.Workflow.OrderCancelApproverType,
			},
		},
	}
}
