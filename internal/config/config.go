package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/update-requests/internal/infrastructure/policy"
)

// EnvPrefix prefixes every environment override, e.g. UPDREQ_SERVER_PORT
const EnvPrefix = "UPDREQ"

// Database drivers
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite or memory
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
	MigrationsDir   string        `mapstructure:"migrations_dir"` // empty runs the embedded migrations
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// PolicyConfig controls authorization of ordinary document writes
type PolicyConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	PolicyPath string        `mapstructure:"policy_path"`
	Rules      []policy.Rule `mapstructure:"rules"`
	Roles      []policy.Role `mapstructure:"roles"`
}

// WorkflowConfig holds update request settings
type WorkflowConfig struct {
	// IdentityHeader names the HTTP header carrying the acting user
	IdentityHeader string `mapstructure:"identity_header"`
	// SystemUser acts for work started without a caller
	SystemUser string `mapstructure:"system_user"`
	// OrderCancelApprover must approve order cancellations; empty applies them directly
	OrderCancelApprover     string `mapstructure:"order_cancel_approver"`
	OrderCancelApproverType string `mapstructure:"order_cancel_approver_type"`
}

// Load loads configuration from an optional .env file, an optional YAML file and
// the environment, in increasing precedence.
func Load(configPath string) (*Config, error) {
	return LoadWithEnvFile(configPath, ".env")
}

// LoadWithEnvFile is Load with an explicit .env path. A missing env file is not an error.
func LoadWithEnvFile(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := gotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/update_requests.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)
	v.SetDefault("database.migrations_dir", "")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Policy defaults
	v.SetDefault("policy.enabled", false)
	v.SetDefault("policy.policy_path", "")

	// Workflow defaults
	v.SetDefault("workflow.identity_header", "X-User")
	v.SetDefault("workflow.system_user", "system")
	v.SetDefault("workflow.order_cancel_approver", "")
	v.SetDefault("workflow.order_cancel_approver_type", "User")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverMemory, c.Database.Driver)
	}

	if c.Workflow.IdentityHeader == "" {
		return fmt.Errorf("workflow.identity_header is required")
	}
	if c.Workflow.SystemUser == "" {
		return fmt.Errorf("workflow.system_user is required")
	}

	if c.Policy.Enabled && c.Policy.PolicyPath == "" && len(c.Policy.Rules) == 0 {
		return fmt.Errorf("policy.enabled requires policy.policy_path or policy.rules")
	}
	for i, rule := range c.Policy.Rules {
		if rule.Subject == "" || rule.Object == "" || rule.Action == "" {
			return fmt.Errorf("policy.rules[%d] needs subject, object and action", i)
		}
	}

	return nil
}
