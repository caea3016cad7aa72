// Package policy authorizes ordinary document writes with casbin.
package policy

import (
	"context"
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"go.uber.org/zap"

	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/domain/workflow"
)

// modelText is an RBAC model where "*" matches any document type or action
const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// Rule allows Subject, a user or role, to perform Action on Object, a document type
type Rule struct {
	Subject string `mapstructure:"subject"`
	Object  string `mapstructure:"object"`
	Action  string `mapstructure:"action"`
}

// Role grants Role to User
type Role struct {
	User string `mapstructure:"user"`
	Role string `mapstructure:"role"`
}

// Config configures the casbin enforcer. PolicyPath, when set, names a casbin
// CSV policy file loaded in addition to Rules and Roles.
type Config struct {
	PolicyPath string
	Rules      []Rule
	Roles      []Role
}

// CasbinInterceptor implements port.PolicyInterceptor
type CasbinInterceptor struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
	logger   *zap.Logger
}

// NewCasbinInterceptor builds an enforcer from cfg
func NewCasbinInterceptor(cfg Config, logger *zap.Logger) (*CasbinInterceptor, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("policy: failed to parse model: %w", err)
	}

	var enf *casbin.Enforcer
	if cfg.PolicyPath != "" {
		enf, err = casbin.NewEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		enf, err = casbin.NewEnforcer(m)
	}
	if err != nil {
		return nil, fmt.Errorf("policy: failed to initialize enforcer: %w", err)
	}

	for _, rule := range cfg.Rules {
		if _, err := enf.AddPolicy(rule.Subject, rule.Object, rule.Action); err != nil {
			return nil, fmt.Errorf("policy: failed to add rule %v: %w", rule, err)
		}
	}
	for _, role := range cfg.Roles {
		if _, err := enf.AddGroupingPolicy(role.User, role.Role); err != nil {
			return nil, fmt.Errorf("policy: failed to add role %v: %w", role, err)
		}
	}

	logger.Info("Policy enforcer initialized",
		zap.Int("rules", len(cfg.Rules)),
		zap.Int("roles", len(cfg.Roles)),
		zap.String("policy_path", cfg.PolicyPath),
	)

	return &CasbinInterceptor{enforcer: enf, logger: logger}, nil
}

// Authorize returns an AuthorizationError when actor may not perform action on docType
func (c *CasbinInterceptor) Authorize(ctx context.Context, actor, docType, action string) error {
	c.mu.RLock()
	allowed, err := c.enforcer.Enforce(actor, docType, action)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("policy: enforce failed: %w", err)
	}
	if !allowed {
		c.logger.Warn("Document write denied",
			zap.String("actor", actor),
			zap.String("doc_type", docType),
			zap.String("action", action),
		)
		return workflow.NewError(workflow.KindAuthorization, "%s may not %s %s", actor, action, docType)
	}
	return nil
}

// Allow adds a rule at runtime
func (c *CasbinInterceptor) Allow(rule Rule) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.enforcer.AddPolicy(rule.Subject, rule.Object, rule.Action); err != nil {
		return fmt.Errorf("policy: failed to add rule %v: %w", rule, err)
	}
	return nil
}

// Verify interface compliance
var _ port.PolicyInterceptor = (*CasbinInterceptor)(nil)
