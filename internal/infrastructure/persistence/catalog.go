// Package persistence holds what the document stores share: the catalog of
// registered document types and the authorization guard for ordinary writes.
package persistence

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/garyjia/update-requests/internal/application/port"
	"github.com/garyjia/update-requests/internal/domain/document"
	"github.com/garyjia/update-requests/internal/domain/workflow"
)

// Catalog holds the metadata of every registered document type
type Catalog struct {
	mu    sync.RWMutex
	metas map[string]document.Meta
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{metas: make(map[string]document.Meta)}
}

// Register adds a document type
func (c *Catalog) Register(meta document.Meta) error {
	if meta.Name == "" {
		return fmt.Errorf("document type name is required")
	}
	if meta.New == nil {
		return fmt.Errorf("document type %s has no constructor", meta.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.metas[meta.Name]; exists {
		return fmt.Errorf("document type %s already registered", meta.Name)
	}
	c.metas[meta.Name] = meta
	return nil
}

// Meta returns the metadata of a registered type
func (c *Catalog) Meta(docType string) (document.Meta, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.metas[docType]
	if !ok {
		return document.Meta{}, workflow.NewNotFoundError("Document type", docType)
	}
	return meta, nil
}

// New returns an empty document of a registered type
func (c *Catalog) New(docType string) (document.Document, error) {
	meta, err := c.Meta(docType)
	if err != nil {
		return nil, err
	}
	return meta.New(), nil
}

// Types lists the registered type names in order
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.metas))
	for name := range c.metas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Guard authorizes ordinary document writes
type Guard struct {
	Policy   port.PolicyInterceptor
	Identity port.IdentityProvider
}

// Check authorizes action on docType for the current user unless bypass is set.
// A Guard without a policy allows everything.
func (g Guard) Check(ctx context.Context, docType, action string, bypass bool) error {
	if bypass || g.Policy == nil {
		return nil
	}
	actor := ""
	if g.Identity != nil {
		actor = g.Identity.CurrentUser(ctx)
	}
	return g.Policy.Authorize(ctx, actor, docType, action)
}
