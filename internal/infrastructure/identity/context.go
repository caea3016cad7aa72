// Package identity carries the acting user through a request context.
package identity

import (
	"context"

	"github.com/garyjia/update-requests/internal/application/port"
)

type userKey struct{}

// WithUser returns a context acting as user
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom returns the user stored in ctx
func UserFrom(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(userKey{}).(string)
	return user, ok && user != ""
}

// ContextProvider resolves the current user from the context, falling back to a
// fixed name for work started without a caller, such as startup seeding.
type ContextProvider struct {
	fallback string
}

// NewContextProvider creates a provider. fallback names the user of contexts without one.
func NewContextProvider(fallback string) *ContextProvider {
	return &ContextProvider{fallback: fallback}
}

func (p *ContextProvider) CurrentUser(ctx context.Context) string {
	if user, ok := UserFrom(ctx); ok {
		return user
	}
	return p.fallback
}

// Verify interface compliance
var _ port.IdentityProvider = (*ContextProvider)(nil)
