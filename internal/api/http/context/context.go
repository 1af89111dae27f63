// Package context carries the authenticated caller identity on request
// contexts.
package context

import (
	"context"

	"github.com/trainhub/trainhub-server/internal/model"
)

type identityKey struct{}

// Manager stores and retrieves the caller identity on a context. The identity
// is resolved once by the authentication middleware; handlers only ever read
// it back through this manager.
type Manager struct{}

// NewManager creates a new context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

var _ model.ContextManager = (*Manager)(nil)

// SetIdentityToContext returns a child context carrying the identity.
func (m *Manager) SetIdentityToContext(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentityFromContext retrieves the identity set by the authentication
// middleware. The boolean is false on contexts that never passed through it.
func (m *Manager) GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(model.Identity)
	return identity, ok
}
