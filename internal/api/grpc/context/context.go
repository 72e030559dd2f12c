package context

import (
	"context"

	"github.com/dtroode/tokenkeeper/internal/model"
)

var _ model.ContextManager = (*Manager)(nil)

// principalKey is the context key under which the authenticated principal is stored.
type principalKey struct{}

// Manager represents a gRPC context manager for principal operations.
// The principal lives in a private context value so clients cannot forge it
// through request metadata.
type Manager struct{}

// NewManager creates a new gRPC context manager instance.
//
// Returns a pointer to the newly created Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetPrincipalToContext attaches the principal resolved from a validated
// access token.
//
// Parameters:
//   - ctx: The gRPC context
//   - principal: The authenticated principal
//
// Returns a new context carrying the principal.
func (m *Manager) SetPrincipalToContext(ctx context.Context, principal model.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// GetPrincipalFromContext retrieves the principal set by the authentication
// interceptor.
//
// Returns the principal and a boolean indicating if it was found.
func (m *Manager) GetPrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(model.Principal)
	if !ok {
		return model.Principal{}, false
	}
	return principal, true
}
