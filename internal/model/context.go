package model

import (
	"context"

	"github.com/google/uuid"
)

// ContextManager attaches the authenticated principal to request contexts.
type ContextManager interface {
	SetPrincipalToContext(ctx context.Context, principal Principal) context.Context
	GetPrincipalFromContext(ctx context.Context) (Principal, bool)
}

// Principal is the identity resolved from a validated access token.
type Principal struct {
	UserID  uuid.UUID
	Role    string
	TokenID string
}
