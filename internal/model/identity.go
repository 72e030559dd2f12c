package model

import "context"

// IdentityProvider trades an authorization code for verified identity claims.
type IdentityProvider interface {
	Exchange(ctx context.Context, code, redirectURI string) (Identity, error)
}

// Identity holds provider-scoped claims for the duration of one exchange.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	PictureURL    string
}
