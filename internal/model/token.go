package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenTypeAccess marks signed access tokens.
const TokenTypeAccess = "access"

// TokenCodec mints and parses credentials.
type TokenCodec interface {
	MintAccessToken(user User) (string, AccessClaims, error)
	MintRefreshToken() (string, error)
	ParseAccessToken(token string) (AccessClaims, error)
	AccessTTL() time.Duration
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	ID        string
	Subject   uuid.UUID
	Role      string
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair is returned by authenticate and refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
