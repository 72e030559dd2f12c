package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionStore is the shared TTL store behind refresh tokens, the blacklist
// and rate-limit counters. Every method is a single atomic round trip.
type SessionStore interface {
	PutSession(ctx context.Context, token string, session Session, ttl time.Duration) error
	GetSession(ctx context.Context, token string) (StoredSession, error)
	DeleteSession(ctx context.Context, token string) error
	RotateSession(ctx context.Context, rotation Rotation) (bool, error)
	RevokeSession(ctx context.Context, token string, blacklistTTL time.Duration) error
	RevokeSubject(ctx context.Context, subject uuid.UUID, blacklistTTL time.Duration) error
	Blacklist(ctx context.Context, token string, subject uuid.UUID, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	ConsumeRateLimit(ctx context.Context, key string, window time.Duration, maxAttempts int) (bool, error)
}

// Session is the server-side record bound to one refresh token.
type Session struct {
	ID         uuid.UUID `json:"id"`
	Subject    uuid.UUID `json:"sub"`
	Role       string    `json:"role"`
	Generation int       `json:"gen"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// StoredSession is a decrypted session plus the exact ciphertext it was read
// from, used as the compare-and-swap witness during rotation.
type StoredSession struct {
	Session
	Sealed []byte
}

// Rotation replaces OldToken with NewToken if the stored ciphertext still
// equals Expected.
type Rotation struct {
	OldToken     string
	Expected     []byte
	NewToken     string
	Next         Session
	TTL          time.Duration
	BlacklistTTL time.Duration
}
