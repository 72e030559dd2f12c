package model

import "errors"

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrVersionConflict is returned when an optimistic update lost a race.
var ErrVersionConflict = errors.New("version conflict")

// Lifecycle errors. Callers match them with errors.Is.
var (
	ErrRateLimited            = errors.New("rate limited")
	ErrIdentityExchangeFailed = errors.New("identity exchange failed")
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrInvalidToken           = errors.New("invalid token")
	ErrRevoked                = errors.New("token revoked")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrStoreUnavailable       = errors.New("session store unavailable")
)

// Integrity errors. These are never retried.
var (
	ErrSigning      = errors.New("signing failed")
	ErrTamperedData = errors.New("tampered data")
	ErrLowEntropy   = errors.New("random source produced low entropy output")
)

// Verification errors reported by the signer.
var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrExpired          = errors.New("token expired")
	ErrIssuerMismatch   = errors.New("issuer mismatch")
	ErrAudienceMismatch = errors.New("audience mismatch")
	ErrMalformedToken   = errors.New("malformed token")
)
