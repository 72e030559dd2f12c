package model

import "context"

// KeySource loads named key material (PEM files, secrets).
type KeySource interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}
