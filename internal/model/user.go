package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore is the external user directory.
type UserStore interface {
	FindOrCreateByExternalID(ctx context.Context, identity Identity, defaults UserDefaults) (User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
}

// User is an internal user record owned by the directory.
type User struct {
	ID          uuid.UUID
	ExternalID  string
	Email       string
	Name        string
	PictureURL  string
	Role        string
	Active      bool
	LastLoginAt *time.Time
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserDefaults are applied when a user is created on first login.
type UserDefaults struct {
	Role string
}
