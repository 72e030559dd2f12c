package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/tokenkeeper/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

// DBTX is the subset of database/sql used by repositories.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const userColumns = `id, external_id, email, name, picture_url, role, active, last_login_at, version, created_at, updated_at`

type UserRepository struct {
	db  DBTX
	now func() time.Time
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{
		db:  db,
		now: time.Now,
	}
}

// FindOrCreateByExternalID returns the user linked to identity, creating it
// with defaults on first sight. Profile fields are refreshed from the
// identity using an optimistic version check that is retried once.
func (r *UserRepository) FindOrCreateByExternalID(ctx context.Context, identity model.Identity, defaults model.UserDefaults) (model.User, error) {
	if identity.Subject == "" {
		return model.User{}, fmt.Errorf("external id is empty")
	}

	user, err := r.insert(ctx, identity, defaults)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		user, err = r.getByExternalID(ctx, identity.Subject)
		if err != nil {
			return model.User{}, err
		}

		if !profileChanged(user, identity) {
			return user, nil
		}

		updated, err := r.updateProfile(ctx, user, identity)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, model.ErrVersionConflict) {
			return model.User{}, err
		}
	}

	return model.User{}, fmt.Errorf("failed to update user profile: %w", model.ErrVersionConflict)
}

// TouchLastLogin records a successful sign-in.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET last_login_at = $1, updated_at = $1 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to touch last login: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to touch last login: %w", err)
	}
	if n == 0 {
		return model.ErrNotFound
	}

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

func (r *UserRepository) getByExternalID(ctx context.Context, externalID string) (model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE external_id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by external id: %w", err)
	}

	return user, nil
}

// insert returns model.ErrNotFound if a user with the same external id exists.
func (r *UserRepository) insert(ctx context.Context, identity model.Identity, defaults model.UserDefaults) (model.User, error) {
	query := `INSERT INTO users (id, external_id, email, name, picture_url, role, active, version, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, TRUE, 1, $7, $7)
			  ON CONFLICT (external_id) DO NOTHING
			  RETURNING ` + userColumns

	now := r.now().UTC()
	user, err := scanUser(r.db.QueryRowContext(ctx, query,
		uuid.New(), identity.Subject, identity.Email, identity.Name, identity.PictureURL, defaults.Role, now,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (r *UserRepository) updateProfile(ctx context.Context, user model.User, identity model.Identity) (model.User, error) {
	query := `UPDATE users SET email = $1, name = $2, picture_url = $3, version = version + 1, updated_at = $4
			  WHERE id = $5 AND version = $6
			  RETURNING ` + userColumns

	updated, err := scanUser(r.db.QueryRowContext(ctx, query,
		identity.Email, identity.Name, identity.PictureURL, r.now().UTC(), user.ID, user.Version,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrVersionConflict
		}
		return model.User{}, fmt.Errorf("failed to update user: %w", err)
	}

	return updated, nil
}

func profileChanged(user model.User, identity model.Identity) bool {
	return user.Email != identity.Email || user.Name != identity.Name || user.PictureURL != identity.PictureURL
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		user      model.User
		lastLogin sql.NullTime
	)

	err := row.Scan(
		&user.ID, &user.ExternalID, &user.Email, &user.Name, &user.PictureURL, &user.Role, &user.Active,
		&lastLogin, &user.Version, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return model.User{}, err
	}

	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLoginAt = &t
	}

	return user, nil
}
