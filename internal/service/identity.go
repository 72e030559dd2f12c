package service

import (
	"context"
	"fmt"

	"github.com/dtroode/tokenkeeper/internal/logger"
	"github.com/dtroode/tokenkeeper/internal/model"
)

// IdentityExchange resolves an authorization code to an internal user.
type IdentityExchange struct {
	provider model.IdentityProvider
	users    model.UserStore
	defaults model.UserDefaults
	logger   *logger.Logger
}

func NewIdentityExchange(provider model.IdentityProvider, users model.UserStore, defaults model.UserDefaults, logger *logger.Logger) *IdentityExchange {
	return &IdentityExchange{
		provider: provider,
		users:    users,
		defaults: defaults,
		logger:   logger,
	}
}

// Exchange trades code with the provider, then finds or creates the user
// and records the login. Every failure wraps model.ErrIdentityExchangeFailed.
func (e *IdentityExchange) Exchange(ctx context.Context, code, redirectURI string) (model.User, error) {
	identity, err := e.provider.Exchange(ctx, code, redirectURI)
	if err != nil {
		e.logger.Warn("Identity exchange: provider exchange failed",
			"error", err.Error())
		return model.User{}, fmt.Errorf("%w: %w", model.ErrIdentityExchangeFailed, err)
	}

	user, err := e.users.FindOrCreateByExternalID(ctx, identity, e.defaults)
	if err != nil {
		e.logger.Error("Identity exchange: failed to resolve user",
			"external_id", identity.Subject,
			"error", err.Error())
		return model.User{}, fmt.Errorf("%w: resolve user: %w", model.ErrIdentityExchangeFailed, err)
	}

	if !user.Active {
		e.logger.Info("Identity exchange: inactive user rejected",
			"user_id", user.ID)
		return model.User{}, fmt.Errorf("%w: user is inactive", model.ErrIdentityExchangeFailed)
	}

	if err := e.users.TouchLastLogin(ctx, user.ID); err != nil {
		e.logger.Error("Identity exchange: failed to touch last login",
			"user_id", user.ID,
			"error", err.Error())
		return model.User{}, fmt.Errorf("%w: touch last login: %w", model.ErrIdentityExchangeFailed, err)
	}

	e.logger.Debug("Identity exchange: user resolved",
		"user_id", user.ID)

	return user, nil
}
