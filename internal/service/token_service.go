package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/tokenkeeper/internal/logger"
	"github.com/dtroode/tokenkeeper/internal/model"
)

// IdentityResolver turns an authorization code into an active user.
type IdentityResolver interface {
	Exchange(ctx context.Context, code, redirectURI string) (model.User, error)
}

// Defaults for TokenServiceConfig zero values.
const (
	DefaultRefreshTTL      = 30 * 24 * time.Hour
	DefaultClockSkew       = 5 * time.Second
	DefaultStoreTimeout    = 250 * time.Millisecond
	DefaultRateLimitWindow = time.Minute
	DefaultMaxAttempts     = 10
)

// TokenServiceConfig holds lifetimes, limits and the store failure policy.
type TokenServiceConfig struct {
	RefreshTTL   time.Duration
	ClockSkew    time.Duration
	StoreTimeout time.Duration
	// FailOpen accepts access tokens whose blacklist entry cannot be read.
	FailOpen             bool
	RateLimitWindow      time.Duration
	RateLimitMaxAttempts int
}

func (c TokenServiceConfig) withDefaults() TokenServiceConfig {
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = DefaultRefreshTTL
	}
	if c.ClockSkew <= 0 {
		c.ClockSkew = DefaultClockSkew
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = DefaultStoreTimeout
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = DefaultRateLimitWindow
	}
	if c.RateLimitMaxAttempts <= 0 {
		c.RateLimitMaxAttempts = DefaultMaxAttempts
	}
	return c
}

// TokenService drives issuance, validation, rotation and revocation of
// credentials. It keeps no mutable state; all coordination happens in the
// session store.
type TokenService struct {
	identity IdentityResolver
	codec    model.TokenCodec
	store    model.SessionStore
	users    model.UserStore
	cfg      TokenServiceConfig
	logger   *logger.Logger
	now      func() time.Time
}

func NewTokenService(
	identity IdentityResolver,
	codec model.TokenCodec,
	store model.SessionStore,
	users model.UserStore,
	cfg TokenServiceConfig,
	logger *logger.Logger,
) *TokenService {
	return &TokenService{
		identity: identity,
		codec:    codec,
		store:    store,
		users:    users,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// Authenticate exchanges an authorization code for a fresh token pair.
// clientKey identifies the caller for rate limiting.
func (s *TokenService) Authenticate(ctx context.Context, code, redirectURI, clientKey string) (model.TokenPair, error) {
	allowed, err := s.store.ConsumeRateLimit(ctx, clientKey, s.cfg.RateLimitWindow, s.cfg.RateLimitMaxAttempts)
	if err != nil {
		s.logger.Error("Auth service: failed to consume rate limit",
			"client_key", clientKey,
			"error", err.Error())
		return model.TokenPair{}, fmt.Errorf("consume rate limit: %w", err)
	}
	if !allowed {
		s.logger.Info("Auth service: authentication rate limited",
			"client_key", clientKey)
		return model.TokenPair{}, model.ErrRateLimited
	}

	user, err := s.identity.Exchange(ctx, code, redirectURI)
	if err != nil {
		s.logger.Warn("Auth service: identity exchange failed",
			"client_key", clientKey,
			"error", err.Error())
		return model.TokenPair{}, fmt.Errorf("%w: %w", model.ErrAuthenticationFailed, err)
	}

	now := s.now()
	session := model.Session{
		ID:        uuid.New(),
		Subject:   user.ID,
		Role:      user.Role,
		CreatedAt: now.UTC(),
		ExpiresAt: now.Add(s.cfg.RefreshTTL).UTC(),
	}

	pair, err := s.mintPair(user, session)
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := s.store.PutSession(ctx, pair.RefreshToken, session, s.cfg.RefreshTTL); err != nil {
		s.logger.Error("Auth service: failed to store session",
			"user_id", user.ID,
			"error", err.Error())
		return model.TokenPair{}, fmt.Errorf("store session: %w", err)
	}

	s.logger.Info("Auth service: user authenticated",
		"user_id", user.ID,
		"session_id", session.ID)

	return pair, nil
}

// ValidateAccessToken verifies token and checks it against the blacklist.
// Every failure wraps model.ErrUnauthorized with either model.ErrInvalidToken
// or model.ErrRevoked; the detailed reason is only logged.
func (s *TokenService) ValidateAccessToken(ctx context.Context, token string) (model.AccessClaims, error) {
	claims, err := s.codec.ParseAccessToken(token)
	if err != nil {
		s.logger.Debug("Auth service: access token rejected",
			"token", logger.Redact(token),
			"error", err.Error())
		return model.AccessClaims{}, unauthorized(model.ErrInvalidToken)
	}

	sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	revoked, err := s.store.IsBlacklisted(sctx, claims.ID)
	if err != nil {
		if s.cfg.FailOpen {
			s.logger.Warn("Auth service: blacklist unavailable, accepting access token",
				"user_id", claims.Subject,
				"jti", claims.ID,
				"error", err.Error())
			return claims, nil
		}
		s.logger.Error("Auth service: blacklist unavailable, rejecting access token",
			"user_id", claims.Subject,
			"jti", claims.ID,
			"error", err.Error())
		return model.AccessClaims{}, unauthorized(model.ErrInvalidToken)
	}
	if revoked {
		s.logger.Debug("Auth service: revoked access token presented",
			"user_id", claims.Subject,
			"jti", claims.ID)
		return model.AccessClaims{}, unauthorized(model.ErrRevoked)
	}

	return claims, nil
}

// Refresh rotates refreshToken into a new pair. Exactly one of several
// concurrent callers presenting the same token succeeds; the others get
// model.ErrInvalidToken and must re-authenticate.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	if refreshToken == "" {
		return model.TokenPair{}, model.ErrInvalidToken
	}

	stored, err := s.store.GetSession(ctx, refreshToken)
	if err != nil {
		return model.TokenPair{}, s.lookupFailure(ctx, refreshToken, err)
	}

	user, err := s.users.GetByID(ctx, stored.Subject)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		s.logger.Error("Auth service: failed to load user for refresh",
			"user_id", stored.Subject,
			"error", err.Error())
		return model.TokenPair{}, fmt.Errorf("load user: %w", err)
	}
	if err != nil || !user.Active {
		s.logger.Info("Auth service: refresh for missing or inactive user, revoking session",
			"user_id", stored.Subject,
			"session_id", stored.ID)
		if rerr := s.store.RevokeSession(ctx, refreshToken, s.refreshBlacklistTTL()); rerr != nil {
			s.logger.Error("Auth service: failed to revoke session",
				"session_id", stored.ID,
				"error", rerr.Error())
		}
		return model.TokenPair{}, model.ErrInvalidToken
	}

	now := s.now()
	next := stored.Session
	next.Role = user.Role
	next.Generation++
	next.CreatedAt = now.UTC()
	next.ExpiresAt = now.Add(s.cfg.RefreshTTL).UTC()

	pair, err := s.mintPair(user, next)
	if err != nil {
		return model.TokenPair{}, err
	}

	swapped, err := s.store.RotateSession(ctx, model.Rotation{
		OldToken:     refreshToken,
		Expected:     stored.Sealed,
		NewToken:     pair.RefreshToken,
		Next:         next,
		TTL:          s.cfg.RefreshTTL,
		BlacklistTTL: s.refreshBlacklistTTL(),
	})
	if err != nil {
		s.logger.Error("Auth service: failed to rotate session",
			"session_id", stored.ID,
			"error", err.Error())
		return model.TokenPair{}, fmt.Errorf("rotate session: %w", err)
	}
	if !swapped {
		s.logger.Warn("Auth service: refresh token rotated concurrently, possible theft",
			"user_id", stored.Subject,
			"session_id", stored.ID,
			"token", logger.Redact(refreshToken))
		return model.TokenPair{}, model.ErrInvalidToken
	}

	s.logger.Debug("Auth service: session rotated",
		"user_id", user.ID,
		"session_id", next.ID,
		"generation", next.Generation)

	return pair, nil
}

// Revoke deletes the session behind refreshToken and blacklists the value.
// Revoking an unknown or already revoked token is not an error.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := s.store.RevokeSession(ctx, refreshToken, s.refreshBlacklistTTL()); err != nil {
		s.logger.Error("Auth service: failed to revoke refresh token",
			"token", logger.Redact(refreshToken),
			"error", err.Error())
		return fmt.Errorf("revoke session: %w", err)
	}

	s.logger.Info("Auth service: refresh token revoked",
		"token", logger.Redact(refreshToken))

	return nil
}

// RevokeAccessToken blacklists the token id for the rest of its lifetime.
// Expired tokens need no entry and are accepted silently.
func (s *TokenService) RevokeAccessToken(ctx context.Context, accessToken string) error {
	claims, err := s.codec.ParseAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, model.ErrExpired) {
			return nil
		}
		return unauthorized(model.ErrInvalidToken)
	}

	ttl := claims.ExpiresAt.Sub(s.now()) + s.cfg.ClockSkew
	if ttl <= 0 {
		return nil
	}

	if err := s.store.Blacklist(ctx, claims.ID, claims.Subject, ttl); err != nil {
		s.logger.Error("Auth service: failed to blacklist access token",
			"user_id", claims.Subject,
			"jti", claims.ID,
			"error", err.Error())
		return fmt.Errorf("blacklist access token: %w", err)
	}

	s.logger.Info("Auth service: access token revoked",
		"user_id", claims.Subject,
		"jti", claims.ID)

	return nil
}

// RevokeAllForUser ends every session of userID. Access tokens already
// issued stay valid until they expire.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.RevokeSubject(ctx, userID, s.refreshBlacklistTTL()); err != nil {
		s.logger.Error("Auth service: failed to revoke user sessions",
			"user_id", userID,
			"error", err.Error())
		return fmt.Errorf("revoke user sessions: %w", err)
	}

	s.logger.Info("Auth service: all sessions revoked",
		"user_id", userID)

	return nil
}

func (s *TokenService) mintPair(user model.User, session model.Session) (model.TokenPair, error) {
	access, claims, err := s.codec.MintAccessToken(user)
	if err != nil {
		s.logger.Error("Auth service: failed to mint access token",
			"user_id", user.ID,
			"error", err.Error())
		return model.TokenPair{}, fmt.Errorf("mint access token: %w", err)
	}

	refresh, err := s.codec.MintRefreshToken()
	if err != nil {
		s.logger.Error("Auth service: failed to mint refresh token",
			"user_id", user.ID,
			"error", err.Error())
		return model.TokenPair{}, fmt.Errorf("mint refresh token: %w", err)
	}

	return model.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  claims.ExpiresAt,
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *TokenService) lookupFailure(ctx context.Context, refreshToken string, err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		if revoked, berr := s.store.IsBlacklisted(ctx, refreshToken); berr == nil && revoked {
			s.logger.Warn("Auth service: rotated or revoked refresh token replayed, possible theft",
				"token", logger.Redact(refreshToken))
		} else {
			s.logger.Debug("Auth service: unknown refresh token",
				"token", logger.Redact(refreshToken))
		}
		return model.ErrInvalidToken
	case errors.Is(err, model.ErrTamperedData):
		s.logger.Error("Auth service: stored session failed integrity check",
			"token", logger.Redact(refreshToken),
			"error", err.Error())
		return fmt.Errorf("%w: %w", model.ErrInvalidToken, model.ErrTamperedData)
	default:
		s.logger.Error("Auth service: failed to load session",
			"token", logger.Redact(refreshToken),
			"error", err.Error())
		return fmt.Errorf("load session: %w", err)
	}
}

func (s *TokenService) refreshBlacklistTTL() time.Duration {
	return s.cfg.RefreshTTL + s.cfg.ClockSkew
}

func unauthorized(reason error) error {
	return fmt.Errorf("%w: %w", model.ErrUnauthorized, reason)
}
