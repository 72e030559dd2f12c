package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/tokenkeeper/internal/cryptox"
	"github.com/dtroode/tokenkeeper/internal/model"
)

const (
	// DefaultAccessTTL is used when Codec is built with a zero access TTL.
	DefaultAccessTTL = time.Hour
	// RefreshTokenBytes is the amount of randomness in an opaque refresh token.
	RefreshTokenBytes = 32
)

var _ model.TokenCodec = (*Codec)(nil)

// Claims represents access token claims.
type Claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	TokenType string `json:"typ"`
}

// Codec mints signed access tokens and opaque refresh tokens.
type Codec struct {
	signer    *cryptox.Signer
	random    *cryptox.Randomizer
	accessTTL time.Duration
	now       func() time.Time
}

// NewCodec creates a new token codec.
func NewCodec(signer *cryptox.Signer, random *cryptox.Randomizer, accessTTL time.Duration) *Codec {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}

	return &Codec{
		signer:    signer,
		random:    random,
		accessTTL: accessTTL,
		now:       time.Now,
	}
}

// AccessTTL returns the lifetime of minted access tokens.
func (c *Codec) AccessTTL() time.Duration {
	return c.accessTTL
}

// MintAccessToken creates a short-lived access token for user.
func (c *Codec) MintAccessToken(user model.User) (string, model.AccessClaims, error) {
	if user.ID == uuid.Nil {
		return "", model.AccessClaims{}, fmt.Errorf("%w: empty subject", model.ErrSigning)
	}

	now := c.now().Truncate(time.Second)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
		},
		Role:      user.Role,
		TokenType: model.TokenTypeAccess,
	}
	if iss := c.signer.Issuer(); iss != "" {
		claims.Issuer = iss
	}
	if aud := c.signer.Audience(); aud != "" {
		claims.Audience = jwt.ClaimStrings{aud}
	}

	tokenString, err := c.signer.Sign(claims)
	if err != nil {
		return "", model.AccessClaims{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, toModel(claims, user.ID), nil
}

// MintRefreshToken creates an opaque refresh token. It carries no claims and
// is only meaningful as a session store lookup key.
func (c *Codec) MintRefreshToken() (string, error) {
	t, err := c.random.Token(RefreshTokenBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return t, nil
}

// ParseAccessToken verifies an access token and returns its claims. Every
// failure wraps model.ErrInvalidToken.
func (c *Codec) ParseAccessToken(tokenString string) (model.AccessClaims, error) {
	claims := &Claims{}
	if err := c.signer.Verify(tokenString, claims); err != nil {
		return model.AccessClaims{}, fmt.Errorf("%w: %w", model.ErrInvalidToken, err)
	}
	if claims.TokenType != model.TokenTypeAccess {
		return model.AccessClaims{}, fmt.Errorf("%w: token type mismatch: %s", model.ErrInvalidToken, claims.TokenType)
	}
	if claims.ID == "" {
		return model.AccessClaims{}, fmt.Errorf("%w: missing token id", model.ErrInvalidToken)
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil || subject == uuid.Nil {
		return model.AccessClaims{}, fmt.Errorf("%w: invalid subject", model.ErrInvalidToken)
	}

	return toModel(*claims, subject), nil
}

func toModel(c Claims, subject uuid.UUID) model.AccessClaims {
	out := model.AccessClaims{
		ID:        c.ID,
		Subject:   subject,
		Role:      c.Role,
		TokenType: c.TokenType,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}

	return out
}
