package cryptox

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dtroode/tokenkeeper/internal/model"
)

// DefaultClockSkew is applied when SignerConfig.ClockSkew is zero.
const DefaultClockSkew = 5 * time.Second

// Supported signing algorithms.
const (
	AlgEdDSA = "EdDSA"
	AlgES256 = "ES256"
	AlgRS256 = "RS256"
	AlgHS256 = "HS256"
)

// SignerConfig describes key material and the claims every token must carry.
// For HS256 PrivateKey and PublicKey are the same []byte secret.
type SignerConfig struct {
	Algorithm  string
	PrivateKey any
	PublicKey  any
	Issuer     string
	Audience   string
	ClockSkew  time.Duration
}

// Signer signs and verifies JWTs with a single fixed algorithm.
type Signer struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	issuer    string
	audience  string
	skew      time.Duration
}

// NewSigner validates the algorithm and returns a Signer. Missing key
// material is not an error here; Sign and Verify report it.
func NewSigner(cfg SignerConfig) (*Signer, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil || method.Alg() == jwt.SigningMethodNone.Alg() {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}

	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = DefaultClockSkew
	}

	return &Signer{
		method:    method,
		signKey:   cfg.PrivateKey,
		verifyKey: cfg.PublicKey,
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		skew:      skew,
	}, nil
}

// Algorithm returns the configured JWT alg header value.
func (s *Signer) Algorithm() string {
	return s.method.Alg()
}

// Issuer returns the iss value stamped on and required from every token.
func (s *Signer) Issuer() string {
	return s.issuer
}

// Audience returns the aud value stamped on and required from every token.
func (s *Signer) Audience() string {
	return s.audience
}

// ClockSkew returns the verification leeway.
func (s *Signer) ClockSkew() time.Duration {
	return s.skew
}

// Sign serializes and signs claims.
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	if isEmptyKey(s.signKey) {
		return "", fmt.Errorf("%w: signing key is not configured", model.ErrSigning)
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.signKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrSigning, err)
	}

	return signed, nil
}

// Verify checks signature, algorithm, expiry, issuer and audience, and
// decodes the payload into claims.
func (s *Signer) Verify(token string, claims jwt.Claims) error {
	if isEmptyKey(s.verifyKey) {
		return fmt.Errorf("%w: verification key is not configured", model.ErrInvalidSignature)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithLeeway(s.skew),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.verifyKey, nil
	}, opts...)
	if err != nil {
		return classify(err)
	}
	if !parsed.Valid {
		return model.ErrInvalidSignature
	}

	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", model.ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %w", model.ErrIssuerMismatch, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: %w", model.ErrAudienceMismatch, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", model.ErrMalformedToken, err)
	default:
		return fmt.Errorf("%w: %w", model.ErrInvalidSignature, err)
	}
}

func isEmptyKey(key any) bool {
	switch k := key.(type) {
	case nil:
		return true
	case []byte:
		return len(k) == 0
	case ed25519.PrivateKey:
		return len(k) == 0
	case ed25519.PublicKey:
		return len(k) == 0
	default:
		return false
	}
}
