package keys

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dtroode/tokenkeeper/internal/cryptox"
	"github.com/dtroode/tokenkeeper/internal/model"
)

// MinSecretLength is the shortest HS256 secret accepted.
const MinSecretLength = 32

// SignerParams names the key material and claims for a signer.
type SignerParams struct {
	Algorithm      string
	PrivateKeyName string
	PublicKeyName  string
	Secret         string
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
}

// LoadSigner reads key material from src and builds a signer. When a public
// key is stored next to the private key it must belong to it.
func LoadSigner(ctx context.Context, src model.KeySource, p SignerParams) (*cryptox.Signer, error) {
	cfg := cryptox.SignerConfig{
		Algorithm: p.Algorithm,
		Issuer:    p.Issuer,
		Audience:  p.Audience,
		ClockSkew: p.ClockSkew,
	}

	if p.Algorithm == cryptox.AlgHS256 {
		if len(p.Secret) < MinSecretLength {
			return nil, fmt.Errorf("HS256 secret must be at least %d bytes", MinSecretLength)
		}
		cfg.PrivateKey = []byte(p.Secret)
		cfg.PublicKey = []byte(p.Secret)
		return cryptox.NewSigner(cfg)
	}

	privPEM, err := src.Fetch(ctx, p.PrivateKeyName)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}

	priv, pub, err := parsePrivateKey(p.Algorithm, privPEM)
	if err != nil {
		return nil, err
	}

	if p.PublicKeyName != "" {
		pubPEM, err := src.Fetch(ctx, p.PublicKeyName)
		switch {
		case errors.Is(err, model.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("failed to load public key: %w", err)
		default:
			stored, err := parsePublicKey(p.Algorithm, pubPEM)
			if err != nil {
				return nil, err
			}
			if !pub.(interface{ Equal(crypto.PublicKey) bool }).Equal(stored) {
				return nil, errors.New("public key does not match private key")
			}
		}
	}

	cfg.PrivateKey = priv
	cfg.PublicKey = pub
	return cryptox.NewSigner(cfg)
}

func parsePrivateKey(alg string, data []byte) (crypto.PrivateKey, crypto.PublicKey, error) {
	switch alg {
	case cryptox.AlgEdDSA:
		key, err := jwt.ParseEdPrivateKeyFromPEM(data)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse Ed25519 private key: %w", err)
		}
		priv, ok := key.(ed25519.PrivateKey)
		if !ok {
			return nil, nil, errors.New("private key is not Ed25519")
		}
		return priv, priv.Public().(ed25519.PublicKey), nil
	case cryptox.AlgES256:
		priv, err := jwt.ParseECPrivateKeyFromPEM(data)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse ECDSA private key: %w", err)
		}
		return priv, &priv.PublicKey, nil
	case cryptox.AlgRS256:
		priv, err := jwt.ParseRSAPrivateKeyFromPEM(data)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse RSA private key: %w", err)
		}
		return priv, &priv.PublicKey, nil
	default:
		return nil, nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
}

func parsePublicKey(alg string, data []byte) (crypto.PublicKey, error) {
	switch alg {
	case cryptox.AlgEdDSA:
		key, err := jwt.ParseEdPublicKeyFromPEM(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Ed25519 public key: %w", err)
		}
		pub, ok := key.(ed25519.PublicKey)
		if !ok {
			return nil, errors.New("public key is not Ed25519")
		}
		return pub, nil
	case cryptox.AlgES256:
		pub, err := jwt.ParseECPublicKeyFromPEM(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ECDSA public key: %w", err)
		}
		return pub, nil
	case cryptox.AlgRS256:
		pub, err := jwt.ParseRSAPublicKeyFromPEM(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
}
