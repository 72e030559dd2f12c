package keys

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/dtroode/tokenkeeper/internal/cryptox"
)

// RSABits is the modulus size of generated RS256 keys.
const RSABits = 3072

// Writer stores named key material.
type Writer interface {
	Put(ctx context.Context, name string, data []byte) error
}

// Generate creates a PKCS#8 private key and PKIX public key pair in PEM for alg.
func Generate(alg string) (privPEM, pubPEM []byte, err error) {
	var priv crypto.Signer
	switch alg {
	case cryptox.AlgEdDSA:
		_, priv, err = ed25519.GenerateKey(rand.Reader)
	case cryptox.AlgES256:
		priv, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case cryptox.AlgRS256:
		priv, err = rsa.GenerateKey(rand.Reader, RSABits)
	default:
		return nil, nil, fmt.Errorf("cannot generate keys for %q", alg)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(priv.Public())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	privPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM, nil
}

// Provision generates a key pair for alg and stores it under the given names.
func Provision(ctx context.Context, w Writer, alg, privateName, publicName string) error {
	privPEM, pubPEM, err := Generate(alg)
	if err != nil {
		return err
	}
	if err := w.Put(ctx, privateName, privPEM); err != nil {
		return err
	}
	return w.Put(ctx, publicName, pubPEM)
}
