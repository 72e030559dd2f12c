package cryptox

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/dtroode/tokenkeeper/internal/model"
)

// Sealer encrypts values at rest with XChaCha20-Poly1305. The random 24-byte
// nonce is prepended to the ciphertext.
type Sealer struct {
	aead   cipher.AEAD
	random io.Reader
}

// NewSealer creates a Sealer from a 32-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create aead: %w", err)
	}

	return &Sealer{aead: aead, random: rand.Reader}, nil
}

// Seal encrypts plaintext and binds it to associatedData.
func (s *Sealer) Seal(plaintext, associatedData []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	out := make([]byte, nonceSize, nonceSize+len(plaintext)+s.aead.Overhead())
	if _, err := io.ReadFull(s.random, out); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return s.aead.Seal(out, out[:nonceSize], plaintext, associatedData), nil
}

// Open authenticates and decrypts a value produced by Seal. Any mismatch,
// including truncated input, yields ErrTamperedData and no plaintext.
func (s *Sealer) Open(sealed, associatedData []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize+s.aead.Overhead() {
		return nil, model.ErrTamperedData
	}

	plaintext, err := s.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], associatedData)
	if err != nil {
		return nil, model.ErrTamperedData
	}

	return plaintext, nil
}
