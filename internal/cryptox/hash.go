package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32

// Hasher produces keyed one-way digests suitable for store keys.
type Hasher struct {
	key []byte
}

// NewHasher creates a Hasher keyed with key.
func NewHasher(key []byte) *Hasher {
	k := make([]byte, len(key))
	copy(k, key)

	return &Hasher{key: k}
}

// Hash returns the hex HMAC-SHA256 of input.
func (h *Hasher) Hash(input string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(input))

	return hex.EncodeToString(mac.Sum(nil))
}

// Keys are the independent secrets derived from the session master secret.
type Keys struct {
	Encryption []byte
	Hashing    []byte
}

// DeriveKeys expands one master secret into separate encryption and hashing
// keys with HKDF-SHA256.
func DeriveKeys(master []byte) (Keys, error) {
	if len(master) < keySize {
		return Keys{}, fmt.Errorf("master secret must be at least %d bytes, got %d", keySize, len(master))
	}

	enc, err := expand(master, "tokenkeeper session encryption")
	if err != nil {
		return Keys{}, err
	}
	mac, err := expand(master, "tokenkeeper key hashing")
	if err != nil {
		return Keys{}, err
	}

	return Keys{Encryption: enc, Hashing: mac}, nil
}

func expand(master []byte, info string) ([]byte, error) {
	out := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), out); err != nil {
		return nil, fmt.Errorf("failed to derive %q key: %w", info, err)
	}

	return out, nil
}
