package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasher_Hash(t *testing.T) {
	h := NewHasher([]byte("key-one"))

	a := h.Hash("alice@example.com")
	assert.Len(t, a, 64)
	assert.Equal(t, a, h.Hash("alice@example.com"))
	assert.NotEqual(t, a, h.Hash("bob@example.com"))
	assert.NotContains(t, a, "alice")

	other := NewHasher([]byte("key-two"))
	assert.NotEqual(t, a, other.Hash("alice@example.com"))
}

func TestDeriveKeys(t *testing.T) {
	master := bytes.Repeat([]byte{9}, 32)

	keys, err := DeriveKeys(master)
	require.NoError(t, err)
	assert.Len(t, keys.Encryption, 32)
	assert.Len(t, keys.Hashing, 32)
	assert.NotEqual(t, keys.Encryption, keys.Hashing)

	again, err := DeriveKeys(master)
	require.NoError(t, err)
	assert.Equal(t, keys, again)

	_, err = DeriveKeys([]byte("too short"))
	assert.Error(t, err)
}
