package cryptox

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/tokenkeeper/internal/model"
)

// weakThenStrong returns zero-filled reads for the first weak calls.
type weakThenStrong struct {
	weak  int
	calls int
}

func (r *weakThenStrong) Read(p []byte) (int, error) {
	r.calls++
	if r.calls <= r.weak {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	return rand.Read(p)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy pool closed") }

func TestRandomizer_Token(t *testing.T) {
	r := NewRandomizer(nil, 0, 0)

	a, err := r.Token(32)
	require.NoError(t, err)
	b, err := r.Token(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestRandomizer_RegeneratesOnWeakOutput(t *testing.T) {
	src := &weakThenStrong{weak: 2}
	r := NewRandomizer(src, 0.7, 3)

	b, err := r.Bytes(32)
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls)
	assert.False(t, bytes.Equal(b, make([]byte, 32)))
}

func TestRandomizer_GivesUpAfterBoundedAttempts(t *testing.T) {
	src := &weakThenStrong{weak: 100}
	r := NewRandomizer(src, 0.7, 4)

	_, err := r.Token(32)
	assert.ErrorIs(t, err, model.ErrLowEntropy)
	assert.Equal(t, 4, src.calls)
}

func TestRandomizer_ReaderError(t *testing.T) {
	r := NewRandomizer(failingReader{}, 0, 0)

	_, err := r.Token(16)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrLowEntropy)
}

func TestRandomizer_InvalidLength(t *testing.T) {
	_, err := NewRandomizer(nil, 0, 0).Bytes(0)
	assert.Error(t, err)
}

func TestShannonEntropy(t *testing.T) {
	assert.Equal(t, 0.0, ShannonEntropy(nil))
	assert.Equal(t, 0.0, ShannonEntropy(bytes.Repeat([]byte{7}, 64)))
	assert.InDelta(t, 1.0, ShannonEntropy([]byte{0, 1, 0, 1}), 1e-9)

	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	assert.InDelta(t, 8.0, ShannonEntropy(all), 1e-9)
}

var _ io.Reader = (*weakThenStrong)(nil)
