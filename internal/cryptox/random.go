package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"math"

	"github.com/dtroode/tokenkeeper/internal/model"
)

const (
	defaultMinEntropy  = 0.7
	defaultMaxAttempts = 3
)

// Randomizer produces random tokens and rejects samples whose estimated
// Shannon entropy falls below MinEntropy times the maximum achievable for the
// sample length.
type Randomizer struct {
	reader      io.Reader
	minEntropy  float64
	maxAttempts int
}

// NewRandomizer creates a Randomizer. A nil reader means crypto/rand.
// Non-positive thresholds fall back to defaults.
func NewRandomizer(reader io.Reader, minEntropy float64, maxAttempts int) *Randomizer {
	if reader == nil {
		reader = rand.Reader
	}
	if minEntropy <= 0 || minEntropy > 1 {
		minEntropy = defaultMinEntropy
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Randomizer{reader: reader, minEntropy: minEntropy, maxAttempts: maxAttempts}
}

// Bytes returns n random bytes that passed the entropy floor.
func (r *Randomizer) Bytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid random length %d", n)
	}

	floor := r.minEntropy * maxEntropy(n)
	buf := make([]byte, n)
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if _, err := io.ReadFull(r.reader, buf); err != nil {
			return nil, fmt.Errorf("failed to read random bytes: %w", err)
		}
		if ShannonEntropy(buf) >= floor {
			return buf, nil
		}
	}

	return nil, model.ErrLowEntropy
}

// Token returns n random bytes encoded as unpadded base64url.
func (r *Randomizer) Token(n int) (string, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ShannonEntropy estimates entropy in bits per byte.
func ShannonEntropy(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}

	var counts [256]int
	for _, c := range b {
		counts[c]++
	}

	total := float64(len(b))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		h -= p * math.Log2(p)
	}

	return h
}

// a sample of n bytes cannot show more than log2(min(n, 256)) bits per byte.
func maxEntropy(n int) float64 {
	if n > 256 {
		n = 256
	}

	return math.Log2(float64(n))
}
