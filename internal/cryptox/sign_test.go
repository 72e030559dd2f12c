package cryptox

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/tokenkeeper/internal/model"
)

func newEdSigner(t *testing.T, issuer, audience string) *Signer {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	s, err := NewSigner(SignerConfig{
		Algorithm:  AlgEdDSA,
		PrivateKey: priv,
		PublicKey:  pub,
		Issuer:     issuer,
		Audience:   audience,
	})
	require.NoError(t, err)
	return s
}

func claimsAt(issuer, audience string, iat, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{audience},
		Subject:   "subject",
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func TestNewSigner_RejectsUnknownAlgorithm(t *testing.T) {
	_, err := NewSigner(SignerConfig{Algorithm: "none"})
	assert.Error(t, err)

	_, err = NewSigner(SignerConfig{Algorithm: "XYZ"})
	assert.Error(t, err)
}

func TestNewSigner_DefaultsClockSkew(t *testing.T) {
	s, err := NewSigner(SignerConfig{Algorithm: AlgHS256})
	require.NoError(t, err)
	assert.Equal(t, DefaultClockSkew, s.ClockSkew())
}

func TestSigner_SignVerify(t *testing.T) {
	s := newEdSigner(t, "tokenkeeper", "api")
	now := time.Now()

	token, err := s.Sign(claimsAt("tokenkeeper", "api", now, now.Add(time.Hour)))
	require.NoError(t, err)

	var got jwt.RegisteredClaims
	require.NoError(t, s.Verify(token, &got))
	assert.Equal(t, "subject", got.Subject)
}

func TestSigner_Verify_Failures(t *testing.T) {
	s := newEdSigner(t, "tokenkeeper", "api")
	other := newEdSigner(t, "tokenkeeper", "api")
	now := time.Now()

	sign := func(signer *Signer, c jwt.Claims) string {
		tok, err := signer.Sign(c)
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{
			name:    "expired beyond skew",
			token:   sign(s, claimsAt("tokenkeeper", "api", now.Add(-2*time.Hour), now.Add(-time.Minute))),
			wantErr: model.ErrExpired,
		},
		{
			name:    "issuer mismatch",
			token:   sign(s, claimsAt("someone-else", "api", now, now.Add(time.Hour))),
			wantErr: model.ErrIssuerMismatch,
		},
		{
			name:    "audience mismatch",
			token:   sign(s, claimsAt("tokenkeeper", "other-api", now, now.Add(time.Hour))),
			wantErr: model.ErrAudienceMismatch,
		},
		{
			name:    "signed by another key",
			token:   sign(other, claimsAt("tokenkeeper", "api", now, now.Add(time.Hour))),
			wantErr: model.ErrInvalidSignature,
		},
		{
			name:    "garbage",
			token:   "not.a.jwt",
			wantErr: model.ErrMalformedToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got jwt.RegisteredClaims
			err := s.Verify(tt.token, &got)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSigner_Verify_ToleratesClockSkew(t *testing.T) {
	s := newEdSigner(t, "tokenkeeper", "api")
	now := time.Now()

	token, err := s.Sign(claimsAt("tokenkeeper", "api", now.Add(-time.Hour), now.Add(-2*time.Second)))
	require.NoError(t, err)

	var got jwt.RegisteredClaims
	assert.NoError(t, s.Verify(token, &got))
}

func TestSigner_Verify_RejectsOtherAlgorithm(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	es, err := NewSigner(SignerConfig{Algorithm: AlgES256, PrivateKey: ecKey, PublicKey: &ecKey.PublicKey})
	require.NoError(t, err)

	now := time.Now()
	token, err := es.Sign(claimsAt("", "", now, now.Add(time.Hour)))
	require.NoError(t, err)

	ed := newEdSigner(t, "", "")
	var got jwt.RegisteredClaims
	assert.ErrorIs(t, ed.Verify(token, &got), model.ErrInvalidSignature)
}

func TestSigner_Sign_MissingKey(t *testing.T) {
	s, err := NewSigner(SignerConfig{Algorithm: AlgEdDSA})
	require.NoError(t, err)

	_, err = s.Sign(jwt.RegisteredClaims{})
	assert.ErrorIs(t, err, model.ErrSigning)

	h, err := NewSigner(SignerConfig{Algorithm: AlgHS256, PrivateKey: []byte{}})
	require.NoError(t, err)
	_, err = h.Sign(jwt.RegisteredClaims{})
	assert.ErrorIs(t, err, model.ErrSigning)
}
