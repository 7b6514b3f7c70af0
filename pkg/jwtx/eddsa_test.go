package jwtx_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/aussiebroadwan/oauthd/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "https://auth.example.test"

func newSigner(t *testing.T) *jwtx.EdDSASigner {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer, err := jwtx.NewSignerEdDSA("session-1", priv)
	require.NoError(t, err)
	return signer
}

func TestEdDSASignAndVerify(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)
	require.Equal(t, "EdDSA", signer.Alg())

	now := time.Now().UTC()
	claims := jwtx.NewSessionClaims("alice", "sid-123", exampleIssuer, []string{"oauthd"}, time.Hour, now)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	verifier := jwtx.NewVerifierEdDSA(signer.KID(), signer.PublicKey(), exampleIssuer, []string{"oauthd"}, nil)
	got, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Subject)
	require.Equal(t, "sid-123", got.SID)
}

func TestEdDSAVerifyRejects(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)
	other := newSigner(t)
	now := time.Now().UTC()

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewSessionClaims("alice", "sid", "someone-else", nil, time.Hour, now))
		require.NoError(t, err)

		v := jwtx.NewVerifierEdDSA(signer.KID(), signer.PublicKey(), exampleIssuer, nil, nil)
		_, err = v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("wrong key", func(t *testing.T) {
		token, err := other.Sign(jwtx.NewSessionClaims("alice", "sid", exampleIssuer, nil, time.Hour, now))
		require.NoError(t, err)

		v := jwtx.NewVerifierEdDSA(signer.KID(), signer.PublicKey(), exampleIssuer, nil, nil)
		_, err = v.Verify(token)
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewSessionClaims("alice", "sid", exampleIssuer, nil, time.Minute, now.Add(-time.Hour)))
		require.NoError(t, err)

		v := jwtx.NewVerifierEdDSA(signer.KID(), signer.PublicKey(), exampleIssuer, nil, nil)
		_, err = v.Verify(token)
		require.Error(t, err)
	})

	t.Run("missing session id", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewSessionClaims("alice", "", exampleIssuer, nil, time.Hour, now))
		require.NoError(t, err)

		v := jwtx.NewVerifierEdDSA(signer.KID(), signer.PublicKey(), exampleIssuer, nil, nil)
		_, err = v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrMissingClaim)
	})
}
