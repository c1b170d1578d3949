package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/cognify-learn/cognify/pkg/cryptox"
	"github.com/cognify-learn/cognify/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://auth.cognify.test"

func newSigner(t *testing.T, kid string) *jwtx.EdDSASigner {
	t.Helper()
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	s, err := jwtx.NewSignerEdDSA(kid, pemKey)
	require.NoError(t, err)
	return s
}

func sampleClaims(now time.Time, ttl time.Duration) jwtx.Claims {
	return jwtx.NewAccessClaims(jwtx.Subject{
		ID:       "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV",
		SID:      "family-1",
		Name:     "Grace",
		Username: "grace",
		Roles:    []string{jwtx.RoleStudent},
	}, testIssuer, []string{"web"}, ttl, now)
}

func TestEdDSASignAndVerify(t *testing.T) {
	signer := newSigner(t, "k1")
	require.Equal(t, "EdDSA", signer.Alg())
	require.Equal(t, "k1", signer.KID())

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))
	require.True(t, keys.IsReady())

	want := sampleClaims(time.Now().UTC(), 5*time.Minute)
	token, err := signer.Sign(want)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(token, "."))

	got, err := jwtx.NewVerifierEdDSA(keys, testIssuer, []string{"web"}).Verify(token)
	require.NoError(t, err)
	require.Equal(t, want.Subject, got.Subject)
	require.Equal(t, want.UserID, got.UserID)
	require.Equal(t, want.Username, got.Username)
	require.Equal(t, want.Roles, got.Roles)
	require.Equal(t, want.SID, got.SID)
}

func TestEdDSAVerifyFailures(t *testing.T) {
	signer := newSigner(t, "k1")
	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	now := time.Now().UTC()
	token, err := signer.Sign(sampleClaims(now, time.Minute))
	require.NoError(t, err)

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := jwtx.NewVerifierEdDSA(keys, "other", nil).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("wrong audience", func(t *testing.T) {
		_, err := jwtx.NewVerifierEdDSA(keys, "", []string{"admin"}).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("expired", func(t *testing.T) {
		v := jwtx.NewVerifierEdDSA(keys, "", nil).WithClock(func() time.Time { return now.Add(time.Hour) })
		_, err := v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("unknown kid", func(t *testing.T) {
		_, err := jwtx.NewVerifierEdDSA(jwtx.NewKeySet(), "", nil).Verify(token)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("signed by a different key with the same kid", func(t *testing.T) {
		impostor := newSigner(t, "k1")
		forged, err := impostor.Sign(sampleClaims(now, time.Minute))
		require.NoError(t, err)
		_, err = jwtx.NewVerifierEdDSA(keys, "", nil).Verify(forged)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := jwtx.NewVerifierEdDSA(keys, "", nil).Verify("a.b")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestKeySetJWKSRoundTrip(t *testing.T) {
	signer := newSigner(t, "k1")
	src := jwtx.NewKeySet()
	require.NoError(t, src.AddSigner(signer))
	require.NoError(t, src.AddSigner(signer), "re-adding the same kid must not duplicate the JWKS entry")

	jwks := src.PublicJWKS()
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)
	require.Equal(t, "Ed25519", jwks.Keys[0].Crv)

	dst := jwtx.NewKeySet()
	require.NoError(t, dst.ResetFromJWKS(jwks))

	token, err := signer.Sign(sampleClaims(time.Now().UTC(), time.Minute))
	require.NoError(t, err)
	_, err = jwtx.NewVerifierEdDSA(dst, testIssuer, nil).Verify(token)
	require.NoError(t, err)
}

func TestJWKPEM(t *testing.T) {
	jwk := newSigner(t, "k1").PublicJWK()
	out, err := jwk.PEM()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "-----BEGIN PUBLIC KEY-----"))

	_, err = jwtx.JWK{Kty: "RSA"}.PEM()
	require.Error(t, err)
}
