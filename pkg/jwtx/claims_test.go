package jwtx_test

import (
	"testing"
	"time"

	"github.com/cognify-learn/cognify/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "cognify-auth"}}

	require.NoError(t, c.ValidateIssuer("cognify-auth"))
	require.NoError(t, c.ValidateIssuer(""))
	require.ErrorIs(t, c.ValidateIssuer("someone-else"), jwtx.ErrIssuer)
}

func TestValidateAudience(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Audience: []string{"web", "cli"}}}

	require.NoError(t, c.ValidateAudience([]string{"cli"}))
	require.NoError(t, c.ValidateAudience([]string{"foo", "web"}))
	require.NoError(t, c.ValidateAudience(nil))
	require.ErrorIs(t, c.ValidateAudience([]string{"admin"}), jwtx.ErrAudience)
}

func TestExpiredAt(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	t.Run("exp equal to now is expired", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now)}}
		require.True(t, c.ExpiredAt(now))
	})

	t.Run("exp in the future", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Second))}}
		require.False(t, c.ExpiredAt(now))
	})

	t.Run("no exp never expires", func(t *testing.T) {
		require.False(t, (&jwtx.Claims{}).ExpiredAt(now))
	})
}

func TestValidateExpiry(t *testing.T) {
	now := time.Now().UTC()

	valid := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))}}
	require.NoError(t, valid.ValidateExpiry(now, 0))

	expired := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Second))}}
	require.ErrorIs(t, expired.ValidateExpiry(now, 0), jwtx.ErrExpired)
	require.NoError(t, expired.ValidateExpiry(now, 30*time.Second), "leeway covers small skew")

	early := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{NotBefore: jwt.NewNumericDate(now.Add(time.Minute))}}
	require.ErrorIs(t, early.ValidateExpiry(now, 0), jwtx.ErrNotYetValid)
}

func TestNewAccessClaims(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	roles := []string{jwtx.RoleInstructor}

	c := jwtx.NewAccessClaims(jwtx.Subject{
		ID:       "u1",
		SID:      "s1",
		Name:     "Ada",
		Username: "ada",
		Email:    "ada@example.com",
		Roles:    roles,
	}, "iss", []string{"web"}, time.Minute, now)

	roles[0] = "mutated"

	require.Equal(t, "u1", c.Subject)
	require.Equal(t, "u1", c.ID())
	require.Equal(t, []string{jwtx.RoleInstructor}, c.Roles)
	require.True(t, c.HasRole(jwtx.RoleInstructor))
	require.False(t, c.HasRole(jwtx.RoleAdmin))
	require.True(t, now.Add(time.Minute).Equal(c.ExpiresAt.Time))
	require.NotEmpty(t, c.RegisteredClaims.ID)
}

func TestClaimsIDFallsBackToSubject(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "sub-only"}}
	require.Equal(t, "sub-only", c.ID())
}
