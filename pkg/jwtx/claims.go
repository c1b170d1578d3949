package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultAccessTokenTTL keeps bearer credentials short lived. Clients are
	// expected to renew reactively through the refresh endpoint.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the lifetime of the httpOnly refresh cookie.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Role names understood across the platform.
const (
	RoleStudent    = "STUDENT"
	RoleInstructor = "INSTRUCTOR"
	RoleAdmin      = "ADMIN"
)

// Claims is the payload of a cognify bearer credential. The registered
// claims carry sub/exp/iat; the flat fields below are what clients read.
type Claims struct {
	jwt.RegisteredClaims

	// UserID duplicates sub. Older clients only look at "id".
	UserID string `json:"id,omitempty"`

	// SID ties the access token to its refresh family.
	SID string `json:"sid,omitempty"`

	Name     string   `json:"name,omitempty"`
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// Subject identifiers for the user described by an access token.
type Subject struct {
	ID       string
	SID      string
	Name     string
	Username string
	Email    string
	Roles    []string
}

// NewAccessClaims builds claims for subject valid for ttl from now.
func NewAccessClaims(sub Subject, issuer string, audience []string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sub.ID,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		UserID:   sub.ID,
		SID:      sub.SID,
		Name:     sub.Name,
		Username: sub.Username,
		Email:    sub.Email,
		Roles:    slices.Clone(sub.Roles),
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ID returns the user id, preferring the explicit "id" claim over "sub".
func (c *Claims) ID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// HasRole reports whether role is among the claimed roles.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ExpiredAt reports whether the token is expired at now. A token whose exp
// equals now is already expired. Tokens without exp never expire.
func (c *Claims) ExpiredAt(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.ExpiresAt.Time)
}

// ValidateExpiry checks exp and nbf against now with leeway for clock skew.
func (c *Claims) ValidateExpiry(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && c.ExpiredAt(now.Add(-leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
