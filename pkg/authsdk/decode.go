package authsdk

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/cognify-learn/cognify/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultRole is assumed when a credential carries no roles claim.
const DefaultRole = jwtx.RoleStudent

// Identity is the user-facing view of a credential's claims.
type Identity struct {
	ID       string
	Name     string
	Username string
	Email    string
	Roles    []string

	// ExpiresAt is zero for credentials without an exp claim.
	ExpiresAt time.Time
}

// HasRole reports whether role is among the identity's roles.
func (i *Identity) HasRole(role string) bool {
	return i != nil && slices.Contains(i.Roles, role)
}

func (i *Identity) clone() *Identity {
	if i == nil {
		return nil
	}
	cp := *i
	cp.Roles = slices.Clone(i.Roles)
	return &cp
}

// validAt reports whether a credential with this identity is still usable.
func (i *Identity) validAt(now time.Time) bool {
	return i.ExpiresAt.IsZero() || now.Before(i.ExpiresAt)
}

// DecodeResult is the outcome of Decode. Identity is only meaningful when
// Valid is true.
type DecodeResult struct {
	Valid    bool
	Identity Identity
}

// Decode reads a credential's claims without verifying its signature. Only
// the claims segment is inspected, so the header's alg does not matter. The
// result is invalid when the credential is not three dot separated
// segments, when its claims do not parse, or when exp is at or before now.
// Decode never panics.
func Decode(credential string, now time.Time) DecodeResult {
	parts := strings.Split(credential, ".")
	if len(parts) != 3 {
		return DecodeResult{}
	}
	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return DecodeResult{}
	}
	var claims jwtx.Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return DecodeResult{}
	}
	if claims.ExpiredAt(now) {
		return DecodeResult{}
	}

	id := Identity{
		ID:       claims.ID(),
		Name:     claims.Name,
		Username: claims.Username,
		Email:    claims.Email,
		Roles:    slices.Clone(claims.Roles),
	}
	if id.Name == "" {
		id.Name = id.Username
	}
	if len(id.Roles) == 0 {
		id.Roles = []string{DefaultRole}
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return DecodeResult{Valid: true, Identity: id}
}
