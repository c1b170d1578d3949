package domain

import "github.com/cognify-learn/cognify/pkg/jwtx"

// KnownRoles lists every role a user may hold.
var KnownRoles = []string{jwtx.RoleStudent, jwtx.RoleInstructor, jwtx.RoleAdmin}

// DefaultRoles are granted at signup.
func DefaultRoles() []string { return []string{jwtx.RoleStudent} }

// IsKnownRole reports whether name is one of KnownRoles.
func IsKnownRole(name string) bool {
	for _, r := range KnownRoles {
		if r == name {
			return true
		}
	}
	return false
}
