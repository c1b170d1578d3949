package domain

import "time"

// IssuedSession is what a successful signup, login or refresh hands back:
// the short-lived access token (JWT) and the opaque refresh token that goes
// into the httpOnly cookie.
type IssuedSession struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             User
}

// RefreshToken models the stored refresh token record in the DB.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	SessionID string // shared by every token rotated from the same login
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
