package authsdk

import (
	"github.com/cognify-learn/cognify/pkg/jwtx"
)

// ============================================================================
// Auth Endpoint Types
// ============================================================================

// LoginRequest is the body of POST /api/v1/auth/login. Handle is either a
// username or an email address.
type LoginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

// SignupRequest is the body of POST /api/v1/auth/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a freshly issued bearer credential. Login, signup
// and refresh all answer with it.
type TokenResponse struct {
	Token string `json:"token"`
}

// MessageResponse is returned by endpoints with nothing else to say.
type MessageResponse struct {
	Message string `json:"message"`
}

// MeResponse describes the caller as the server sees it.
type MeResponse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// ErrorResponse is the flat error body of the auth endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz. Checks is only set by /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the state of each dependency the server needs.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// JWKSResponse is the body of /.well-known/jwks.json.
type JWKSResponse jwtx.JWKS
