package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/cognify-learn/cognify/internal/auth/domain"
	"github.com/cognify-learn/cognify/internal/auth/service"
	"github.com/cognify-learn/cognify/internal/auth/store"
	"github.com/cognify-learn/cognify/pkg/authsdk"
	"github.com/cognify-learn/cognify/pkg/httpx"
	"github.com/cognify-learn/cognify/pkg/slogx"
)

// AuthHandler serves the session endpoints under /api/v1/auth.
type AuthHandler struct {
	Auth   *service.AuthService
	Users  *service.UserService
	Store  store.Store
	Cookie CookieConfig
}

// HandleSignup godoc
//
//	@Summary		Register an account
//	@Description	Creates a STUDENT account and signs it in. The refresh token is set as an httpOnly cookie.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.SignupRequest	true	"Account details"
//	@Success		201		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"All fields are required"
//	@Failure		409		{object}	authsdk.ErrorResponse	"Email already registered / Username already taken"
//	@Failure		503		{object}	authsdk.ErrorResponse	"Database not available"
//	@Router			/api/v1/auth/signup [post].
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SignupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess, err := h.Auth.Signup(r.Context(), service.SignupInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrMissingFields):
		httpx.WriteError(w, http.StatusBadRequest, "All fields are required")
		return
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict, "Email already registered")
		return
	case errors.Is(err, service.ErrUsernameTaken):
		httpx.WriteError(w, http.StatusConflict, "Username already taken")
		return
	default:
		h.internalError(w, r, err, "Failed to create user")
		return
	}

	h.writeSession(w, http.StatusCreated, sess)
}

// HandleLogin godoc
//
//	@Summary		Sign in
//	@Description	Authenticates by username or email. The refresh token is set as an httpOnly cookie.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"Handle and password"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Too many requests"
//	@Failure		503		{object}	authsdk.ErrorResponse	"Database not available"
//	@Router			/api/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess, err := h.Auth.Login(r.Context(), req.Handle, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.internalError(w, r, err, "Login failed")
		return
	}

	h.writeSession(w, http.StatusOK, sess)
}

// HandleRefresh godoc
//
//	@Summary		Renew the access token
//	@Description	Exchanges the refresh cookie for a new access token and rotates the cookie.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.TokenResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"No refresh token found / Unauthorized / Refresh token expired"
//	@Router			/api/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	raw := refreshCookie(r)
	if raw == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "No refresh token found")
		return
	}

	sess, err := h.Auth.Refresh(r.Context(), raw)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrRefreshExpired):
		h.Cookie.clear(w)
		httpx.WriteError(w, http.StatusUnauthorized, "Refresh token expired")
		return
	case errors.Is(err, service.ErrInvalidRefresh):
		h.Cookie.clear(w)
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	default:
		slogx.FromContext(r.Context()).Error("refresh failed", "err", err)
		httpx.WriteError(w, http.StatusUnauthorized, "Token refresh failed")
		return
	}

	h.writeSession(w, http.StatusOK, sess)
}

// HandleLogout godoc
//
//	@Summary		Sign out
//	@Description	Revokes the refresh cookie and clears it.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.MessageResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"No refresh token found"
//	@Failure		500	{object}	authsdk.ErrorResponse	"Logout failed"
//	@Router			/api/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	raw := refreshCookie(r)
	if raw == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "No refresh token found")
		return
	}

	if err := h.Auth.Logout(r.Context(), raw); err != nil {
		slogx.FromContext(r.Context()).Error("logout failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Logout failed")
		return
	}

	h.Cookie.clear(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Logged out"})
}

// HandleMe godoc
//
//	@Summary		Current user
//	@Description	Returns the account the bearer credential belongs to.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MeResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Unauthorized"
//	@Router			/api/v1/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	u, err := h.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		h.internalError(w, r, err, "Failed to load user")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, meResponse(u))
}

func meResponse(u domain.User) authsdk.MeResponse {
	return authsdk.MeResponse{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Email:    u.Email,
		Roles:    u.Roles,
	}
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, status int, sess *domain.IssuedSession) {
	h.Cookie.set(w, sess.RefreshToken, sess.RefreshExpiresAt)
	httpx.WriteJSON(w, status, authsdk.TokenResponse{Token: sess.AccessToken})
}

// internalError answers 503 when the database is unreachable and 500 with
// fallback otherwise.
func (h *AuthHandler) internalError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	log := slogx.FromContext(r.Context())
	if h.Store != nil && !databaseUp(r.Context(), h.Store) {
		log.Error("database not available", "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "Database not available")
		return
	}
	log.Error(fallback, "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, fallback)
}

func databaseUp(ctx context.Context, st store.Store) bool {
	return st.Ping(ctx) == nil
}
