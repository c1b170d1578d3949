package http

import (
	"errors"
	"net/http"

	"github.com/cognify-learn/cognify/internal/auth/service"
	"github.com/cognify-learn/cognify/internal/auth/store"
	"github.com/cognify-learn/cognify/pkg/httpx"
	"github.com/cognify-learn/cognify/pkg/slogx"
)

// RolesRequest replaces a user's roles.
type RolesRequest struct {
	Roles []string `json:"roles"`
}

// RolesHandler lets an ADMIN change another user's roles.
type RolesHandler struct {
	Users *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Set user roles
//	@Description	Replaces the roles of a user. Requires the ADMIN role. Takes effect on the user's next renewal.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"User ID"
//	@Param			body	body		RolesRequest	true	"Roles"
//	@Success		200		{object}	authsdk.MeResponse
//	@Failure		400		{object}	httpx.CodedErrorBody
//	@Failure		403		{object}	httpx.CodedErrorBody
//	@Failure		404		{object}	httpx.CodedErrorBody
//	@Router			/api/v1/users/{id}/roles [put].
func (h *RolesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	var req RolesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteErrorCode(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	if err := h.Users.SetRoles(ctx, id, req.Roles); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteErrorCode(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		case errors.Is(err, service.ErrUnknownRole):
			httpx.WriteErrorCode(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		default:
			slogx.FromContext(ctx).Error("set roles failed", "user_id", id, "err", err)
			httpx.WriteErrorCode(w, http.StatusInternalServerError, "INTERNAL", "Failed to update roles")
		}
		return
	}

	u, err := h.Users.GetUserByID(ctx, id)
	if err != nil {
		httpx.WriteErrorCode(w, http.StatusInternalServerError, "INTERNAL", "Failed to load user")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, meResponse(u))
}
