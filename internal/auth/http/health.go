package http

import (
	"context"
	"net/http"
	"time"

	"github.com/cognify-learn/cognify/internal/auth/store"
	"github.com/cognify-learn/cognify/pkg/authsdk"
	"github.com/cognify-learn/cognify/pkg/httpx"
	"github.com/cognify-learn/cognify/pkg/jwtx"
)

const readinessTimeout = 2 * time.Second

// HealthHandler answers the container probes.
type HealthHandler struct {
	Started time.Time
	Version string
	Store   store.Store
	Keys    *jwtx.KeySet
}

func (h *HealthHandler) response(status string) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(h.Started).Round(time.Second).String(),
		Version: h.Version,
	}
}

// HandleLivez godoc
//
//	@Summary		Liveness probe
//	@Description	Answers 200 whenever the process is serving requests
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func (h *HealthHandler) HandleLivez(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.response("ok"))
}

// HandleReadyz godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the database and the token signer. Any failing check makes the service degraded.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"all checks pass"
//	@Failure		503	{object}	authsdk.HealthResponse	"service not ready"
//	@Router			/readyz [get].
func (h *HealthHandler) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := &authsdk.HealthChecks{
		Database: checkResult(h.Store.Ping(ctx)),
		Signer:   "ok",
	}
	if !h.Keys.IsReady() {
		checks.Signer = "error: no keys loaded"
	}

	resp, code := h.response("ok"), http.StatusOK
	if checks.Database != "ok" || checks.Signer != "ok" {
		resp.Status, code = "degraded", http.StatusServiceUnavailable
	}
	resp.Checks = checks
	httpx.WriteJSON(w, code, resp)
}

func checkResult(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
