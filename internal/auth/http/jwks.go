package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cognify-learn/cognify/pkg/authsdk"
	"github.com/cognify-learn/cognify/pkg/cryptox"
	"github.com/cognify-learn/cognify/pkg/httpx"
	"github.com/cognify-learn/cognify/pkg/jwtx"
)

// jwksMaxAge is how long verifiers may cache the key set.
const jwksMaxAge = 5 * time.Minute

// JWKSHandler publishes the Ed25519 verification keys so resource services
// can check access tokens without calling back here. Responses carry an
// ETag derived from the key set and honour If-None-Match.
//
//	@Summary		Get JWKS
//	@Description	Returns the key set that verifies access tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Success		304	"Key set unchanged"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := json.Marshal(authsdk.JWKSResponse(keys.PublicJWKS()))
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "Failed to encode key set")
			return
		}
		etag := `"` + cryptox.FingerprintToken(string(body))[:16] + `"`

		h := w.Header()
		h.Set("ETag", etag)
		h.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(jwksMaxAge.Seconds())))
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		h.Set("Content-Type", "application/json")
		_, _ = w.Write(append(body, '\n'))
	}
}
