//go:build e2e

package auth_test

import (
	"net/http"
	"testing"

	"github.com/cognify-learn/cognify/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestLoginRateLimit runs with the production limits: five credential
// attempts per minute per client.
func TestLoginRateLimit(t *testing.T) {
	baseURL := setupAuthContainer(t, map[string]string{
		"RATELIMIT_AUTH_REQUESTS":   "",
		"RATELIMIT_AUTH_WINDOW_SEC": "",
		"RATELIMIT_AUTH_BURST":      "",
	})
	sdk := authsdk.NewSDKClient(baseURL)

	var apiErr *authsdk.APIError
	for i := range 5 {
		_, err := sdk.Login(t.Context(), "mallory", "guess")
		require.ErrorAs(t, err, &apiErr, "attempt %d", i+1)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	}

	_, err := sdk.Login(t.Context(), "mallory", "guess")
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)

	// Health probes are not starved by a locked out client.
	_, err = sdk.GetLiveness(t.Context())
	require.NoError(t, err)
}
