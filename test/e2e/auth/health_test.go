//go:build e2e

package auth_test

import (
	"net/http"
	"testing"

	"github.com/cognify-learn/cognify/pkg/apiclient"
	"github.com/cognify-learn/cognify/pkg/authsdk"
	"github.com/cognify-learn/cognify/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	baseURL := setupAuthContainer(t, nil)
	sdk := authsdk.NewSDKClient(baseURL)

	live, err := sdk.GetLiveness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.NotEmpty(t, live.Uptime)

	ready, err := sdk.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Signer)
}

// TestTokensVerifyAgainstPublishedKeys is what a resource service does: it
// fetches the JWKS once and verifies bearer credentials offline.
func TestTokensVerifyAgainstPublishedKeys(t *testing.T) {
	baseURL := setupAuthContainer(t, nil)
	ctx := t.Context()
	sdk := authsdk.NewSDKClient(baseURL)

	keys, err := sdk.KeySet(ctx)
	require.NoError(t, err)
	require.True(t, keys.IsReady())

	token, err := sdk.Signup(ctx, signupRequest("ada"))
	require.NoError(t, err)

	claims, err := jwtx.NewVerifierEdDSA(keys, "cognify-auth", nil).Verify(token)
	require.NoError(t, err)
	require.Equal(t, "ada", claims.Username)
	require.True(t, claims.HasRole(jwtx.RoleStudent))
}

func TestUnknownRouteIsClientError(t *testing.T) {
	baseURL := setupAuthContainer(t, nil)
	api := apiclient.New(baseURL, func() string { return "" }, nil)

	_, err := api.Get(t.Context(), "/api/v1/nope", apiclient.SkipAuth(), apiclient.Silent())
	require.ErrorIs(t, err, apiclient.ErrClient)
	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
