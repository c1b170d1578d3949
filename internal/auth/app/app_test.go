package app

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognify-learn/cognify/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_KEY_FILE", "ENV", "COOKIE_SECURE", "ACCESS_TOKEN_EXPIRY", "REFRESH_TOKEN_EXPIRY", "PORT"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	require.Equal(t, "cognify-auth", cfg.Issuer)
	require.Empty(t, cfg.Audience)
	require.Equal(t, "dev", cfg.Env)
	require.False(t, cfg.CookieSecure)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 8080, cfg.Port)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("AUTH_AUDIENCE", "web, cli ,")
	t.Setenv("ENV", "prod")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "1h")
	t.Setenv("REFRESH_TOKEN_EXPIRY", "30d")
	t.Setenv("HOUSEKEEPING_INTERVAL", "5")
	t.Setenv("PORT", "not-a-number")

	cfg := LoadConfig()
	require.Equal(t, []string{"web", "cli"}, cfg.Audience)
	require.True(t, cfg.CookieSecure, "secure by default outside dev")
	require.Equal(t, time.Hour, cfg.AccessTTL)
	require.Equal(t, 30*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 5*time.Minute, cfg.HousekeepingInterval)
	require.Equal(t, 8080, cfg.Port)

	t.Setenv("COOKIE_SECURE", "false")
	require.False(t, LoadConfig().CookieSecure)
}

func testConfig(t *testing.T) Config {
	dir := t.TempDir()
	return Config{
		Issuer:               "test-issuer",
		KeyFile:              filepath.Join(dir, "signing.pem"),
		DatabaseFile:         filepath.Join(dir, "auth.db"),
		PepperFile:           filepath.Join(dir, "pepper"),
		AccessTTL:            time.Minute,
		RefreshTTL:           time.Hour,
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "text",
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	}
}

func TestKeysAreStableAcrossRestarts(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg)
	require.NoError(t, err)
	kid := a.keys.Signer.KID()
	require.NoError(t, a.db.Close())

	b, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.db.Close() })
	require.Equal(t, kid, b.keys.Signer.KID())

	cfg.KeyFile = ""
	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.db.Close() })
	require.NotEqual(t, kid, c.keys.Signer.KID())
}

func TestServeAndShutdown(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	baseURL := "http://" + ln.Addr().String()
	client := authsdk.NewSDKClient(baseURL)
	live, err := client.GetLiveness(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, BuildVersion, live.Version)

	m := authsdk.New(client)
	require.NoError(t, m.Signup(context.Background(), authsdk.SignupRequest{
		Name: "Ada", Username: "ada", Email: "ada@example.com", Password: "pw",
	}))
	me, err := client.Me(context.Background(), m.Credential())
	require.NoError(t, err)
	require.Equal(t, "ada", me.Username)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = http.Get(baseURL + "/livez")
	require.Error(t, err)
}
