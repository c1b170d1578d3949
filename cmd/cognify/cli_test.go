package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cognify-learn/cognify/internal/auth/app"
	"github.com/cognify-learn/cognify/pkg/apiclient"
	"github.com/cognify-learn/cognify/pkg/credstore"
	"github.com/stretchr/testify/require"
)

// env is one auth server plus a CLI config pointing at it.
type env struct {
	server    *httptest.Server
	configDir string
	config    string
	storeFile string
}

func newEnv(t *testing.T, extra string) *env {
	t.Helper()
	dir := t.TempDir()

	a, err := app.New(app.Config{
		Issuer:               "cognify-auth",
		DatabaseFile:         filepath.Join(dir, "auth.db"),
		PepperFile:           filepath.Join(dir, "pepper"),
		AccessTTL:            time.Minute,
		RefreshTTL:           time.Hour,
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "text",
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	})
	require.NoError(t, err)
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = a.Shutdown()
	})

	e := &env{
		server:    srv,
		configDir: dir,
		config:    filepath.Join(dir, "config.yaml"),
		storeFile: filepath.Join(dir, "credentials.json"),
	}
	yaml := fmt.Sprintf("base_url: %s\ntimeout: 5s\nretries: 1\nstore_file: %s\nlog_level: error\n%s", srv.URL, e.storeFile, extra)
	require.NoError(t, os.WriteFile(e.config, []byte(yaml), 0o600))
	return e
}

// run executes one CLI invocation, like a fresh process would.
func (e *env) run(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err = cmd.ExecuteContext(t.Context())
	return out.String(), errOut.String(), err
}

func (e *env) signup(t *testing.T, username string) {
	t.Helper()
	out, _, err := e.run(t, "Student123!\n", "signup",
		"--name", "Student "+username, "--username", username, "--email", username+"@example.com")
	require.NoError(t, err)
	require.Equal(t, "Welcome, Student "+username+"\n", out)
}

func TestSignupWhoamiLogout(t *testing.T) {
	e := newEnv(t, "")
	e.signup(t, "ada")

	out, _, err := e.run(t, "", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "ada <ada@example.com>")
	require.Contains(t, out, "roles: STUDENT")

	out, _, err = e.run(t, "", "whoami", "--local")
	require.NoError(t, err)
	require.Contains(t, out, "roles:   STUDENT")

	out, _, err = e.run(t, "", "logout")
	require.NoError(t, err)
	require.Equal(t, "Logged out\n", out)

	_, _, err = e.run(t, "", "whoami")
	require.ErrorIs(t, err, errNotLoggedIn)
}

func TestLoginWithPasswordFlag(t *testing.T) {
	e := newEnv(t, "")
	e.signup(t, "grace")
	_, _, err := e.run(t, "", "logout")
	require.NoError(t, err)

	_, _, err = e.run(t, "", "login", "grace@example.com", "-p", "wrong")
	require.EqualError(t, err, "Invalid credentials")

	out, _, err := e.run(t, "", "login", "grace", "-p", "Student123!")
	require.NoError(t, err)
	require.Equal(t, "Logged in as grace (STUDENT)\n", out)
}

func TestLoginNeedsPassword(t *testing.T) {
	e := newEnv(t, "")
	_, _, err := e.run(t, "", "login", "ada")
	require.EqualError(t, err, "a password is required")
}

func TestSignupValidation(t *testing.T) {
	e := newEnv(t, "")
	_, _, err := e.run(t, "", "signup", "--username", "x", "-p", "pw")
	require.EqualError(t, err, "All fields are required")
}

func TestRequestRenewsStoredSession(t *testing.T) {
	e := newEnv(t, "")
	e.signup(t, "alan")

	// Forget the access token; only the refresh cookie remains.
	store := credstore.NewFileStore(e.storeFile, nil)
	require.NoError(t, store.Delete(t.Context(), credstore.CredentialKey))

	out, stderr, err := e.run(t, "", "request", "get", "/api/v1/auth/me", "--metrics")
	require.NoError(t, err)
	require.Contains(t, out, `"username": "alan"`)
	require.Contains(t, stderr, `cognify_apiclient_requests_total{method="GET",outcome="ok"} 1`)

	stored, err := store.Load(t.Context(), credstore.CredentialKey)
	require.NoError(t, err)
	require.NotEmpty(t, stored, "the renewed credential is persisted")
}

func TestRequestWithoutSessionReportsExpiry(t *testing.T) {
	e := newEnv(t, "")

	_, stderr, err := e.run(t, "", "request", "GET", "/api/v1/auth/me")
	require.ErrorIs(t, err, apiclient.ErrUnauthorized)
	require.Equal(t, 1, strings.Count(stderr, "session expired, run cognify login"))
}

func TestRequestArguments(t *testing.T) {
	e := newEnv(t, "")

	_, _, err := e.run(t, "", "request", "TRACE", "/x")
	require.EqualError(t, err, `unsupported method "TRACE"`)

	_, _, err = e.run(t, "", "request", "POST", "/x", "--data", "{nope")
	require.EqualError(t, err, "--data must be valid JSON")

	_, _, err = e.run(t, "", "request", "GET", "/x", "-q", "novalue")
	require.ErrorContains(t, err, "malformed pair")

	out, _, err := e.run(t, "", "request", "GET", "/livez", "--anonymous", "-H", "X-Request-ID: cli-test")
	require.NoError(t, err)
	require.Contains(t, out, `"status": "ok"`)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	e := newEnv(t, fmt.Sprintf("store: redis\nredis_addr: %s\nredis_prefix: test\n", mr.Addr()))
	e.signup(t, "linus")

	require.True(t, mr.Exists("test:"+credstore.CredentialKey))
	require.True(t, mr.Exists("test:"+credstore.RefreshCookieKey))
	_, err := os.Stat(e.storeFile)
	require.ErrorIs(t, err, os.ErrNotExist)

	out, _, err := e.run(t, "", "whoami", "--local")
	require.NoError(t, err)
	require.Contains(t, out, "linus <linus@example.com>")

	_, _, err = e.run(t, "", "watch")
	require.EqualError(t, err, `watch needs the "file" store`)
}

func TestRedisUnreachable(t *testing.T) {
	e := newEnv(t, "store: redis\nredis_addr: 127.0.0.1:1\n")
	_, _, err := e.run(t, "", "whoami")
	require.ErrorContains(t, err, "unreachable")
}

func TestWatchFollowsOtherProcesses(t *testing.T) {
	e := newEnv(t, "")

	ctx, cancel := context.WithCancel(t.Context())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		cmd := newRootCmd()
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--config", e.config, "watch"})
		done <- cmd.ExecuteContext(ctx)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "signed out")
	}, 5*time.Second, 20*time.Millisecond)

	e.signup(t, "ken")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "signed in as ken [STUDENT]")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestVersion(t *testing.T) {
	out, _, err := (&env{config: filepath.Join(t.TempDir(), "absent.yaml")}).run(t, "", "version")
	require.NoError(t, err)
	require.Equal(t, "cognify version "+Version+"\n", out)
}

func TestDescribeSession(t *testing.T) {
	now := time.Now()
	require.Equal(t, "signed out", describeSession("", now))
	require.Equal(t, "signed in, access token expired", describeSession("not.a.jwt", now))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
