package authsdk_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cognify-learn/cognify/pkg/authsdk"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// mint signs claims with a throwaway HMAC key. Decode never checks the
// signature, so any key will do.
func mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

func validToken(t *testing.T, id string, roles ...string) string {
	t.Helper()
	c := jwt.MapClaims{
		"id":       id,
		"username": id,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	if len(roles) > 0 {
		c["roles"] = roles
	}
	return mint(t, c)
}

func expiredToken(t *testing.T, id string) string {
	t.Helper()
	return mint(t, jwt.MapClaims{"id": id, "exp": time.Now().Add(-time.Minute).Unix()})
}

// fakeEndpoints stands in for the auth service. Refresh blocks on gate
// when it is non-nil.
type fakeEndpoints struct {
	refreshCalls atomic.Int32
	loginCalls   atomic.Int32
	logoutCalls  atomic.Int32

	mu         sync.Mutex
	refreshTok string
	refreshErr error
	loginTok   string
	loginErr   error
	logoutErr  error
	gate       chan struct{}
	refreshCtx context.Context
}

func (f *fakeEndpoints) setRefresh(tok string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshTok, f.refreshErr = tok, err
}

func (f *fakeEndpoints) Refresh(ctx context.Context) (string, error) {
	f.refreshCalls.Add(1)

	f.mu.Lock()
	gate := f.gate
	f.refreshCtx = ctx
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshTok, f.refreshErr
}

func (f *fakeEndpoints) Login(_ context.Context, _, _ string) (string, error) {
	f.loginCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginTok, f.loginErr
}

func (f *fakeEndpoints) Signup(_ context.Context, _ authsdk.SignupRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginTok, f.loginErr
}

func (f *fakeEndpoints) Logout(context.Context, string) error {
	f.logoutCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutErr
}

var errRefreshDenied = errors.New("refresh denied")

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Load(context.Context, string) (string, error) { return "", errors.New("disk on fire") }
func (failingStore) Save(context.Context, string, string) error   { return errors.New("disk on fire") }
func (failingStore) Delete(context.Context, string) error         { return errors.New("disk on fire") }
