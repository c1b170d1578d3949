package apiclient_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cognify-learn/cognify/pkg/apiclient"
	"github.com/cognify-learn/cognify/pkg/authsdk"
	"github.com/cognify-learn/cognify/pkg/slogx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// refreshOnly hands out one fixed credential on Refresh and counts calls.
type refreshOnly struct {
	token string
	calls atomic.Int32
}

func (r *refreshOnly) Refresh(context.Context) (string, error) {
	r.calls.Add(1)
	time.Sleep(20 * time.Millisecond)
	return r.token, nil
}

func (r *refreshOnly) Login(context.Context, string, string) (string, error) { return "", nil }

func (r *refreshOnly) Signup(context.Context, authsdk.SignupRequest) (string, error) {
	return "", nil
}

func (r *refreshOnly) Logout(context.Context, string) error { return nil }

func TestConcurrent401sShareOneRenewal(t *testing.T) {
	const workers = 16

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	_, srv := serve(t, func(_ int, w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+tok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	endpoints := &refreshOnly{token: tok}
	sm := authsdk.New(endpoints, authsdk.WithLogger(slogx.Discard()))

	var failures atomic.Int32
	c := apiclient.New(srv.URL, sm.Credential, sm.EnsureCredential, quiet(),
		apiclient.WithOnAuthFailure(func() { failures.Add(1) }))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Get(context.Background(), "/courses")
			if assert.NoError(t, err) {
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, endpoints.calls.Load())
	require.Zero(t, failures.Load())
	require.True(t, sm.State().Authenticated())
}
