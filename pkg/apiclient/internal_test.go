package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cognify-learn/cognify/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{Multiplier: 2}
	require.Equal(t, time.Second, cfg.backoff(time.Second, 0))
	require.Equal(t, 2*time.Second, cfg.backoff(time.Second, 1))
	require.Equal(t, 4*time.Second, cfg.backoff(time.Second, 2))

	cfg.MaxDelay = 3 * time.Second
	require.Equal(t, 3*time.Second, cfg.backoff(time.Second, 5))

	cfg = RetryConfig{Multiplier: 2}
	require.Equal(t, time.Duration(1<<63-1), cfg.backoff(time.Second, 200), "overflow saturates")

	cfg = RetryConfig{Multiplier: 2, Jitter: 0.25}
	for range 100 {
		d := cfg.backoff(time.Second, 1)
		require.GreaterOrEqual(t, d, 1500*time.Millisecond)
		require.LessOrEqual(t, d, 2500*time.Millisecond)
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	require.Equal(t, 3, cfg.MaxRetries)
	require.Equal(t, time.Second, cfg.BaseDelay)
	require.Zero(t, cfg.Jitter)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		switch {
		case r.URL.Path == "/flaky" && n == 1:
			w.WriteHeader(http.StatusInternalServerError)
		case r.URL.Path == "/me" && r.Header.Get("Authorization") != "Bearer fresh":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, func() string { return "stale" },
		func(context.Context) (string, error) { return "fresh", nil },
		WithLogger(slogx.Discard()),
		WithMetrics(m),
		WithRetryConfig(RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, Multiplier: 2}))

	_, err := c.Get(context.Background(), "/flaky")
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "/me")
	require.NoError(t, err)
	_, err = c.Post(context.Background(), "/bad", make(chan int))
	require.ErrorIs(t, err, ErrClient)

	require.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "client")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.retries))
	require.Equal(t, 1.0, testutil.ToFloat64(m.reauths.WithLabelValues("renewed")))
	require.Equal(t, 1, testutil.CollectAndCount(m.attempts))

	n, err := testutil.GatherAndCount(reg, "cognify_apiclient_requests_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.observeRequest("GET", nil)
	m.observeAttempt("GET", time.Second)
	m.observeRetry()
	m.observeReauth(true)
}
