// Package apiclient executes HTTP calls against the Cognify API with a
// per-attempt timeout, bounded retries with exponential backoff, bearer
// credential attachment and a single reauthentication on 401.
//
// The client knows nothing about sessions. It is handed two functions: one
// that returns the current credential without blocking, and one that renews
// it. authsdk.SessionManager provides both:
//
//	sm := authsdk.New(sdk, authsdk.WithStore(store))
//	c := apiclient.New(baseURL, sm.Credential, sm.EnsureCredential,
//		apiclient.WithOnAuthFailure(func() { fmt.Println("session expired") }))
//
// Concurrent requests that all hit a 401 share the manager's single renewal.
package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cognify-learn/cognify/pkg/idx"
	"github.com/cognify-learn/cognify/pkg/slogx"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 10 << 20
)

var errAttemptTimeout = errors.New("attempt timeout")

// CredentialFunc returns the current credential or "". It must not block.
type CredentialFunc func() string

// RenewFunc obtains a fresh credential, returning "" when there is no
// session. The error is reserved for ctx ending while it waits.
type RenewFunc func(ctx context.Context) (string, error)

// Client executes Requests. It is safe for concurrent use.
type Client struct {
	baseURL       string
	credential    CredentialFunc
	renew         RenewFunc
	httpClient    *http.Client
	retryConfig   RetryConfig
	timeout       time.Duration
	logger        *slog.Logger
	onAuthFailure func()
	metrics       *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. Its own Timeout should be zero
// or larger than the per-attempt timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) { c.retryConfig = cfg }
}

// WithTimeout sets the default per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithOnAuthFailure sets the callback run when a request ends unauthorized
// and renewal could not help. It runs at most once per request.
func WithOnAuthFailure(fn func()) Option {
	return func(c *Client) { c.onAuthFailure = fn }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New returns a client for baseURL. Either func may be nil, which behaves
// like a client with no session.
func New(baseURL string, credential CredentialFunc, renew RenewFunc, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		credential:  credential,
		renew:       renew,
		httpClient:  &http.Client{},
		retryConfig: DefaultRetryConfig(),
		timeout:     defaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.credential == nil {
		c.credential = func() string { return "" }
	}
	if c.renew == nil {
		c.renew = func(context.Context) (string, error) { return "", nil }
	}
	return c
}

// call is the per-Execute working state.
type call struct {
	req     Request
	url     string
	body    []byte
	header  http.Header
	timeout time.Duration
	reqID   string

	authFailOnce sync.Once
}

// Execute runs req until it succeeds, fails terminally or runs out of
// retries. Every failure is an *Error.
func (c *Client) Execute(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.execute(ctx, req)
	c.metrics.observeRequest(methodOf(req), err)
	return resp, err
}

func (c *Client) execute(ctx context.Context, req Request) (*Response, error) {
	cl, err := c.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	budget := c.retryConfig.MaxRetries
	if req.Retries != nil {
		budget = *req.Retries
	}
	base := c.retryConfig.BaseDelay
	if req.BaseDelay > 0 {
		base = req.BaseDelay
	}

	cred := ""
	if !req.SkipAuth {
		cred = c.credential()
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.attempt(ctx, cl, cred)
		if err == nil {
			return resp, nil
		}

		switch err.Kind {
		case KindUnauthorized:
			if req.SkipAuth {
				return nil, c.fail(cl, err)
			}
			if attempt > 0 {
				c.authFailed(cl)
				return nil, c.fail(cl, err)
			}
			return c.reauthenticate(ctx, cl, err)

		case KindServer, KindNetwork:
			if attempt >= budget {
				return nil, c.fail(cl, err)
			}
			delay := c.retryConfig.backoff(base, attempt)
			c.logger.Debug("request failed, retrying",
				"req_id", cl.reqID,
				"method", cl.req.Method,
				"path", cl.req.Path,
				"attempt", attempt+1,
				"backoff", delay,
				"error", err)
			if werr := c.wait(ctx, cl, delay); werr != nil {
				return nil, c.fail(cl, werr)
			}
			c.metrics.observeRetry()

		default:
			return nil, c.fail(cl, err)
		}
	}
}

// reauthenticate renews the credential after a 401 on the first attempt
// and runs exactly one more attempt with the result.
func (c *Client) reauthenticate(ctx context.Context, cl *call, unauthorized *Error) (*Response, error) {
	cred, err := c.renew(ctx)
	if ctx.Err() != nil {
		return nil, c.fail(cl, c.cancelled(ctx, cl, err))
	}
	if err != nil {
		cred = ""
		unauthorized.Err = err
	}
	c.metrics.observeReauth(cred != "")
	if cred == "" {
		c.authFailed(cl)
		return nil, c.fail(cl, unauthorized)
	}

	resp, aerr := c.attempt(ctx, cl, cred)
	if aerr == nil {
		return resp, nil
	}
	if aerr.Kind == KindUnauthorized {
		c.authFailed(cl)
	}
	return nil, c.fail(cl, aerr)
}

func (c *Client) prepare(ctx context.Context, req Request) (*call, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, &Error{Kind: KindClient, Method: req.Method, Path: req.Path, Message: "invalid request body", Err: err}
	}

	header := req.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if contentType != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", contentType)
	}
	if header.Get("Accept") == "" {
		header.Set("Accept", "application/json")
	}

	reqID := header.Get(slogx.RequestIDHeader)
	if reqID == "" {
		reqID = slogx.RequestID(ctx)
	}
	if reqID == "" {
		reqID = idx.NewRequestID()
	}
	header.Set(slogx.RequestIDHeader, reqID)

	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	return &call{req: req, url: u, body: body, header: header, timeout: timeout, reqID: reqID}, nil
}

// attempt performs one HTTP round trip under its own timeout.
func (c *Client) attempt(ctx context.Context, cl *call, cred string) (*Response, *Error) {
	actx, cancel := context.WithTimeoutCause(ctx, cl.timeout, errAttemptTimeout)
	defer cancel()

	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}
	httpReq, err := http.NewRequestWithContext(actx, cl.req.Method, cl.url, body)
	if err != nil {
		return nil, &Error{Kind: KindClient, Method: cl.req.Method, Path: cl.req.Path, Message: "invalid request", Err: err}
	}
	httpReq.Header = cl.header.Clone()
	if cred != "" && !cl.req.SkipAuth {
		httpReq.Header.Set("Authorization", "Bearer "+cred)
	}

	start := time.Now()
	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.observeAttempt(cl.req.Method, time.Since(start))
		return nil, c.transportError(ctx, actx, cl, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize+1))
	c.metrics.observeAttempt(cl.req.Method, time.Since(start))
	if err != nil {
		return nil, c.transportError(ctx, actx, cl, err)
	}
	oversized := len(data) > maxResponseSize
	if oversized {
		data = data[:maxResponseSize]
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		// Error bodies are cut to the limit; they only feed the message.
		return nil, statusError(cl.req.Method, cl.req.Path, res.StatusCode, data)
	}
	if oversized {
		return nil, &Error{
			Kind:       KindResponse,
			Method:     cl.req.Method,
			Path:       cl.req.Path,
			StatusCode: res.StatusCode,
			Message:    fmt.Sprintf("response body exceeds %d bytes", maxResponseSize),
		}
	}
	resp, err := newResponse(res, data)
	if err != nil {
		return nil, &Error{
			Kind:       KindResponse,
			Method:     cl.req.Method,
			Path:       cl.req.Path,
			StatusCode: res.StatusCode,
			Message:    "response body does not match its content type",
			Err:        err,
		}
	}
	return resp, nil
}

// transportError tells the attempt timer apart from the caller giving up.
func (c *Client) transportError(ctx, actx context.Context, cl *call, err error) *Error {
	switch {
	case ctx.Err() != nil:
		return c.cancelled(ctx, cl, err)
	case errors.Is(context.Cause(actx), errAttemptTimeout):
		return &Error{
			Kind:    KindTimeout,
			Method:  cl.req.Method,
			Path:    cl.req.Path,
			Message: fmt.Sprintf("no response within %s", cl.timeout),
			Err:     err,
		}
	default:
		return &Error{Kind: KindNetwork, Method: cl.req.Method, Path: cl.req.Path, Err: err}
	}
}

func (c *Client) cancelled(ctx context.Context, cl *call, err error) *Error {
	if err == nil {
		err = ctx.Err()
	}
	return &Error{Kind: KindCancelled, Method: cl.req.Method, Path: cl.req.Path, Err: err}
}

// wait sleeps for d unless ctx ends first.
func (c *Client) wait(ctx context.Context, cl *call, d time.Duration) *Error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return c.cancelled(ctx, cl, ctx.Err())
	case <-t.C:
		return nil
	}
}

func (c *Client) authFailed(cl *call) {
	if c.onAuthFailure == nil {
		return
	}
	cl.authFailOnce.Do(c.onAuthFailure)
}

// fail logs a terminal failure and returns it as an error.
func (c *Client) fail(cl *call, err *Error) error {
	level := slog.LevelWarn
	if cl.req.Silent {
		level = slog.LevelDebug
	}
	c.logger.Log(context.Background(), level, "request failed",
		"req_id", cl.reqID,
		"method", cl.req.Method,
		"path", cl.req.Path,
		"kind", err.Kind.String(),
		"status", err.StatusCode,
		"error", err.Message)
	return err
}

func methodOf(req Request) string {
	if req.Method == "" {
		return http.MethodGet
	}
	return req.Method
}
