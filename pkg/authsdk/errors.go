package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer from the auth service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("authsdk: HTTP %d: %s", e.StatusCode, e.Message)
}

// ErrAuthActionFailed matches every *AuthActionError via errors.Is.
var ErrAuthActionFailed = errors.New("authsdk: auth action failed")

// AuthActionError reports a rejected login or signup. Message is safe to
// show to the user as is.
type AuthActionError struct {
	Op         string // "login" or "signup"
	StatusCode int    // zero when the server was never reached
	Message    string
	Err        error
}

func (e *AuthActionError) Error() string { return e.Message }

func (e *AuthActionError) Unwrap() error { return e.Err }

func (e *AuthActionError) Is(target error) bool { return target == ErrAuthActionFailed }

// newAuthActionError keeps the server's message when there is one and
// falls back to a generic one otherwise.
func newAuthActionError(op, fallback string, err error) *AuthActionError {
	ae := &AuthActionError{Op: op, Message: fallback, Err: err}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		ae.StatusCode = apiErr.StatusCode
		if apiErr.Message != "" {
			ae.Message = apiErr.Message
		}
	}
	return ae
}

// parseErrorResponse turns an error body into an *APIError. It understands
// {"error":"..."}, {"error":{"message":"..."}} and plain text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	msg := errorMessage(body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func errorMessage(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Error) > 0 {
		var s string
		if json.Unmarshal(envelope.Error, &s) == nil {
			return s
		}
		var detail struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &detail) == nil {
			return detail.Message
		}
	}

	var s string
	if json.Unmarshal(body, &s) == nil {
		return s
	}
	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") {
		return text
	}
	return ""
}
