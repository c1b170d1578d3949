package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed request.
type Kind int

const (
	KindTimeout Kind = iota + 1
	KindCancelled
	KindUnauthorized
	KindClient
	KindServer
	KindNetwork
	// KindResponse is a 2xx answer whose body cannot be used: too large, or
	// not decodable as its declared content type. It is not retried.
	KindResponse
)

// Sentinels matched by errors.Is against an *Error of the same Kind.
var (
	ErrTimeout      = errors.New("apiclient: request timed out")
	ErrCancelled    = errors.New("apiclient: request cancelled")
	ErrUnauthorized = errors.New("apiclient: authentication failed")
	ErrClient       = errors.New("apiclient: request rejected")
	ErrServer       = errors.New("apiclient: server error")
	ErrNetwork      = errors.New("apiclient: network error")
	ErrResponse     = errors.New("apiclient: unusable response")
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	case KindUnauthorized:
		return "unauthorized"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindCancelled:
		return ErrCancelled
	case KindUnauthorized:
		return ErrUnauthorized
	case KindClient:
		return ErrClient
	case KindServer:
		return ErrServer
	case KindNetwork:
		return ErrNetwork
	case KindResponse:
		return ErrResponse
	default:
		return nil
	}
}

// Error is the only error type Execute returns for a request that was
// sent, or that was meant to be sent.
type Error struct {
	Kind       Kind
	Method     string
	Path       string
	StatusCode int    // zero for timeout, cancellation and network failures
	Code       string // machine readable code from the body, if any
	Message    string
	Data       any // decoded error body, if it was JSON
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "apiclient: %s %s: %s", e.Method, e.Path, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && e.Message == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the Kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsRetryable reports whether err is a server or network failure.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == KindServer || e.Kind == KindNetwork
}

// KindOf returns the Kind of err, or zero if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// statusError builds the error for a non-2xx response. It understands
// {"error":{"message","code"}}, {"error":"..."}, {"message":"..."} and
// plain text bodies.
func statusError(method, path string, status int, body []byte) *Error {
	e := &Error{Method: method, Path: path, StatusCode: status}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case status >= 500:
		e.Kind = KindServer
	default:
		e.Kind = KindClient
	}

	var data any
	if err := json.Unmarshal(body, &data); err == nil {
		e.Data = data
		e.Message, e.Code = errorFields(data)
	} else if text := strings.TrimSpace(string(body)); text != "" {
		e.Message = text
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func errorFields(data any) (message, code string) {
	switch v := data.(type) {
	case string:
		return v, ""
	case map[string]any:
		switch inner := v["error"].(type) {
		case string:
			return inner, stringField(v, "code")
		case map[string]any:
			return stringField(inner, "message"), stringField(inner, "code")
		}
		return stringField(v, "message"), stringField(v, "code")
	}
	return "", ""
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
