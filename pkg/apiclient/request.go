package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"
)

// Request describes a single logical call. Execute never mutates it.
type Request struct {
	Method string
	Path   string // appended to the client's base URL
	Query  url.Values

	// Body is sent as is when it is a []byte or string, read once up front
	// when it is an io.Reader and JSON encoded otherwise. A nil Body sends
	// no body.
	Body   any
	Header http.Header

	// Timeout bounds each attempt. Zero uses the client default.
	Timeout time.Duration

	// Retries overrides the client's retry budget when non-nil.
	Retries *int

	// BaseDelay overrides the client's initial backoff when non-zero.
	BaseDelay time.Duration

	// SkipAuth sends no credential and never triggers renewal.
	SkipAuth bool

	// Silent demotes failure logging to debug, for failures the caller
	// expects.
	Silent bool
}

// Retries returns a pointer suitable for Request.Retries.
func Retries(n int) *int { return &n }

// RequestOption adjusts a Request built by the convenience methods.
type RequestOption func(*Request)

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = make(http.Header)
		}
		r.Header.Set(key, value)
	}
}

func WithQuery(q url.Values) RequestOption {
	return func(r *Request) { r.Query = q }
}

func WithRequestTimeout(d time.Duration) RequestOption {
	return func(r *Request) { r.Timeout = d }
}

func WithRetries(n int) RequestOption {
	return func(r *Request) { r.Retries = Retries(n) }
}

func WithBaseDelay(d time.Duration) RequestOption {
	return func(r *Request) { r.BaseDelay = d }
}

// SkipAuth marks the request as anonymous.
func SkipAuth() RequestOption {
	return func(r *Request) { r.SkipAuth = true }
}

// Silent marks failures of the request as expected.
func Silent() RequestOption {
	return func(r *Request) { r.Silent = true }
}

// Response is a successful (2xx) answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Value is the decoded body: the result of json.Unmarshal into an any
	// for JSON responses, the body as a string otherwise, nil when empty.
	// A JSON response that does not decode fails with ErrResponse.
	Value any
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, "", nil
	case string:
		return []byte(b), "", nil
	case io.Reader:
		data, err := io.ReadAll(b)
		return data, "", err
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("apiclient: encode body: %w", err)
		}
		return data, "application/json", nil
	}
}

func newResponse(res *http.Response, body []byte) (*Response, error) {
	v, err := decodeValue(res.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       body,
		Value:      v,
	}, nil
}

// decodeValue decodes JSON media types and returns any other body as a
// string. A body declared as JSON that does not parse is an error.
func decodeValue(contentType string, body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && isJSON(mt) {
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("apiclient: decode %s body: %w", mt, err)
		}
		return v, nil
	}
	return string(body), nil
}

func isJSON(mediaType string) bool {
	return mediaType == "application/json" || (len(mediaType) > 5 && mediaType[len(mediaType)-5:] == "+json")
}
