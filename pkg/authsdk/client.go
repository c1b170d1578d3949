package authsdk

import (
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// SDKClient talks to the cognify auth endpoints. Its HTTP client carries a
// cookie jar: the refresh endpoint is authenticated by the httpOnly cookie
// set at login, never by a header.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient returns a client with an in-memory cookie jar.
func NewSDKClient(baseURL string) *SDKClient {
	jar, _ := cookiejar.New(nil) // only fails with a non-nil options value
	return NewSDKClientWithJar(baseURL, jar)
}

// NewSDKClientWithJar lets the caller supply the jar, typically a
// PersistentJar so the refresh cookie outlives the process.
func NewSDKClientWithJar(baseURL string, jar http.CookieJar) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

var _ Endpoints = (*SDKClient)(nil)
