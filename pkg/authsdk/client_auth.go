package authsdk

import (
	"context"
	"errors"
	"net/http"
)

// Endpoint paths served by the auth service.
const (
	PathSignup  = "/api/v1/auth/signup"
	PathLogin   = "/api/v1/auth/login"
	PathRefresh = "/api/v1/auth/refresh"
	PathLogout  = "/api/v1/auth/logout"
	PathMe      = "/api/v1/auth/me"

	// RefreshCookieName is the httpOnly cookie holding the refresh token.
	RefreshCookieName = "refreshToken"
)

var errEmptyToken = errors.New("authsdk: response carried no token")

// Endpoints is everything SessionManager needs from the auth service.
type Endpoints interface {
	Refresh(ctx context.Context) (string, error)
	Login(ctx context.Context, handle, password string) (string, error)
	Signup(ctx context.Context, req SignupRequest) (string, error)
	Logout(ctx context.Context, credential string) error
}

// Refresh exchanges the refresh cookie for a new credential.
func (c *SDKClient) Refresh(ctx context.Context) (string, error) {
	return c.postForToken(ctx, PathRefresh, struct{}{})
}

func (c *SDKClient) Login(ctx context.Context, handle, password string) (string, error) {
	return c.postForToken(ctx, PathLogin, LoginRequest{Handle: handle, Password: password})
}

func (c *SDKClient) Signup(ctx context.Context, req SignupRequest) (string, error) {
	return c.postForToken(ctx, PathSignup, req)
}

// Logout revokes the refresh cookie server side. The credential is sent
// when known but is not required.
func (c *SDKClient) Logout(ctx context.Context, credential string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, PathLogout, nil, credential)
	if err != nil {
		return err
	}
	var out MessageResponse
	return decodeJSON(resp, &out)
}

// Me asks the server who the credential belongs to.
func (c *SDKClient) Me(ctx context.Context, credential string) (*MeResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, PathMe, nil, credential)
	if err != nil {
		return nil, err
	}
	var me MeResponse
	if err := decodeJSON(resp, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

func (c *SDKClient) postForToken(ctx context.Context, path string, body any) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, path, body, "")
	if err != nil {
		return "", err
	}
	var tok TokenResponse
	if err := decodeJSON(resp, &tok); err != nil {
		return "", err
	}
	if tok.Token == "" {
		return "", errEmptyToken
	}
	return tok.Token, nil
}
