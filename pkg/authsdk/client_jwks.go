package authsdk

import (
	"context"
	"net/http"

	"github.com/cognify-learn/cognify/pkg/jwtx"
)

// GetJWKS fetches the public keys that verify issued credentials.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", nil, "")
	if err != nil {
		return nil, err
	}
	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks); err != nil {
		return nil, err
	}
	return &jwks, nil
}

// KeySet loads the published keys into a verifier-ready jwtx.KeySet.
func (c *SDKClient) KeySet(ctx context.Context) (*jwtx.KeySet, error) {
	jwks, err := c.GetJWKS(ctx)
	if err != nil {
		return nil, err
	}
	ks := jwtx.NewKeySet()
	if err := ks.ResetFromJWKS(jwtx.JWKS(*jwks)); err != nil {
		return nil, err
	}
	return ks, nil
}
