package app

import (
	"fmt"
	"log/slog"

	"github.com/cognify-learn/cognify/pkg/cryptox"
	"github.com/cognify-learn/cognify/pkg/jwtx"
)

// AuthKeys bundles the signer with the key set and verifier built from it.
type AuthKeys struct {
	Signer   *jwtx.EdDSASigner
	KeySet   *jwtx.KeySet
	Verifier *jwtx.EdDSAVerifier
}

// InitAuthKeys loads the Ed25519 signing key from cfg.KeyFile, creating it
// on first start. Without a key file the key lives only in memory and every
// issued token dies with the process.
//
// The kid is derived from the key itself so it stays stable across restarts.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*AuthKeys, error) {
	pemKey, err := cryptox.LoadOrGenerateEd25519Key(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}

	kid := cryptox.FingerprintToken(string(pemKey))[:16]
	signer, err := jwtx.NewSignerEdDSA(kid, pemKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return nil, fmt.Errorf("failed to publish signing key: %w", err)
	}

	if cfg.KeyFile == "" {
		logger.Warn("using an ephemeral signing key; tokens will not survive a restart", "kid", kid)
	} else {
		logger.Info("signing key loaded", "kid", kid, "path", cfg.KeyFile)
	}

	return &AuthKeys{
		Signer:   signer,
		KeySet:   keys,
		Verifier: jwtx.NewVerifierEdDSA(keys, cfg.Issuer, cfg.Audience),
	}, nil
}
