package app

import (
	"fmt"
	"log/slog"

	httpapi "github.com/aussiebroadwan/oauthd/internal/oauth/http"
	"github.com/aussiebroadwan/oauthd/pkg/clockx"
	"github.com/aussiebroadwan/oauthd/pkg/cryptox"
	"github.com/aussiebroadwan/oauthd/pkg/jwtx"
)

// sessionKeyID names the single session signing key.
const sessionKeyID = "oauthd-session-1"

// InitSessionKeys loads the Ed25519 key that signs login session tokens.
//
// With SessionKeyFile unset the key is generated on startup and kept only in
// memory, so every restart logs all users out. With a path the key is read
// from the file, or written there on first start.
func InitSessionKeys(cfg Config, clock clockx.Clock, logger *slog.Logger) (*jwtx.EdDSASigner, jwtx.Verifier, error) {
	key, err := cryptox.LoadOrGenerateEd25519Key(cfg.SessionKeyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session key: %w", err)
	}

	signer, err := jwtx.NewSignerEdDSA(sessionKeyID, key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session signer: %w", err)
	}

	verifier := jwtx.NewVerifierEdDSA(
		signer.KID(),
		signer.PublicKey(),
		cfg.Issuer,
		[]string{httpapi.SessionAudience},
		clock.Now,
	)

	if cfg.SessionKeyFile == "" {
		logger.Warn("session key is ephemeral; sessions end when the service restarts")
	} else {
		logger.Info("session key loaded", "path", cfg.SessionKeyFile, "kid", signer.KID())
	}

	return signer, verifier, nil
}
