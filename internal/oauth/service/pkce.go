package service

import (
	"fmt"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/pkg/cryptox"
)

// verifyPKCE checks a code verifier against the challenge stored with a code.
// Challenge and verifier must be both present or both absent.
func verifyPKCE(challenge string, method domain.PKCEMethod, verifier string) error {
	switch {
	case challenge == "" && verifier == "":
		return nil
	case challenge == "":
		return fmt.Errorf("%w: code_verifier sent but no code_challenge was registered", ErrInvalidGrant)
	case verifier == "":
		return fmt.Errorf("%w: code_verifier required", ErrInvalidGrant)
	}

	var transformed string
	switch method {
	case domain.PKCEMethodPlain, "":
		transformed = verifier
	case domain.PKCEMethodS256:
		transformed = cryptox.S256Challenge(verifier)
	default:
		return fmt.Errorf("%w: unsupported code_challenge_method %q", ErrInvalidGrant, method)
	}

	if !cryptox.ConstantTimeEqual(transformed, challenge) {
		return fmt.Errorf("%w: code_verifier does not match", ErrInvalidGrant)
	}
	return nil
}
