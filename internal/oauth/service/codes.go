package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/metrics"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store"
	"github.com/aussiebroadwan/oauthd/pkg/clockx"
	"github.com/aussiebroadwan/oauthd/pkg/cryptox"
)

const (
	DefaultCodeLength = 6

	// codeIssueAttempts bounds retries on a code hash collision.
	codeIssueAttempts = 5
)

// AuthorizationCodeService issues and redeems one-time authorization codes.
// Codes are stored by fingerprint only and expire after domain.AuthorizationCodeTTL.
type AuthorizationCodeService struct {
	Store      store.Store
	Clock      clockx.Clock
	CodeLength int // <= 0: DefaultCodeLength
	Metrics    *metrics.Metrics
}

// Issue stores a new code for req and returns its value.
func (s *AuthorizationCodeService) Issue(ctx context.Context, req domain.AuthorizationRequest) (string, error) {
	challenge, method, err := domain.NormalizePKCE(req.CodeChallenge, string(req.CodeChallengeMethod))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	length := s.CodeLength
	if length <= 0 {
		length = DefaultCodeLength
	}

	now := s.Clock.Now()
	for range codeIssueAttempts {
		code, err := cryptox.GenerateCode(length)
		if err != nil {
			return "", err
		}

		err = s.Store.AuthorizationCodes().CreateAuthorizationCode(ctx, domain.AuthorizationCode{
			CodeHash:            cryptox.FingerprintToken(code),
			ClientID:            req.ClientID,
			Username:            req.Username,
			RedirectURI:         req.RedirectURI,
			Scopes:              req.Scopes,
			CodeChallenge:       challenge,
			CodeChallengeMethod: method,
			ExpiresAt:           now.Add(domain.AuthorizationCodeTTL),
			CreatedAt:           now,
		})
		if errors.Is(err, store.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return "", err
		}

		s.Metrics.CodeIssued()
		return code, nil
	}

	return "", errors.New("authorization code space exhausted")
}

// Consume redeems code inside tx. Of any number of concurrent callers at most
// one succeeds; the others get store.ErrNotFound.
func (s *AuthorizationCodeService) Consume(ctx context.Context, tx store.Tx, code string) (domain.AuthorizationCode, error) {
	return tx.AuthorizationCodes().ConsumeAuthorizationCode(ctx, cryptox.FingerprintToken(code))
}
