package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store"
)

// AuthorizationCodeGrant exchanges a one-time code for an access token and a
// refresh token.
type AuthorizationCodeGrant struct {
	Codes  *AuthorizationCodeService
	Tokens TokenFactory
}

func (g *AuthorizationCodeGrant) CreateAccessToken(
	ctx context.Context,
	tx store.Tx,
	client domain.Client,
	req TokenRequest,
) (*domain.AccessToken, error) {
	if req.Code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrInvalidRequest)
	}

	code, err := g.Codes.Consume(ctx, tx, req.Code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid authorization code", ErrInvalidGrant)
	}
	if err != nil {
		return nil, err
	}

	if code.Scopes.IsEmpty() {
		return nil, fmt.Errorf("%w: authorization code carries no approved scopes", ErrInvalidScope)
	}
	if !code.Scopes.SubsetOf(client.Scopes) {
		return nil, fmt.Errorf("%w: approved scopes exceed client scopes", ErrInvalidScope)
	}
	if code.IsExpired(g.Tokens.now()) {
		return nil, fmt.Errorf("%w: authorization code expired", ErrInvalidGrant)
	}
	if redirectMismatch(code.RedirectURI, req.RedirectURI) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGrant, ErrRedirectMismatch)
	}
	if code.ClientID != client.ID {
		return nil, fmt.Errorf("%w: authorization code was issued to another client", ErrInvalidClient)
	}
	if err := verifyPKCE(code.CodeChallenge, code.CodeChallengeMethod, req.CodeVerifier); err != nil {
		return nil, err
	}

	return g.Tokens.NewAccessToken(client, code.Username, code.Scopes, domain.GrantAuthorizationCode, true)
}

// redirectMismatch compares the redirect URI stored with a code to the one
// sent at the token endpoint. A code issued without an explicit redirect URI
// must be redeemed without one.
func redirectMismatch(stored, requested string) bool {
	if stored == "" {
		return requested != ""
	}
	return requested != "" && requested != stored
}
