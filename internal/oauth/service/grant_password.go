package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store"
)

// PasswordGrant issues tokens for a resource owner's username and password.
// Scope is validated before credentials, so a bad scope never costs a
// password check.
type PasswordGrant struct {
	Tokens        TokenFactory
	Authenticator CredentialAuthenticator
}

func (g *PasswordGrant) CreateAccessToken(
	ctx context.Context,
	_ store.Tx,
	client domain.Client,
	req TokenRequest,
) (*domain.AccessToken, error) {
	if req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidRequest)
	}

	scopes, err := requestedScopes(req.Scopes, client)
	if err != nil {
		return nil, err
	}

	username, err := g.Authenticator.Authenticate(ctx, req.Username, req.Password)
	if errors.Is(err, ErrBadCredentials) {
		return nil, fmt.Errorf("%w: bad credentials", ErrAccessDenied)
	}
	if err != nil {
		return nil, err
	}

	return g.Tokens.NewAccessToken(client, username, scopes, domain.GrantPassword, true)
}
