package service

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store"
)

// ImplicitGrant issues a token straight from the authorization endpoint. It is
// never reachable from the token endpoint and never issues refresh tokens.
type ImplicitGrant struct {
	Tokens TokenFactory
}

func (g *ImplicitGrant) CreateAccessToken(
	_ context.Context,
	_ store.Tx,
	client domain.Client,
	req TokenRequest,
) (*domain.AccessToken, error) {
	if req.Username == "" {
		return nil, fmt.Errorf("%w: implicit grant requires an authenticated user", ErrInvalidRequest)
	}
	scopes, err := requestedScopes(req.Scopes, client)
	if err != nil {
		return nil, err
	}
	return g.Tokens.NewAccessToken(client, req.Username, scopes, domain.GrantImplicit, false)
}
