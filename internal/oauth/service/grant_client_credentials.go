package service

import (
	"context"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store"
)

// ClientCredentialsGrant issues tokens to a client acting on its own behalf.
type ClientCredentialsGrant struct {
	Tokens            TokenFactory
	AllowRefreshToken bool
}

func (g *ClientCredentialsGrant) CreateAccessToken(
	_ context.Context,
	_ store.Tx,
	client domain.Client,
	req TokenRequest,
) (*domain.AccessToken, error) {
	scopes, err := requestedScopes(req.Scopes, client)
	if err != nil {
		return nil, err
	}
	return g.Tokens.NewAccessToken(client, "", scopes, domain.GrantClientCredentials, g.AllowRefreshToken)
}
