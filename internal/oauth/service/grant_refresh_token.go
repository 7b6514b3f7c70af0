package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store"
)

// RefreshTokenGrant rotates a refresh token: the presented token is consumed
// on lookup whatever the outcome, and on success the access token it belonged
// to is replaced.
type RefreshTokenGrant struct {
	Tokens TokenFactory
}

func (g *RefreshTokenGrant) CreateAccessToken(
	ctx context.Context,
	tx store.Tx,
	client domain.Client,
	req TokenRequest,
) (*domain.AccessToken, error) {
	if req.RefreshToken == "" {
		return nil, fmt.Errorf("%w: refresh_token is required", ErrInvalidRequest)
	}

	refresh, err := tx.RefreshTokens().ConsumeRefreshToken(ctx, req.RefreshToken)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrInvalidGrant)
	}
	if err != nil {
		return nil, err
	}

	original, err := tx.AccessTokens().GetAccessToken(ctx, refresh.AccessTokenID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: refresh token no longer has an access token", ErrInvalidGrant)
	}
	if err != nil {
		return nil, err
	}

	if original.ClientID != client.ID {
		return nil, fmt.Errorf("%w: refresh token was issued to another client", ErrInvalidGrant)
	}
	if refresh.IsExpired(g.Tokens.now()) {
		return nil, fmt.Errorf("%w: refresh token expired", ErrInvalidGrant)
	}

	scopes := original.Scopes
	if !req.Scopes.IsEmpty() {
		if !req.Scopes.SubsetOf(original.Scopes) {
			return nil, fmt.Errorf("%w: refresh cannot widen scope", ErrInvalidScope)
		}
		scopes = req.Scopes
	}

	if err := tx.AccessTokens().DeleteAccessToken(ctx, original.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	return g.Tokens.NewAccessToken(client, original.Username, scopes, domain.GrantRefreshToken, true)
}
