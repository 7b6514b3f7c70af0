package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/metrics"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store"
	"github.com/aussiebroadwan/oauthd/pkg/clockx"
	"github.com/aussiebroadwan/oauthd/pkg/slogx"
)

// Introspection is the answer to a token_info query. Token is only
// meaningful when Active is set.
type Introspection struct {
	Active bool
	Token  domain.AccessToken
}

// TokenAdminService revokes and introspects issued access tokens.
type TokenAdminService struct {
	Store   store.Store
	Clock   clockx.Clock
	Metrics *metrics.Metrics
}

// Revoke deletes a token regardless of its owner and returns what was deleted.
// Its refresh token goes with it.
func (s *TokenAdminService) Revoke(ctx context.Context, tokenID string) (domain.AccessToken, error) {
	return s.revoke(ctx, tokenID, func(domain.AccessToken) error { return nil })
}

// RevokeForClient deletes a token only if it was issued to clientID.
func (s *TokenAdminService) RevokeForClient(ctx context.Context, clientID domain.ClientID, tokenID string) (domain.AccessToken, error) {
	return s.revoke(ctx, tokenID, func(t domain.AccessToken) error {
		if t.ClientID != clientID {
			return fmt.Errorf("%w: token was not issued to this client", ErrInvalidClient)
		}
		return nil
	})
}

func (s *TokenAdminService) revoke(
	ctx context.Context,
	tokenID string,
	authorize func(domain.AccessToken) error,
) (domain.AccessToken, error) {
	var revoked domain.AccessToken

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		t, err := tx.AccessTokens().GetAccessToken(ctx, tokenID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return err
		}
		if err := authorize(t); err != nil {
			return err
		}
		if err := tx.AccessTokens().DeleteAccessToken(ctx, t.ID); err != nil {
			return err
		}
		revoked = t
		return nil
	})
	if err != nil {
		return domain.AccessToken{}, err
	}

	s.Metrics.TokenRevoked()
	slogx.FromContext(ctx).Info("access token revoked",
		slog.String("client_id", string(revoked.ClientID)),
		slog.String("grant_type", string(revoked.GrantType)),
	)
	return revoked, nil
}

// Introspect never fails: unknown, expired and unreadable tokens are all
// reported inactive.
func (s *TokenAdminService) Introspect(ctx context.Context, tokenID string) Introspection {
	var res Introspection
	defer func() { s.Metrics.Introspected(res.Active) }()

	if tokenID == "" {
		return res
	}

	t, err := s.Store.AccessTokens().GetAccessToken(ctx, tokenID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Warn("introspection lookup failed", slog.Any("error", err))
		}
		return res
	}
	if t.IsExpired(s.Clock.Now()) {
		return res
	}

	res = Introspection{Active: true, Token: t}
	return res
}
