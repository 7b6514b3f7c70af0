package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/metrics"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store"
	"github.com/aussiebroadwan/oauthd/pkg/clockx"
	"github.com/aussiebroadwan/oauthd/pkg/slogx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxRetries bounds how often a grant is retried after a storage conflict.
const DefaultMaxRetries = 3

// Granter issues an access token for an authenticated client.
type Granter interface {
	Grant(ctx context.Context, client domain.Client, req TokenRequest) (*domain.AccessToken, error)
}

// TokenCreator builds the candidate token for one grant type. It runs inside
// the granter's transaction and may consume single-use credentials through tx.
// The returned token must not be persisted.
type TokenCreator interface {
	CreateAccessToken(ctx context.Context, tx store.Tx, client domain.Client, req TokenRequest) (*domain.AccessToken, error)
}

// TokenGranter is the issuance pipeline shared by every grant type: build the
// candidate, derive its unique key, reuse or replace a token with the same
// key, enhance and persist. All of it runs in one transaction.
//
// When the creator fails with a protocol error the transaction still commits,
// so a code or refresh token presented in a failed attempt stays consumed.
type TokenGranter struct {
	GrantType  domain.GrantType
	Store      store.Store
	Creator    TokenCreator
	Keys       UniqueKeyGenerator // nil: TokenIDKeyGenerator
	Enhancer   TokenEnhancer      // nil: none
	Clock      clockx.Clock
	MaxRetries int // <= 0: DefaultMaxRetries
	Metrics    *metrics.Metrics
}

func (g *TokenGranter) Grant(ctx context.Context, client domain.Client, req TokenRequest) (tok *domain.AccessToken, err error) {
	ctx, span := tracer.Start(ctx, "oauth.grant", trace.WithAttributes(
		attribute.String("oauth.grant_type", string(g.GrantType)),
		attribute.String("oauth.client_id", string(client.ID)),
	))
	defer func() { endSpan(span, err) }()

	l := slogx.FromContext(ctx).With(
		slog.String("grant_type", string(g.GrantType)),
		slog.String("client_id", string(client.ID)),
	)

	if !client.AllowsGrant(g.GrantType) {
		g.Metrics.GrantFailed(string(g.GrantType), ErrUnauthorizedClient.Error())
		return nil, fmt.Errorf("%w: client is not registered for %s", ErrUnauthorizedClient, g.GrantType)
	}

	retries := g.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		var reused bool
		tok, reused, err = g.grantOnce(ctx, client, req)
		if errors.Is(err, store.ErrConflict) && attempt < retries && ctx.Err() == nil {
			g.Metrics.GrantRetried(string(g.GrantType))
			l.Warn("grant hit a storage conflict, retrying", slog.Int("attempt", attempt+1), slog.Any("error", err))
			continue
		}

		switch {
		case err == nil && reused:
			g.Metrics.TokenReused(string(g.GrantType))
			l.Debug("reusing existing access token")
		case err == nil:
			g.Metrics.GrantIssued(string(g.GrantType))
			span.SetAttributes(attribute.Bool("oauth.refresh_token", tok.RefreshToken != nil))
		case IsProtocolError(err):
			g.Metrics.GrantFailed(string(g.GrantType), ErrorCode(err))
			l.Info("grant rejected", slog.String("reason", err.Error()))
		default:
			g.Metrics.GrantFailed(string(g.GrantType), "server_error")
			l.Error("grant failed", slog.Any("error", err))
		}
		return tok, err
	}
}

func (g *TokenGranter) grantOnce(ctx context.Context, client domain.Client, req TokenRequest) (*domain.AccessToken, bool, error) {
	var (
		result   *domain.AccessToken
		reused   bool
		grantErr error
	)

	err := g.Store.WithTx(ctx, func(tx store.Tx) error {
		candidate, err := g.Creator.CreateAccessToken(ctx, tx, client, req)
		if err != nil {
			if IsProtocolError(err) {
				grantErr = err
				return nil
			}
			return err
		}

		candidate.UniqueKey = g.keys().Key(*candidate)

		existing, err := tx.AccessTokens().GetAccessTokenByUniqueKey(ctx, candidate.UniqueKey)
		switch {
		case err == nil:
			if existing.GrantType == candidate.GrantType && !existing.IsExpired(g.now()) {
				result, reused = &existing, true
				return nil
			}
			if err := tx.AccessTokens().DeleteAccessToken(ctx, existing.ID); err != nil {
				return err
			}
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		if g.Enhancer != nil {
			if err := g.Enhancer.Enhance(ctx, candidate); err != nil {
				return err
			}
		}

		if err := tx.AccessTokens().CreateAccessToken(ctx, *candidate); err != nil {
			return err
		}
		if candidate.RefreshToken != nil {
			if err := tx.RefreshTokens().CreateRefreshToken(ctx, *candidate.RefreshToken); err != nil {
				return err
			}
		}

		result = candidate
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if grantErr != nil {
		return nil, false, grantErr
	}
	return result, reused, nil
}

func (g *TokenGranter) keys() UniqueKeyGenerator {
	if g.Keys == nil {
		return TokenIDKeyGenerator{}
	}
	return g.Keys
}

func (g *TokenGranter) now() time.Time {
	if g.Clock == nil {
		return clockx.System().Now()
	}
	return g.Clock.Now()
}
