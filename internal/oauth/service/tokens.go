package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/pkg/clockx"
	"github.com/aussiebroadwan/oauthd/pkg/cryptox"
)

const (
	DefaultAccessTokenTTL  = 12 * time.Hour
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// TokenFactory builds unpersisted tokens with the server's TTL policy.
// Per-client TTLs override the factory defaults.
type TokenFactory struct {
	Clock      clockx.Clock
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// NewAccessToken returns a token valid from now, with a refresh token when
// withRefresh is set.
func (f TokenFactory) NewAccessToken(
	client domain.Client,
	username domain.Username,
	scopes domain.ScopeSet,
	grantType domain.GrantType,
	withRefresh bool,
) (*domain.AccessToken, error) {
	id, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	now := f.now()
	t := &domain.AccessToken{
		ID:        id,
		ClientID:  client.ID,
		Username:  username,
		Scopes:    scopes,
		GrantType: grantType,
		IssuedAt:  now,
		ExpiresAt: now.Add(pickTTL(client.AccessTokenTTL, f.AccessTTL, DefaultAccessTokenTTL)),
	}

	if withRefresh {
		refreshID, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return nil, err
		}
		t.RefreshToken = &domain.RefreshToken{
			ID:            refreshID,
			AccessTokenID: id,
			ExpiresAt:     now.Add(pickTTL(client.RefreshTokenTTL, f.RefreshTTL, DefaultRefreshTokenTTL)),
		}
	}

	return t, nil
}

func (f TokenFactory) now() time.Time {
	if f.Clock == nil {
		return clockx.System().Now()
	}
	return f.Clock.Now()
}

func pickTTL(ttls ...time.Duration) time.Duration {
	for _, ttl := range ttls {
		if ttl > 0 {
			return ttl
		}
	}
	return 0
}

// UniqueKeyGenerator decides which stored token a new token may replace or
// reuse. Tokens with equal keys are interchangeable.
type UniqueKeyGenerator interface {
	Key(t domain.AccessToken) string
}

// TokenIDKeyGenerator keys every token by its own id, so nothing is ever
// reused or replaced.
type TokenIDKeyGenerator struct{}

func (TokenIDKeyGenerator) Key(t domain.AccessToken) string { return t.ID }

// AuthenticationKeyGenerator keys tokens by client, user and scope set, so
// repeating a grant returns the token already issued.
type AuthenticationKeyGenerator struct{}

func (AuthenticationKeyGenerator) Key(t domain.AccessToken) string {
	parts := append([]string{string(t.ClientID), string(t.Username)}, t.Scopes.Strings()...)
	return cryptox.FingerprintParts(parts...)
}

// TokenEnhancer may decorate a token just before it is stored, typically by
// filling AdditionalInfo.
type TokenEnhancer interface {
	Enhance(ctx context.Context, t *domain.AccessToken) error
}

type TokenEnhancerFunc func(ctx context.Context, t *domain.AccessToken) error

func (f TokenEnhancerFunc) Enhance(ctx context.Context, t *domain.AccessToken) error {
	return f(ctx, t)
}
