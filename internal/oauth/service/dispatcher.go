package service

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
)

// GrantDispatcher routes a token request to the granter for its grant type.
// The table is fixed at construction.
type GrantDispatcher struct {
	granters map[domain.GrantType]Granter
}

func NewGrantDispatcher(granters map[domain.GrantType]Granter) *GrantDispatcher {
	table := make(map[domain.GrantType]Granter, len(granters))
	for gt, g := range granters {
		table[gt] = g
	}
	return &GrantDispatcher{granters: table}
}

func (d *GrantDispatcher) Supports(gt domain.GrantType) bool {
	_, ok := d.granters[gt]
	return ok
}

func (d *GrantDispatcher) Grant(ctx context.Context, client domain.Client, req TokenRequest) (*domain.AccessToken, error) {
	g, ok := d.granters[req.GrantType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGrantType, req.GrantType)
	}
	return g.Grant(ctx, client, req)
}
