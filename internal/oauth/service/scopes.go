package service

import (
	"fmt"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
)

// requestedScopes applies the client scope rule: no scopes means every scope
// the client is registered for, anything else must be a subset of them.
func requestedScopes(requested domain.ScopeSet, client domain.Client) (domain.ScopeSet, error) {
	if requested.IsEmpty() {
		return client.Scopes, nil
	}
	if !requested.SubsetOf(client.Scopes) {
		return nil, fmt.Errorf("%w: %s not allowed for client", ErrInvalidScope, requested.Minus(client.Scopes))
	}
	return requested, nil
}
