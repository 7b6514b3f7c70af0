package service

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
)

// ResolveRedirectURI picks the redirect target for an authorization request.
// An omitted redirect_uri defaults to the client's only registered URI.
func ResolveRedirectURI(requested string, client domain.Client) (string, error) {
	if requested == "" {
		if len(client.RedirectURIs) == 1 {
			return client.RedirectURIs[0], nil
		}
		return "", fmt.Errorf("%w: redirect_uri is required", ErrInvalidRequest)
	}
	if !slices.Contains(client.RedirectURIs, requested) {
		return "", fmt.Errorf("%w: %q is not registered", ErrRedirectMismatch, requested)
	}
	return requested, nil
}

// ResolveApprovedScopes returns the scopes of requested that the user ticked
// on the consent form. A scope is approved when its form field is "true".
func ResolveApprovedScopes(requested domain.ScopeSet, form url.Values) (domain.ScopeSet, error) {
	approved := make([]domain.Scope, 0, len(requested))
	for _, scope := range requested {
		if strings.EqualFold(form.Get(string(scope)), "true") {
			approved = append(approved, scope)
		}
	}
	if len(approved) == 0 {
		return nil, ErrUserDenied
	}
	return domain.NewScopeSet(approved...), nil
}
