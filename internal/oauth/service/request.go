package service

import "github.com/aussiebroadwan/oauthd/internal/oauth/domain"

// TokenRequest carries the grant-specific parameters of a token request.
// Fields a grant does not use are ignored.
type TokenRequest struct {
	GrantType domain.GrantType
	ClientID  domain.ClientID
	Scopes    domain.ScopeSet

	// authorization_code
	Code         string
	RedirectURI  string
	CodeVerifier string

	// refresh_token
	RefreshToken string

	// password, implicit
	Username domain.Username
	Password string
}
