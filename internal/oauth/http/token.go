package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/service"
	"github.com/aussiebroadwan/oauthd/pkg/authsdk"
	"github.com/aussiebroadwan/oauthd/pkg/clockx"
	"github.com/aussiebroadwan/oauthd/pkg/httpx"
	"github.com/aussiebroadwan/oauthd/pkg/slogx"
)

// TokenHandler serves POST /oauth/token. Clients authenticate with HTTP Basic
// or client_id/client_secret form fields; public clients send client_id only.
type TokenHandler struct {
	Clients    *service.ClientAuthenticator
	Dispatcher *service.GrantDispatcher
	Clock      clockx.Clock
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !isFormRequest(r) {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}
	form := r.PostForm

	raw := strings.TrimSpace(form.Get("grant_type"))
	if raw == "" {
		authsdk.ErrInvalidRequest.WithDescription("grant_type is required").WriteError(w)
		return
	}
	grantType, err := domain.ParseGrantType(raw)
	if err != nil || grantType == domain.GrantImplicit || !h.Dispatcher.Supports(grantType) {
		authsdk.ErrUnsupportedGrantType.WriteError(w)
		return
	}

	id, secret := clientCredentials(r, form)
	client, err := h.Clients.Authenticate(r.Context(), id, secret)
	if err != nil {
		writeError(w, r, err)
		return
	}
	r = r.WithContext(slogx.AddRequestAttrs(r.Context(),
		"client_id", string(client.ID),
		"grant_type", string(grantType),
	))

	tok, err := h.Dispatcher.Grant(r.Context(), client, service.TokenRequest{
		GrantType:    grantType,
		ClientID:     client.ID,
		Scopes:       domain.ParseScopeSet(form.Get("scope")),
		Code:         strings.TrimSpace(form.Get("code")),
		RedirectURI:  strings.TrimSpace(form.Get("redirect_uri")),
		CodeVerifier: strings.TrimSpace(form.Get("code_verifier")),
		RefreshToken: form.Get("refresh_token"),
		Username:     domain.Username(strings.TrimSpace(form.Get("username"))),
		Password:     form.Get("password"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(tok, h.Clock))
}

// clientCredentials reads HTTP Basic credentials (form-encoded per RFC 6749
// section 2.3.1), falling back to client_id/client_secret in values.
func clientCredentials(r *http.Request, values url.Values) (domain.ClientID, string) {
	if user, pass, ok := r.BasicAuth(); ok {
		if u, err := url.QueryUnescape(user); err == nil {
			user = u
		}
		if p, err := url.QueryUnescape(pass); err == nil {
			pass = p
		}
		return domain.ClientID(user), pass
	}
	return domain.ClientID(strings.TrimSpace(values.Get("client_id"))), values.Get("client_secret")
}

func tokenResponse(tok *domain.AccessToken, clock clockx.Clock) authsdk.TokenResponse {
	resp := authsdk.TokenResponse{
		AccessToken:    tok.ID,
		TokenType:      domain.TokenTypeBearer,
		ExpiresIn:      tok.ExpiresIn(clock.Now()),
		Scope:          tok.Scopes.String(),
		AdditionalInfo: tok.AdditionalInfo,
	}
	if tok.RefreshToken != nil {
		resp.RefreshToken = tok.RefreshToken.ID
	}
	return resp
}

func isFormRequest(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == "" || strings.HasPrefix(ct, "application/x-www-form-urlencoded")
}
