package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/service"
	"github.com/aussiebroadwan/oauthd/pkg/authsdk"
	"github.com/aussiebroadwan/oauthd/pkg/httpx"
)

// TokenInfoHandler serves POST /oauth/token_info. It answers 200 with
// {"active": false} for anything it cannot vouch for.
type TokenInfoHandler struct {
	Admin *service.TokenAdminService
}

func (h *TokenInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var token string
	if isFormRequest(r) && r.ParseForm() == nil {
		token = strings.TrimSpace(r.PostForm.Get("token"))
	}

	info := h.Admin.Introspect(r.Context(), token)
	if !info.Active {
		httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse{Active: false})
		return
	}

	t := info.Token
	httpx.WriteJSON(w, http.StatusOK, authsdk.IntrospectionResponse{
		Active:    true,
		Scope:     t.Scopes.String(),
		ClientID:  string(t.ClientID),
		Username:  string(t.Username),
		GrantType: string(t.GrantType),
		TokenType: domain.TokenTypeBearer,
		Exp:       t.ExpiresAt.Unix(),
		Iat:       t.IssuedAt.Unix(),
	})
}
