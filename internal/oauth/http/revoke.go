package http

import (
	"errors"
	"io"
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

// RevokeHandler serves DELETE /oauth/token?token= for clients and
// DELETE /admin/oauth/token?token= for operators. Both echo the revoked token.
type RevokeHandler struct {
	Clients *service.ClientAuthenticator
	Admin   *service.TokenAdminService
	Clock   clockx.Clock
}

// HandleClient revokes a token owned by the authenticated client.
func (h *RevokeHandler) HandleClient(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	token := strings.TrimSpace(query.Get("token"))
	if token == "" {
		authsdk.ErrInvalidRequest.WithDescription("token is required").WriteError(w)
		return
	}

	id, secret, err := revokeCredentials(r, query)
	if err != nil {
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return
	}
	client, err := h.Clients.Authenticate(r.Context(), id, secret)
	if err != nil {
		writeError(w, r, err)
		return
	}
	r = r.WithContext(slogx.AddRequestAttrs(r.Context(), "client_id", string(client.ID)))

	h.respond(w, r, func() (domain.AccessToken, error) {
		return h.Admin.RevokeForClient(r.Context(), client.ID, token)
	})
}

// HandleAdmin revokes any token. It must sit behind an admin guard.
func (h *RevokeHandler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		authsdk.ErrInvalidRequest.WithDescription("token is required").WriteError(w)
		return
	}

	h.respond(w, r, func() (domain.AccessToken, error) {
		return h.Admin.Revoke(r.Context(), token)
	})
}

// maxRevokeBody bounds a form body on DELETE, which ParseForm does not read.
const maxRevokeBody = 8 << 10

// revokeCredentials takes client credentials from HTTP Basic or a form body.
// The query string may only carry client_id (public clients); a secret there
// would end up in access logs and is refused.
func revokeCredentials(r *http.Request, query url.Values) (domain.ClientID, string, error) {
	if query.Has("client_secret") {
		return "", "", errors.New("client_secret must not be sent in the query string")
	}

	body := url.Values{}
	if r.Body != nil && r.ContentLength != 0 && isFormRequest(r) {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxRevokeBody))
		if err != nil {
			return "", "", errors.New("unreadable request body")
		}
		if body, err = url.ParseQuery(string(raw)); err != nil {
			return "", "", errors.New("malformed form body")
		}
	}

	id, secret := clientCredentials(r, body)
	if id == "" {
		id = domain.ClientID(strings.TrimSpace(query.Get("client_id")))
	}
	return id, secret, nil
}

func (h *RevokeHandler) respond(w http.ResponseWriter, r *http.Request, revoke func() (domain.AccessToken, error)) {
	tok, err := revoke()
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(&tok, h.Clock))
}
