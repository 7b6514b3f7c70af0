package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/service"
	"github.com/aussiebroadwan/oauthd/pkg/authsdk"
	"github.com/aussiebroadwan/oauthd/pkg/httpx"
)

// AuthorizeHandler serves /oauth/authorize. A GET, or a POST naming the client
// and response type, starts a request and answers with a consent prompt or a
// redirect. Any other POST answers the pending prompt with one field per scope.
//
// The caller must be logged in (see SessionMiddleware).
type AuthorizeHandler struct {
	Flow *service.AuthorizationFlow
}

func (h *AuthorizeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.authorize(w, r, service.ParseAuthorizeParams(r.URL.Query()))
}

func (h *AuthorizeHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	if !isFormRequest(r) {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	if isAuthorizationRequest(r.Form) {
		h.authorize(w, r, service.ParseAuthorizeParams(r.Form))
		return
	}

	location, err := h.Flow.Approve(r.Context(), principal(r), r.PostForm)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, location, http.StatusFound)
}

func (h *AuthorizeHandler) authorize(w http.ResponseWriter, r *http.Request, params service.AuthorizeParams) {
	res, err := h.Flow.Authorize(r.Context(), principal(r), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if !res.NeedsConsent() {
		http.Redirect(w, r, res.RedirectURI, http.StatusFound)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.ConsentPrompt{
		ClientID:     string(res.Client.ID),
		ClientName:   res.Client.Name,
		RedirectURI:  res.Request.RedirectURI,
		State:        res.Request.State,
		Scopes:       res.NeedsApproval.Strings(),
		AutoApproved: res.AutoApproved.Strings(),
	})
}

// writeError redirects errors the flow marked as safe to redirect and
// renders everything else as JSON. redirect_uri problems are never redirected.
func (h *AuthorizeHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var redirectable *service.RedirectableError
	if errors.As(err, &redirectable) {
		if location, lerr := redirectable.Location(); lerr == nil {
			http.Redirect(w, r, location, http.StatusFound)
			return
		}
	}
	writeError(w, r, err)
}

func isAuthorizationRequest(form url.Values) bool {
	return form.Has("response_type") || form.Has("client_id")
}

func principal(r *http.Request) service.Principal {
	username, sid, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		return service.Principal{}
	}
	return service.Principal{Username: domain.Username(username), SessionID: sid}
}
