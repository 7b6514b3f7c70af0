package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/service"
	"github.com/aussiebroadwan/oauthd/pkg/authsdk"
	"github.com/aussiebroadwan/oauthd/pkg/clockx"
	"github.com/aussiebroadwan/oauthd/pkg/httpx"
	"github.com/aussiebroadwan/oauthd/pkg/idx"
	"github.com/aussiebroadwan/oauthd/pkg/jwtx"
	"github.com/aussiebroadwan/oauthd/pkg/slogx"
)

// SessionSigner mints session tokens.
type SessionSigner interface {
	Sign(claims jwtx.Claims) (string, error)
}

var errBadLogin = authsdk.NewOAuth2Error(http.StatusUnauthorized, authsdk.ErrorCodeAccessDenied, "invalid username or password")

// LoginHandler serves POST /oauth/login. A successful login starts a new
// session: a fresh session id in a signed token, set as a cookie and
// returned in the body for clients that prefer a Bearer header.
type LoginHandler struct {
	Authenticator service.CredentialAuthenticator
	Signer        SessionSigner
	Issuer        string
	TTL           time.Duration
	SecureCookie  bool
	Clock         clockx.Clock
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !isFormRequest(r) {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		authsdk.ErrInvalidFormBody.WriteError(w)
		return
	}

	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		authsdk.ErrInvalidRequest.WithDescription("username and password are required").WriteError(w)
		return
	}

	user, err := h.Authenticator.Authenticate(r.Context(), domain.Username(username), password)
	if errors.Is(err, service.ErrBadCredentials) {
		slogx.FromContext(r.Context()).Info("login failed", "username", username)
		errBadLogin.WriteError(w)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	ttl := h.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}

	claims := jwtx.NewSessionClaims(string(user), idx.New().String(), h.Issuer, []string{SessionAudience}, ttl, h.Clock.Now())
	token, err := h.Signer.Sign(claims)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/oauth",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		SessionToken: token,
		ExpiresIn:    int64(ttl / time.Second),
	})
}
