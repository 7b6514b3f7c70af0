package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/oauthd/pkg/httpx"
	"github.com/aussiebroadwan/oauthd/pkg/jwtx"
	"github.com/aussiebroadwan/oauthd/pkg/slogx"
)

const (
	SessionCookieName = "oauthd_session"

	// SessionAudience is the aud claim of session tokens, so they cannot be
	// confused with tokens minted for anything else.
	SessionAudience = "oauthd-session"
)

// SessionMiddleware resolves the end-user session from the session cookie or
// a Bearer header and stores it with httpx.WithPrincipal. Requests without a
// valid session pass through anonymously.
func SessionMiddleware(verifier jwtx.Verifier) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				if cookie, err := r.Cookie(SessionCookieName); err == nil {
					token = cookie.Value
				}
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil || claims.Subject == "" || claims.SID == "" {
				slogx.FromContext(r.Context()).Debug("ignoring invalid session token", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := httpx.WithPrincipal(r.Context(), claims.Subject, claims.SID)
			ctx = slogx.AddRequestAttrs(ctx, "user", claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
