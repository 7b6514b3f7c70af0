package httpx

import "context"

type ctxKey string

const (
	CtxKeyUsername  ctxKey = "username"
	CtxKeySessionID ctxKey = "session_id"
)

// WithPrincipal stores the authenticated end user and their session id.
func WithPrincipal(ctx context.Context, username, sessionID string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUsername, username)
	return context.WithValue(ctx, CtxKeySessionID, sessionID)
}

// PrincipalFromContext returns the username and session id stored by
// WithPrincipal.
func PrincipalFromContext(ctx context.Context) (username, sessionID string, ok bool) {
	username, _ = ctx.Value(CtxKeyUsername).(string)
	sessionID, _ = ctx.Value(CtxKeySessionID).(string)
	return username, sessionID, username != "" && sessionID != ""
}
