package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/metrics"
	"github.com/aussiebroadwan/oauthd/internal/oauth/service"
	"github.com/aussiebroadwan/oauthd/pkg/clockx"
	"github.com/aussiebroadwan/oauthd/pkg/httpx"
	"github.com/aussiebroadwan/oauthd/pkg/jwtx"
	"github.com/aussiebroadwan/oauthd/pkg/slogx"
)

// AdminAPIKeyHeader carries the operator key for /admin routes.
const AdminAPIKeyHeader = "X-Admin-API-Key"

// RateLimits picks a profile per endpoint class.
type RateLimits struct {
	Token     httpx.RateLimitConfig
	Authorize httpx.RateLimitConfig
	Login     httpx.RateLimitConfig
	Revoke    httpx.RateLimitConfig
	Health    httpx.RateLimitConfig
}

// DefaultRateLimits reads the httpx profiles, which honour RATELIMIT_* overrides.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Token:     httpx.ModerateLimit,
		Authorize: httpx.LenientLimit,
		Login:     httpx.StrictLimit,
		Revoke:    httpx.ModerateLimit,
		Health:    httpx.PublicLimit,
	}
}

// Router holds shared dependencies for HTTP handlers. Set the exported fields
// before calling ApplyRoutes.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	Clock      clockx.Clock
	Metrics    *metrics.Metrics
	RateLimits RateLimits

	ClientAuth *service.ClientAuthenticator
	Dispatcher *service.GrantDispatcher
	Flow       *service.AuthorizationFlow
	Admin      *service.TokenAdminService
	Approvals  service.ApprovalAuthority

	Login           *LoginHandler
	SessionVerifier jwtx.Verifier

	// AdminAPIKey enables /admin routes when set.
	AdminAPIKey string

	ReadinessChecks map[string]Pinger
}

func NewRouter(buildVersion string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		Clock:        clockx.System(),
		RateLimits:   DefaultRateLimits(),
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger, "/livez", "/readyz", "/metrics"),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handle registers h under pattern with per-route metrics outermost.
func (r *Router) handle(pattern string, h http.Handler, middlewares ...httpx.Middleware) {
	chain := append([]httpx.Middleware{r.Metrics.HTTPMiddleware(pattern)}, middlewares...)
	r.Mux.Handle(pattern, httpx.Chain(h, chain...))
}

func (r *Router) registerOAuth2() {
	token := &TokenHandler{Clients: r.ClientAuth, Dispatcher: r.Dispatcher, Clock: r.Clock}
	r.handle("POST /oauth/token", token,
		httpx.RateLimitByClient(r.RateLimits.Token),
	)

	revoke := &RevokeHandler{Clients: r.ClientAuth, Admin: r.Admin, Clock: r.Clock}
	r.handle("DELETE /oauth/token", http.HandlerFunc(revoke.HandleClient),
		httpx.RateLimitByIP(r.RateLimits.Revoke),
	)

	authorize := &AuthorizeHandler{Flow: r.Flow}
	session := SessionMiddleware(r.SessionVerifier)
	r.handle("GET /oauth/authorize", http.HandlerFunc(authorize.HandleGet),
		httpx.RateLimitByIP(r.RateLimits.Authorize),
		session,
	)
	r.handle("POST /oauth/authorize", http.HandlerFunc(authorize.HandlePost),
		httpx.RateLimitByIP(r.RateLimits.Authorize),
		session,
	)

	r.handle("POST /oauth/token_info", &TokenInfoHandler{Admin: r.Admin},
		httpx.RateLimitByIP(r.RateLimits.Revoke),
	)

	// Brute force protection: limited per IP and username.
	r.handle("POST /oauth/login", r.Login,
		httpx.RateLimitByIPAndFormField(r.RateLimits.Login, "username"),
	)
}

func (r *Router) registerAdmin() {
	if r.AdminAPIKey == "" {
		return
	}

	revoke := &RevokeHandler{Clients: r.ClientAuth, Admin: r.Admin, Clock: r.Clock}
	r.handle("DELETE /admin/oauth/token", http.HandlerFunc(revoke.HandleAdmin),
		httpx.RateLimitByIP(r.RateLimits.Revoke),
		httpx.RequireAPIKey(AdminAPIKeyHeader, r.AdminAPIKey),
	)

	r.handle("DELETE /admin/oauth/approvals", &ApprovalsHandler{Approvals: r.Approvals},
		httpx.RateLimitByIP(r.RateLimits.Revoke),
		httpx.RequireAPIKey(AdminAPIKeyHeader, r.AdminAPIKey),
	)
}

func (r *Router) registerSystem() {
	r.handle("GET /livez", LivezHandler(r.startTime, r.buildVersion),
		httpx.RateLimitByIP(r.RateLimits.Health),
	)
	r.handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.ReadinessChecks),
		httpx.RateLimitByIP(r.RateLimits.Health),
	)
	r.handle("GET /metrics", r.Metrics.Handler())
}
