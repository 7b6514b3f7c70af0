package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	httpapi "github.com/aussiebroadwan/oauthd/internal/oauth/http"
	"github.com/aussiebroadwan/oauthd/internal/oauth/metrics"
	"github.com/aussiebroadwan/oauthd/internal/oauth/service"
	"github.com/aussiebroadwan/oauthd/internal/oauth/session"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store/drivers/sqlite"
	"github.com/aussiebroadwan/oauthd/pkg/clockx"
	"github.com/aussiebroadwan/oauthd/pkg/cryptox"
	"github.com/aussiebroadwan/oauthd/pkg/jwtx"
	"github.com/aussiebroadwan/oauthd/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Option adjusts an Application before its dependencies are built.
type Option func(*Application)

// WithClock replaces the system clock, mainly for tests.
func WithClock(c clockx.Clock) Option {
	return func(app *Application) { app.clock = c }
}

// WithLogger replaces the logger built from the config.
func WithLogger(l *slog.Logger) Option {
	return func(app *Application) { app.logger = l }
}

// WithRateLimits replaces the per-endpoint rate limit profiles.
func WithRateLimits(rl httpapi.RateLimits) Option {
	return func(app *Application) { app.rateLimits = &rl }
}

// Application encapsulates the authorization server with all its dependencies.
type Application struct {
	cfg        Config
	logger     *slog.Logger
	clock      clockx.Clock
	rateLimits *httpapi.RateLimits

	db       *sqlite.Store
	redis    *redis.Client
	sessions session.Store
	metrics  *metrics.Metrics

	signer   *jwtx.EdDSASigner
	verifier jwtx.Verifier

	clients      *service.CachedClientDirectory
	dispatcher   *service.GrantDispatcher
	flow         *service.AuthorizationFlow
	admin        *service.TokenAdminService
	housekeeping *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application with all dependencies initialized and the
// database migrated.
func New(cfg Config, opts ...Option) (*Application, error) {
	app := &Application{cfg: cfg, clock: clockx.System()}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		app.logger = slogx.New(slogx.Config{
			Service: "oauthd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		})
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initSessions(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	signer, verifier, err := InitSessionKeys(app.cfg, app.clock, app.logger)
	if err != nil {
		app.closeStores()
		return nil, err
	}
	app.signer, app.verifier = signer, verifier

	m, err := metrics.New()
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	app.metrics = m

	if app.cfg.ClientsFile != "" {
		n, err := ImportClientsFile(context.Background(), app.db, app.cfg.ClientsFile, app.clock.Now())
		if err != nil {
			app.closeStores()
			return nil, fmt.Errorf("failed to import clients: %w", err)
		}
		app.logger.Info("clients imported", "file", app.cfg.ClientsFile, "count", n)
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler returns the root HTTP handler.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Store exposes the database, for CLI commands and tests.
func (app *Application) Store() *sqlite.Store {
	return app.db
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeeping.Start()

	app.logger.Info("oauthd starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

	for {
		select {
		case err := <-serverErrors:
			app.housekeeping.Stop()
			app.closeStores()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-reload:
			n, err := app.ReloadClients(context.Background())
			if err != nil {
				app.logger.Error("client reload failed", "file", app.cfg.ClientsFile, "error", err)
				continue
			}
			app.logger.Info("clients reloaded", "file", app.cfg.ClientsFile, "count", n)
		case sig := <-shutdown:
			app.logger.Info("shutdown signal received", "signal", sig)

			if err := app.Shutdown(); err != nil {
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			return nil
		}
	}
}

// ReloadClients re-imports the clients file and evicts those clients from
// the directory cache, so edits apply to the next request. Without a clients
// file it does nothing.
func (app *Application) ReloadClients(ctx context.Context) (int, error) {
	if app.cfg.ClientsFile == "" {
		return 0, nil
	}

	clients, err := importClientsFile(ctx, app.db, app.cfg.ClientsFile, app.clock.Now())
	if err != nil {
		return 0, err
	}
	for _, c := range clients {
		app.clients.Invalidate(c.ID)
	}
	return len(clients), nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down oauthd...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeeping.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("oauthd stopped")
	return nil
}

// Close releases the stores without touching the HTTP server. Use it when the
// application was built but never Run.
func (app *Application) Close() error {
	return app.closeStores()
}

func (app *Application) closeStores() error {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

// initDatabase opens the database and applies migrations.
func (app *Application) initDatabase() error {
	db, err := OpenStore(app.cfg)
	if err != nil {
		return err
	}
	app.db = db

	app.logger.Info("database migrations applied successfully")
	return nil
}

// OpenStore opens the configured database and applies migrations.
func OpenStore(cfg Config) (*sqlite.Store, error) {
	db, err := sqlite.NewStore(sqlite.DSN(cfg.DatabaseFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

// initSessions picks the store for pending authorization requests.
func (app *Application) initSessions() error {
	switch app.cfg.SessionStore {
	case "redis":
		app.redis = redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.redis.Ping(ctx).Err(); err != nil {
			_ = app.redis.Close()
			app.redis = nil
			return fmt.Errorf("failed to connect to redis at %s: %w", app.cfg.RedisAddr, err)
		}

		app.sessions = session.NewRedisStore(app.redis)
		app.logger.Info("session store: redis", "addr", app.cfg.RedisAddr)
	case "memory", "":
		app.sessions = session.NewMemoryStore(app.cfg.SessionTTL)
		app.logger.Info("session store: memory")
	default:
		return fmt.Errorf("unknown session store %q", app.cfg.SessionStore)
	}
	return nil
}

// initServices builds the token pipeline and the authorization flow.
func (app *Application) initServices() {
	tokens := service.TokenFactory{
		Clock:      app.clock,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}

	var keys service.UniqueKeyGenerator = service.TokenIDKeyGenerator{}
	if app.cfg.TokenDedup {
		keys = service.AuthenticationKeyGenerator{}
	}

	granter := func(gt domain.GrantType, c service.TokenCreator) *service.TokenGranter {
		return &service.TokenGranter{
			GrantType:  gt,
			Store:      app.db,
			Creator:    c,
			Keys:       keys,
			Clock:      app.clock,
			MaxRetries: app.cfg.GrantMaxRetries,
			Metrics:    app.metrics,
		}
	}

	codes := &service.AuthorizationCodeService{
		Store:      app.db,
		Clock:      app.clock,
		CodeLength: app.cfg.CodeLength,
		Metrics:    app.metrics,
	}

	app.dispatcher = service.NewGrantDispatcher(map[domain.GrantType]service.Granter{
		domain.GrantAuthorizationCode: granter(domain.GrantAuthorizationCode,
			&service.AuthorizationCodeGrant{Codes: codes, Tokens: tokens}),
		domain.GrantClientCredentials: granter(domain.GrantClientCredentials,
			&service.ClientCredentialsGrant{Tokens: tokens, AllowRefreshToken: app.cfg.ClientCredentialsRefresh}),
		domain.GrantRefreshToken: granter(domain.GrantRefreshToken,
			&service.RefreshTokenGrant{Tokens: tokens}),
		domain.GrantPassword: granter(domain.GrantPassword,
			&service.PasswordGrant{Tokens: tokens, Authenticator: &service.UserCredentialAuthenticator{Store: app.db}}),
	})

	// Implicit tokens are only issued from the authorization endpoint.
	implicit := granter(domain.GrantImplicit, &service.ImplicitGrant{Tokens: tokens})

	app.clients = service.NewCachedClientDirectory(&service.StoreClientDirectory{Store: app.db}, time.Minute)

	app.flow = &service.AuthorizationFlow{
		Clients:    app.clients,
		Approvals:  &service.StoreApprovalAuthority{Store: app.db, Clock: app.clock},
		Sessions:   app.sessions,
		SessionTTL: app.cfg.SessionTTL,
		Enhancers: []service.ResponseEnhancer{
			&service.CodeEnhancer{Codes: codes},
			&service.ImplicitEnhancer{Granter: implicit, Clock: app.clock},
		},
	}

	app.admin = &service.TokenAdminService{Store: app.db, Clock: app.clock, Metrics: app.metrics}

	app.housekeeping = service.NewHousekeepingService(
		app.db,
		app.clock,
		app.logger,
		app.metrics,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP builds the router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.logger)

	router.Clock = app.clock
	router.Metrics = app.metrics
	if app.rateLimits != nil {
		router.RateLimits = *app.rateLimits
	}
	router.ClientAuth = &service.ClientAuthenticator{Clients: app.clients}
	router.Dispatcher = app.dispatcher
	router.Flow = app.flow
	router.Admin = app.admin
	router.Approvals = app.flow.Approvals
	router.Login = &httpapi.LoginHandler{
		Authenticator: &service.UserCredentialAuthenticator{Store: app.db},
		Signer:        app.signer,
		Issuer:        app.cfg.Issuer,
		TTL:           jwtx.DefaultSessionTTL,
		SecureCookie:  app.cfg.SecureCookie,
		Clock:         app.clock,
	}
	router.SessionVerifier = app.verifier
	router.AdminAPIKey = app.cfg.AdminAPIKey

	router.ReadinessChecks = map[string]httpapi.Pinger{"database": app.db}
	if rs, ok := app.sessions.(*session.RedisStore); ok {
		router.ReadinessChecks["session_store"] = rs
	}

	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
