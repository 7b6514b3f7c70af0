package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/app"
	httpapi "github.com/aussiebroadwan/oauthd/internal/oauth/http"
	"github.com/aussiebroadwan/oauthd/pkg/authsdk"
	"github.com/aussiebroadwan/oauthd/pkg/clockx"
	"github.com/aussiebroadwan/oauthd/pkg/httpx"
	"github.com/stretchr/testify/require"
)

/*
 * End-to-end tests drive a fully wired server through httptest. The pepper
 * is process-global, so these tests do not run in parallel.
 */

const (
	adminKey     = "test-admin-key"
	callback     = "http://cb"
	userName     = "alice"
	userPassword = "correct horse battery staple"

	confidentialID     = "web"
	confidentialSecret = "web-secret"
	publicID           = "spa"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const clientsYAML = `
clients:
  - id: web
    secret: web-secret
    redirect_uris: [http://cb]
    grant_types: [authorization_code, refresh_token, client_credentials, password]
    scopes: [read, write]
  - id: spa
    redirect_uris: [http://cb]
    grant_types: [authorization_code, implicit, refresh_token]
    scopes: [read, write]
`

type testServer struct {
	URL         string
	App         *app.Application
	Clock       *clockx.Manual
	SDK         *authsdk.SDKClient
	ClientsFile string
}

func relaxedLimits() httpapi.RateLimits {
	open := httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}
	return httpapi.RateLimits{Token: open, Authorize: open, Login: open, Revoke: open, Health: open}
}

func newTestServer(t *testing.T, mutate ...func(*app.Config)) *testServer {
	t.Helper()

	dir := t.TempDir()
	clientsFile := filepath.Join(dir, "clients.yaml")
	require.NoError(t, os.WriteFile(clientsFile, []byte(clientsYAML), 0o600))

	cfg := app.Config{
		Issuer:               "oauthd-test",
		DatabaseFile:         filepath.Join(dir, "oauthd.db"),
		PepperFile:           filepath.Join(dir, "pepper"),
		AccessTokenTTL:       12 * time.Hour,
		RefreshTokenTTL:      30 * 24 * time.Hour,
		CodeLength:           6,
		GrantMaxRetries:      3,
		SessionTTL:           10 * time.Minute,
		SessionStore:         "memory",
		AdminAPIKey:          adminKey,
		ClientsFile:          clientsFile,
		Env:                  "test",
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	clock := clockx.NewManual(epoch)
	application, err := app.New(cfg,
		app.WithClock(clock),
		app.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		app.WithRateLimits(relaxedLimits()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	_, err = app.AddUser(context.Background(), application.Store(), userName, userPassword, epoch)
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(srv.Close)

	return &testServer{
		URL:         srv.URL,
		App:         application,
		Clock:       clock,
		SDK:         authsdk.NewSDKClient(srv.URL),
		ClientsFile: cfg.ClientsFile,
	}
}

// login returns a session token for alice.
func (s *testServer) login(t *testing.T) string {
	t.Helper()

	resp, err := s.SDK.Login(context.Background(), userName, userPassword)
	require.NoError(t, err)
	require.NotEmpty(t, resp.SessionToken)
	return resp.SessionToken
}

// do sends a request without following redirects. form, when set, is sent
// as the urlencoded body.
func (s *testServer) do(t *testing.T, method, path, session string, form url.Values) *http.Response {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(context.Background(), method, s.URL+path, body)
	require.NoError(t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if session != "" {
		req.Header.Set("Authorization", "Bearer "+session)
	}

	resp, err := s.SDK.HTTPClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// redirectParams parses the query, or the fragment when fragment is set, of
// a redirect response.
func redirectParams(t *testing.T, resp *http.Response, fragment bool) url.Values {
	t.Helper()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	if fragment {
		values, err := url.ParseQuery(loc.Fragment)
		require.NoError(t, err)
		return values
	}
	return loc.Query()
}

// requireOAuthError asserts the status and error code of an SDK failure.
func requireOAuthError(t *testing.T, err error, status int, code string) {
	t.Helper()

	var oauthErr *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oauthErr)
	require.Equal(t, status, oauthErr.StatusCode)
	require.Equal(t, code, oauthErr.Code)
}
