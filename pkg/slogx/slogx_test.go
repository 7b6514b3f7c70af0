package slogx_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/oauthd/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func testConfig(buf *bytes.Buffer) slogx.Config {
	return slogx.Config{Service: "oauthd", Version: "test", Env: "test", Level: "info", Output: buf}
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewRedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(testConfig(&buf))

	logger.Info("grant", "client_secret", "s3cret", "refresh_token", "rt-1", "password", "", "client_id", "web")

	got := lines(t, &buf)
	require.Len(t, got, 1)
	require.Equal(t, "[redacted]", got[0]["client_secret"])
	require.Equal(t, "[redacted]", got[0]["refresh_token"])
	require.Equal(t, "", got[0]["password"], "empty values are not masked")
	require.Equal(t, "web", got[0]["client_id"])
	require.Equal(t, "oauthd", got[0]["service"])
	require.NotContains(t, buf.String(), "s3cret")
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(testConfig(&buf))

	h := slogx.HTTPMiddleware(logger, "/livez")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := slogx.AddRequestAttrs(r.Context(), "client_id", "web")
		slogx.FromContext(ctx).Info("issued")
		w.WriteHeader(http.StatusUnauthorized)
	}))

	t.Run("access line carries request attrs", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodPost, "/oauth/token", nil)
		req.Header.Set(slogx.RequestIDHeader, "req-42")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, "req-42", rec.Header().Get(slogx.RequestIDHeader))

		got := lines(t, &buf)
		require.Len(t, got, 2)
		require.Equal(t, "issued", got[0]["msg"])
		require.Equal(t, "req-42", got[0]["req_id"])
		require.Equal(t, "web", got[0]["client_id"])

		require.Equal(t, "http_request", got[1]["msg"])
		require.Equal(t, "WARN", got[1]["level"])
		require.Equal(t, float64(http.StatusUnauthorized), got[1]["status"])
		require.Equal(t, "web", got[1]["client_id"])
	})

	t.Run("request id is generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/authorize", nil))
		require.NotEmpty(t, rec.Header().Get(slogx.RequestIDHeader))
	})

	t.Run("quiet paths log at debug", func(t *testing.T) {
		ok := slogx.HTTPMiddleware(logger, "/livez")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		buf.Reset()
		ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
		require.Empty(t, buf.String())

		ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Len(t, lines(t, &buf), 1)
	})
}
