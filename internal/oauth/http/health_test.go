package http_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	live, err := s.SDK.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := s.SDK.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks["database"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	_, err := s.SDK.ClientCredentialsGrant(context.Background(), confidentialID, confidentialSecret, nil)
	require.NoError(t, err)

	resp := s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `oauthd_grants_total{grant_type="client_credentials"} 1`)
	require.Contains(t, string(body), `oauthd_http_requests_total{code="200",method="POST",route="POST /oauth/token"} 1`)
}
