package http_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/aussiebroadwan/oauthd/pkg/authsdk"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// These tests use golang.org/x/oauth2 as an independent client to check the
// token endpoint speaks standard OAuth2.

func TestClientCredentialsWithOAuth2Client(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		scopes    []string
		authStyle oauth2.AuthStyle
		wantScope string
	}{
		{"basic auth with explicit scopes", []string{"read", "write"}, oauth2.AuthStyleInHeader, "read write"},
		{"form auth with explicit scopes", []string{"write", "read"}, oauth2.AuthStyleInParams, "read write"},
		{"omitted scope gets every client scope", nil, oauth2.AuthStyleInHeader, "read write"},
		{"narrowed scope", []string{"read"}, oauth2.AuthStyleInParams, "read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := clientcredentials.Config{
				ClientID:     confidentialID,
				ClientSecret: confidentialSecret,
				TokenURL:     s.URL + "/oauth/token",
				Scopes:       tt.scopes,
				AuthStyle:    tt.authStyle,
			}

			tok, err := conf.Token(ctx)
			require.NoError(t, err)
			require.NotEmpty(t, tok.AccessToken)
			require.Equal(t, "Bearer", tok.TokenType)
			require.Empty(t, tok.RefreshToken, "client_credentials issues no refresh token")
			require.Equal(t, tt.wantScope, tok.Extra("scope"))
			require.Equal(t, float64(43200), tok.Extra("expires_in"))
		})
	}

	t.Run("scope outside the client", func(t *testing.T) {
		conf := clientcredentials.Config{
			ClientID:     confidentialID,
			ClientSecret: confidentialSecret,
			TokenURL:     s.URL + "/oauth/token",
			Scopes:       []string{"admin"},
			AuthStyle:    oauth2.AuthStyleInHeader,
		}

		_, err := conf.Token(ctx)
		var re *oauth2.RetrieveError
		require.ErrorAs(t, err, &re)
		require.Equal(t, authsdk.ErrorCodeInvalidScope, re.ErrorCode)
	})

	t.Run("wrong secret", func(t *testing.T) {
		conf := clientcredentials.Config{
			ClientID:     confidentialID,
			ClientSecret: "nope",
			TokenURL:     s.URL + "/oauth/token",
			AuthStyle:    oauth2.AuthStyleInHeader,
		}

		_, err := conf.Token(ctx)
		var re *oauth2.RetrieveError
		require.ErrorAs(t, err, &re)
		require.Equal(t, authsdk.ErrorCodeInvalidClient, re.ErrorCode)
		require.Equal(t, http.StatusUnauthorized, re.Response.StatusCode)
	})

	t.Run("grant not registered for client", func(t *testing.T) {
		_, err := s.SDK.ClientCredentialsGrant(ctx, publicID, "", nil)
		requireOAuthError(t, err, http.StatusBadRequest, authsdk.ErrorCodeUnauthorizedClient)
	})
}

func TestAuthorizationCodeWithOAuth2Client(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	session := s.login(t)

	conf := &oauth2.Config{
		ClientID:     confidentialID,
		ClientSecret: confidentialSecret,
		RedirectURL:  callback,
		Scopes:       []string{"read"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   s.URL + "/oauth/authorize",
			TokenURL:  s.URL + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	authURL := conf.AuthCodeURL("xyz")
	resp := s.do(t, http.MethodGet, strings.TrimPrefix(authURL, s.URL), session, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	prompt := decode[authsdk.ConsentPrompt](t, resp)
	require.Equal(t, confidentialID, prompt.ClientID)
	require.Equal(t, []string{"read"}, prompt.Scopes)
	require.Equal(t, "xyz", prompt.State)

	resp = s.do(t, http.MethodPost, "/oauth/authorize", session, url.Values{
		"user_oauth_approval": {"true"},
		"read":                {"true"},
	})
	params := redirectParams(t, resp, false)
	require.Equal(t, "xyz", params.Get("state"))
	code := params.Get("code")
	require.Len(t, code, 6)

	tok, err := conf.Exchange(ctx, code)
	require.NoError(t, err)
	require.NotEmpty(t, tok.AccessToken)
	require.NotEmpty(t, tok.RefreshToken)
	require.Equal(t, "read", tok.Extra("scope"))

	t.Run("code is single use", func(t *testing.T) {
		_, err := conf.Exchange(ctx, code)
		var re *oauth2.RetrieveError
		require.ErrorAs(t, err, &re)
		require.Equal(t, authsdk.ErrorCodeInvalidGrant, re.ErrorCode)
	})

	t.Run("token source refreshes with the same scopes", func(t *testing.T) {
		expired := &oauth2.Token{RefreshToken: tok.RefreshToken}
		refreshed, err := conf.TokenSource(ctx, expired).Token()
		require.NoError(t, err)
		require.NotEqual(t, tok.AccessToken, refreshed.AccessToken)
		require.Equal(t, "read", refreshed.Extra("scope"))

		_, err = s.SDK.RefreshGrant(ctx, authsdk.ClientCredentials{ID: confidentialID, Secret: confidentialSecret}, tok.RefreshToken, nil)
		requireOAuthError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidGrant)
	})

	t.Run("approved scopes are not asked again", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, strings.TrimPrefix(conf.AuthCodeURL("again"), s.URL), session, nil)
		params := redirectParams(t, resp, false)
		require.Equal(t, "again", params.Get("state"))
		require.NotEmpty(t, params.Get("code"))
	})
}

func TestAuthorizationCodeWithPKCE(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	session := s.login(t)

	conf := &oauth2.Config{
		ClientID:    publicID,
		RedirectURL: callback,
		Scopes:      []string{"read", "write"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   s.URL + "/oauth/authorize",
			TokenURL:  s.URL + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	verifier := oauth2.GenerateVerifier()
	authURL := conf.AuthCodeURL("pkce", oauth2.S256ChallengeOption(verifier))
	resp := s.do(t, http.MethodGet, strings.TrimPrefix(authURL, s.URL), session, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Only write is approved.
	resp = s.do(t, http.MethodPost, "/oauth/authorize", session, url.Values{
		"user_oauth_approval": {"true"},
		"read":                {"false"},
		"write":               {"true"},
	})
	code := redirectParams(t, resp, false).Get("code")
	require.NotEmpty(t, code)

	t.Run("wrong verifier burns the code", func(t *testing.T) {
		_, err := conf.Exchange(ctx, code, oauth2.VerifierOption(oauth2.GenerateVerifier()))
		var re *oauth2.RetrieveError
		require.ErrorAs(t, err, &re)
		require.Equal(t, authsdk.ErrorCodeInvalidGrant, re.ErrorCode)

		_, err = conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
		require.ErrorAs(t, err, &re)
	})

	t.Run("matching verifier", func(t *testing.T) {
		// write is already approved, so no prompt this time.
		writeOnly := *conf
		writeOnly.Scopes = []string{"write"}
		verifier := oauth2.GenerateVerifier()

		authURL := writeOnly.AuthCodeURL("again", oauth2.S256ChallengeOption(verifier))
		resp := s.do(t, http.MethodGet, strings.TrimPrefix(authURL, s.URL), session, nil)
		code := redirectParams(t, resp, false).Get("code")
		require.NotEmpty(t, code)

		tok, err := writeOnly.Exchange(ctx, code, oauth2.VerifierOption(verifier))
		require.NoError(t, err)
		require.Equal(t, "write", tok.Extra("scope"))
		require.NotEmpty(t, tok.RefreshToken)
	})

	t.Run("read still needs consent", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, strings.TrimPrefix(authURL, s.URL), session, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		prompt := decode[authsdk.ConsentPrompt](t, resp)
		require.Equal(t, []string{"read"}, prompt.Scopes)
		require.Equal(t, []string{"write"}, prompt.AutoApproved)
	})
}

func TestRefreshNarrowsScope(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	creds := authsdk.ClientCredentials{ID: confidentialID, Secret: confidentialSecret}

	tok, err := s.SDK.PasswordGrant(ctx, creds, userName, userPassword, []string{"read", "write"})
	require.NoError(t, err)
	require.Equal(t, "read write", tok.Scope)
	require.NotEmpty(t, tok.RefreshToken)

	narrowed, err := s.SDK.RefreshGrant(ctx, creds, tok.RefreshToken, []string{"read"})
	require.NoError(t, err)
	require.Equal(t, "read", narrowed.Scope)
	require.NotEqual(t, tok.RefreshToken, narrowed.RefreshToken)

	_, err = s.SDK.RefreshGrant(ctx, creds, narrowed.RefreshToken, []string{"read", "write"})
	requireOAuthError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidScope)

	t.Run("bad password", func(t *testing.T) {
		_, err := s.SDK.PasswordGrant(ctx, creds, userName, "wrong", nil)
		requireOAuthError(t, err, http.StatusForbidden, authsdk.ErrorCodeAccessDenied)
	})
}

func TestTokenEndpointRejects(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		form   url.Values
		status int
		code   string
	}{
		{"implicit", url.Values{"grant_type": {"implicit"}, "client_id": {publicID}}, http.StatusBadRequest, authsdk.ErrorCodeUnsupportedGrantType},
		{"unknown grant", url.Values{"grant_type": {"device_code"}, "client_id": {publicID}}, http.StatusBadRequest, authsdk.ErrorCodeUnsupportedGrantType},
		{"missing grant", url.Values{"client_id": {publicID}}, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest},
		{"unknown client", url.Values{"grant_type": {"client_credentials"}, "client_id": {"ghost"}}, http.StatusUnauthorized, authsdk.ErrorCodeInvalidClient},
		{"missing code", url.Values{"grant_type": {"authorization_code"}, "client_id": {publicID}}, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(t, http.MethodPost, "/oauth/token", "", tt.form)
			require.Equal(t, tt.status, resp.StatusCode)
			require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

			body := decode[authsdk.ErrorResponse](t, resp)
			require.Equal(t, tt.code, body.Error)
		})
	}

	t.Run("success responses are not cached", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/oauth/token", "", url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {confidentialID},
			"client_secret": {confidentialSecret},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
		require.Equal(t, "no-cache", resp.Header.Get("Pragma"))
	})
}
