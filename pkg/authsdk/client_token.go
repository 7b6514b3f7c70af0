package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// AuthorizationCodeGrant exchanges an authorization code for tokens.
// redirectURI and codeVerifier are sent only when non-empty.
func (c *SDKClient) AuthorizationCodeGrant(
	ctx context.Context,
	creds ClientCredentials,
	code, redirectURI, codeVerifier string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	}
	if redirectURI != "" {
		data.Set("redirect_uri", redirectURI)
	}
	if codeVerifier != "" {
		data.Set("code_verifier", codeVerifier)
	}

	return c.requestToken(ctx, creds, data)
}

// RefreshGrant requests new tokens using a refresh token. When scopes is empty
// the server keeps the scopes of the original token.
func (c *SDKClient) RefreshGrant(
	ctx context.Context,
	creds ClientCredentials,
	refreshToken string,
	scopes []string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	setScope(data, scopes)

	return c.requestToken(ctx, creds, data)
}

// ClientCredentialsGrant requests an access token using the OAuth2 client_credentials grant.
// This grant is used for machine-to-machine authentication where a client acts on its own
// behalf. No refresh token is returned unless the server enables it.
func (c *SDKClient) ClientCredentialsGrant(
	ctx context.Context,
	clientID, clientSecret string,
	scopes []string,
) (*TokenResponse, error) {
	data := url.Values{"grant_type": {"client_credentials"}}
	setScope(data, scopes)

	return c.requestToken(ctx, ClientCredentials{ID: clientID, Secret: clientSecret}, data)
}

// PasswordGrant requests tokens with the resource owner's credentials.
func (c *SDKClient) PasswordGrant(
	ctx context.Context,
	creds ClientCredentials,
	username, password string,
	scopes []string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	}
	setScope(data, scopes)

	return c.requestToken(ctx, creds, data)
}

// RevokeToken revokes an access token (and its refresh token) owned by the
// calling client. The server echoes the revoked token.
func (c *SDKClient) RevokeToken(ctx context.Context, creds ClientCredentials, token string) (*TokenResponse, error) {
	path := "/oauth/token?" + url.Values{"token": {token}}.Encode()

	if creds.Secret == "" {
		// Public clients identify themselves through the query.
		path += "&" + url.Values{"client_id": {creds.ID}}.Encode()
	}

	resp, err := c.doRequest(ctx, http.MethodDelete, path, nil, nil, creds)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}

	return &tokenResp, nil
}

// Introspect reports whether token is active and, if so, what it grants.
func (c *SDKClient) Introspect(ctx context.Context, token string) (*IntrospectionResponse, error) {
	data := url.Values{"token": {token}}

	resp, err := c.doRequest(ctx, http.MethodPost, "/oauth/token_info",
		strings.NewReader(data.Encode()), formHeaders(), ClientCredentials{})
	if err != nil {
		return nil, err
	}

	var info IntrospectionResponse
	if err := decodeJSON(resp, &info, http.StatusOK); err != nil {
		return nil, err
	}

	return &info, nil
}

// Login authenticates a resource owner and returns the session token used by
// the authorization endpoint.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	data := url.Values{
		"username": {username},
		"password": {password},
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/oauth/login",
		strings.NewReader(data.Encode()), formHeaders(), ClientCredentials{})
	if err != nil {
		return nil, err
	}

	var login LoginResponse
	if err := decodeJSON(resp, &login, http.StatusOK); err != nil {
		return nil, err
	}

	return &login, nil
}

func (c *SDKClient) requestToken(ctx context.Context, creds ClientCredentials, data url.Values) (*TokenResponse, error) {
	if creds.Secret == "" && creds.ID != "" {
		data.Set("client_id", creds.ID)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/oauth/token",
		strings.NewReader(data.Encode()), formHeaders(), creds)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}

	return &tokenResp, nil
}

func setScope(data url.Values, scopes []string) {
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}
}

func formHeaders() map[string]string {
	return map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
}
