/*
Package authsdk provides the wire types and a small Go client for the oauthd authorization server.

# Overview

The server uses the error catalogue and response types in this package to render responses,
and the SDKClient speaks the same shapes from the other side:

	client := authsdk.NewSDKClient("https://auth.example.com")

	// Machine-to-machine token
	tok, err := client.ClientCredentialsGrant(ctx, "svc", "secret", []string{"read"})

	// Exchange an authorization code (PKCE verifier optional)
	tok, err = client.AuthorizationCodeGrant(ctx, creds, code, redirectURI, verifier)

	// Rotate a refresh token, optionally narrowing scope
	tok, err = client.RefreshGrant(ctx, creds, tok.RefreshToken, []string{"read"})

	// Inspect or revoke
	info, err := client.Introspect(ctx, tok.AccessToken)
	_, err = client.RevokeToken(ctx, creds, tok.AccessToken)

# Errors

Every non-2xx response is returned as an *OAuth2Error carrying the HTTP status and the
RFC 6749 error code, so callers can compare codes directly:

	var oerr *authsdk.OAuth2Error
	if errors.As(err, &oerr) && oerr.Code == authsdk.ErrorCodeInvalidGrant {
		// code or refresh token already used
	}
*/
package authsdk
