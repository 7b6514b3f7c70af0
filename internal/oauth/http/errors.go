package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/oauthd/internal/oauth/service"
	"github.com/aussiebroadwan/oauthd/pkg/authsdk"
	"github.com/aussiebroadwan/oauthd/pkg/slogx"
)

var errTokenNotFound = authsdk.NewOAuth2Error(http.StatusNotFound, authsdk.ErrorCodeInvalidToken, "token not found")

// toOAuth2Error maps a service error onto its wire form. invalid_grant is
// matched before redirect_uri_mismatch so a mismatch at the token endpoint
// surfaces as invalid_grant.
func toOAuth2Error(err error) *authsdk.OAuth2Error {
	var base *authsdk.OAuth2Error
	switch {
	case errors.Is(err, service.ErrLoginRequired):
		base = authsdk.ErrLoginRequired
	case errors.Is(err, service.ErrInvalidGrant):
		base = authsdk.ErrInvalidGrant
	case errors.Is(err, service.ErrRedirectMismatch):
		base = authsdk.ErrRedirectMismatch
	case errors.Is(err, service.ErrInvalidClient):
		base = authsdk.ErrInvalidClient
	case errors.Is(err, service.ErrInvalidScope):
		base = authsdk.ErrInvalidScope
	case errors.Is(err, service.ErrUnauthorizedClient):
		base = authsdk.ErrUnauthorizedClient
	case errors.Is(err, service.ErrUnsupportedGrantType):
		base = authsdk.ErrUnsupportedGrantType
	case errors.Is(err, service.ErrUnsupportedResponseType):
		base = authsdk.ErrUnsupportedResponseType
	case errors.Is(err, service.ErrAccessDenied):
		base = authsdk.ErrAccessDenied
	case errors.Is(err, service.ErrInvalidRequest):
		base = authsdk.ErrInvalidRequest
	case errors.Is(err, service.ErrTokenNotFound):
		return errTokenNotFound
	default:
		return authsdk.ErrServerError
	}

	if desc := service.ErrorDescription(err); desc != "" {
		return base.WithDescription(desc)
	}
	return base
}

// writeError renders err as a JSON OAuth2 error. Internal errors are logged
// and never described to the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	oauthErr := toOAuth2Error(err)
	if oauthErr.Code == authsdk.ErrorCodeServerError {
		slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
	}
	oauthErr.WriteError(w)
}
