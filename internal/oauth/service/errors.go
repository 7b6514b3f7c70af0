package service

import (
	"errors"
	"fmt"
)

// Protocol errors are named after their OAuth2 error codes. Descriptions are
// attached by wrapping: fmt.Errorf("%w: detail", ErrInvalidGrant).
var (
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrInvalidScope            = errors.New("invalid_scope")
	ErrUnauthorizedClient      = errors.New("unauthorized_client")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrAccessDenied            = errors.New("access_denied")
	ErrRedirectMismatch        = errors.New("redirect_uri_mismatch")
	ErrTokenNotFound           = errors.New("token_not_found")

	// ErrUserDenied and ErrLoginRequired are both access_denied.
	ErrUserDenied    = fmt.Errorf("%w: user denied authorization", ErrAccessDenied)
	ErrLoginRequired = fmt.Errorf("%w: user authentication is required", ErrAccessDenied)

	// ErrBadCredentials is returned by authenticators; callers translate it.
	ErrBadCredentials = errors.New("bad credentials")
)

var protocolErrors = []error{
	ErrInvalidRequest,
	ErrInvalidClient,
	ErrInvalidGrant,
	ErrInvalidScope,
	ErrUnauthorizedClient,
	ErrUnsupportedGrantType,
	ErrUnsupportedResponseType,
	ErrAccessDenied,
	ErrRedirectMismatch,
}

// IsProtocolError reports whether err is an OAuth2 protocol error rather than
// a storage or programming failure.
func IsProtocolError(err error) bool {
	for _, target := range protocolErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ErrorCode returns the OAuth2 error code for err, or "server_error".
func ErrorCode(err error) string {
	// invalid_grant is checked before redirect_uri_mismatch: a mismatch at the
	// token endpoint is reported as invalid_grant.
	for _, target := range protocolErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "server_error"
}
