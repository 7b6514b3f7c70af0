package domain

import (
	"errors"
	"fmt"
)

// GrantType is one of the OAuth2 grant types the server understands.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantRefreshToken      GrantType = "refresh_token"
	GrantClientCredentials GrantType = "client_credentials"
	GrantImplicit          GrantType = "implicit"
	GrantPassword          GrantType = "password"
)

var ErrUnknownGrantType = errors.New("unknown grant type")

// ParseGrantType rejects anything outside the closed set of grant types.
func ParseGrantType(s string) (GrantType, error) {
	switch gt := GrantType(s); gt {
	case GrantAuthorizationCode, GrantRefreshToken, GrantClientCredentials, GrantImplicit, GrantPassword:
		return gt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGrantType, s)
}

// ResponseType is the response_type of an authorization request.
type ResponseType string

const (
	ResponseTypeCode  ResponseType = "code"
	ResponseTypeToken ResponseType = "token"
)

var ErrUnknownResponseType = errors.New("unknown response type")

func ParseResponseType(s string) (ResponseType, error) {
	switch rt := ResponseType(s); rt {
	case ResponseTypeCode, ResponseTypeToken:
		return rt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResponseType, s)
}
