package domain

import (
	"errors"
	"time"
)

// AuthorizationCodeTTL is how long an issued code can be exchanged.
const AuthorizationCodeTTL = 5 * time.Minute

// PKCEMethod is a code_challenge_method.
type PKCEMethod string

const (
	PKCEMethodPlain PKCEMethod = "plain"
	PKCEMethodS256  PKCEMethod = "S256"
)

var ErrUnsupportedPKCEMethod = errors.New("unsupported code_challenge_method")

// NormalizePKCE applies the challenge/method defaulting rules: no challenge
// means no method, and a challenge without a method means plain.
func NormalizePKCE(challenge, method string) (string, PKCEMethod, error) {
	if challenge == "" {
		return "", "", nil
	}
	switch m := PKCEMethod(method); m {
	case "":
		return challenge, PKCEMethodPlain, nil
	case PKCEMethodPlain, PKCEMethodS256:
		return challenge, m, nil
	}
	return "", "", ErrUnsupportedPKCEMethod
}

// AuthorizationCode is a stored one-time code. Only the fingerprint of the
// code value is kept.
type AuthorizationCode struct {
	CodeHash            string
	ClientID            ClientID
	Username            Username
	RedirectURI         string
	Scopes              ScopeSet
	CodeChallenge       string
	CodeChallengeMethod PKCEMethod
	ExpiresAt           time.Time
	CreatedAt           time.Time
}

func (c AuthorizationCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// AuthorizationRequest is the in-flight state of an /oauth/authorize
// interaction. It lives in the session store, never in the token store.
type AuthorizationRequest struct {
	ClientID            ClientID     `json:"client_id"`
	Username            Username     `json:"username"`
	RedirectURI         string       `json:"redirect_uri"`
	Scopes              ScopeSet     `json:"scopes"`
	ResponseType        ResponseType `json:"response_type"`
	State               string       `json:"state,omitempty"`
	CodeChallenge       string       `json:"code_challenge,omitempty"`
	CodeChallengeMethod PKCEMethod   `json:"code_challenge_method,omitempty"`
}
