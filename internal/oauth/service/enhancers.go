package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/pkg/clockx"
)

// ResponseEnhancer completes an approved authorization request by adding its
// response parameters to the redirect target.
type ResponseEnhancer interface {
	Handles(rt domain.ResponseType) bool
	Enhance(ctx context.Context, client domain.Client, req domain.AuthorizationRequest, target string) (string, error)
}

// CodeEnhancer issues an authorization code and returns it in the query.
type CodeEnhancer struct {
	Codes *AuthorizationCodeService
}

func (e *CodeEnhancer) Handles(rt domain.ResponseType) bool {
	return rt == domain.ResponseTypeCode
}

func (e *CodeEnhancer) Enhance(
	ctx context.Context,
	_ domain.Client,
	req domain.AuthorizationRequest,
	target string,
) (string, error) {
	code, err := e.Codes.Issue(ctx, req)
	if err != nil {
		return "", err
	}

	params := url.Values{"code": {code}}
	if req.State != "" {
		params.Set("state", req.State)
	}
	return withQuery(target, params)
}

// ImplicitEnhancer issues an access token directly and returns it in the
// fragment. Granter is normally the implicit TokenGranter.
type ImplicitEnhancer struct {
	Granter Granter
	Clock   clockx.Clock
}

func (e *ImplicitEnhancer) Handles(rt domain.ResponseType) bool {
	return rt == domain.ResponseTypeToken
}

func (e *ImplicitEnhancer) Enhance(
	ctx context.Context,
	client domain.Client,
	req domain.AuthorizationRequest,
	target string,
) (string, error) {
	tok, err := e.Granter.Grant(ctx, client, TokenRequest{
		GrantType: domain.GrantImplicit,
		ClientID:  client.ID,
		Scopes:    req.Scopes,
		Username:  req.Username,
	})
	if err != nil {
		return "", err
	}

	params := url.Values{
		"access_token": {tok.ID},
		"token_type":   {domain.TokenTypeBearer},
		"expires_in":   {strconv.FormatInt(tok.ExpiresIn(e.Clock.Now()), 10)},
		"scope":        {tok.Scopes.String()},
	}
	if req.State != "" {
		params.Set("state", req.State)
	}
	return withFragment(target, params)
}

// ErrorRedirect renders err onto target the way a successful response of the
// same type would be rendered: in the query for code, in the fragment for token.
func ErrorRedirect(target string, rt domain.ResponseType, state string, err error) (string, error) {
	params := url.Values{"error": {ErrorCode(err)}}
	if desc := ErrorDescription(err); desc != "" {
		params.Set("error_description", desc)
	}
	if state != "" {
		params.Set("state", state)
	}

	if rt == domain.ResponseTypeToken {
		return withFragment(target, params)
	}
	return withQuery(target, params)
}

// ErrorDescription is the human-readable part of a wrapped protocol error.
// Internal errors have no description.
func ErrorDescription(err error) string {
	code := ErrorCode(err)
	if code == "server_error" {
		return ""
	}
	desc, _ := strings.CutPrefix(err.Error(), code)
	return strings.TrimPrefix(desc, ": ")
}

func withQuery(target string, params url.Values) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: malformed redirect_uri", ErrInvalidRequest)
	}
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func withFragment(target string, params url.Values) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: malformed redirect_uri", ErrInvalidRequest)
	}
	u.Fragment, u.RawFragment = "", ""
	return u.String() + "#" + params.Encode(), nil
}
