package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/session"
	"github.com/aussiebroadwan/oauthd/pkg/slogx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Principal is the authenticated end user driving an authorization request.
type Principal struct {
	Username  domain.Username
	SessionID string
}

func (p Principal) authenticated() bool {
	return p.Username != "" && p.SessionID != ""
}

// AuthorizeParams are the query or form parameters of /oauth/authorize.
type AuthorizeParams struct {
	ClientID            string
	ResponseType        string
	RedirectURI         string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string

	// Raw keeps every parameter as received.
	Raw map[string]string
}

func ParseAuthorizeParams(values url.Values) AuthorizeParams {
	raw := make(map[string]string, len(values))
	for k := range values {
		raw[k] = values.Get(k)
	}
	return AuthorizeParams{
		ClientID:            values.Get("client_id"),
		ResponseType:        values.Get("response_type"),
		RedirectURI:         values.Get("redirect_uri"),
		Scope:               values.Get("scope"),
		State:               values.Get("state"),
		CodeChallenge:       values.Get("code_challenge"),
		CodeChallengeMethod: values.Get("code_challenge_method"),
		Raw:                 raw,
	}
}

// AuthorizeResult is either a consent prompt or a finished redirect.
type AuthorizeResult struct {
	// Set when the user has to approve scopes.
	Client        domain.Client
	Request       domain.AuthorizationRequest
	NeedsApproval domain.ScopeSet
	AutoApproved  domain.ScopeSet

	// Set when the request completed.
	RedirectURI string
}

func (r AuthorizeResult) NeedsConsent() bool {
	return r.RedirectURI == ""
}

// RedirectableError is a protocol error that must be reported to the client
// by redirecting the user agent, because the redirect target is trusted.
type RedirectableError struct {
	Err          error
	RedirectURI  string
	ResponseType domain.ResponseType
	State        string
}

func (e *RedirectableError) Error() string { return e.Err.Error() }
func (e *RedirectableError) Unwrap() error { return e.Err }

// Location renders the error onto the redirect target.
func (e *RedirectableError) Location() (string, error) {
	return ErrorRedirect(e.RedirectURI, e.ResponseType, e.State, e.Err)
}

// AuthorizationFlow runs the two-step authorization endpoint: Authorize
// validates the request and parks it in the session store, Approve reads it
// back and completes it. A stored request is cleared on every exit of Approve.
type AuthorizationFlow struct {
	Clients    ClientDirectory
	Approvals  ApprovalAuthority
	Sessions   session.Store
	SessionTTL time.Duration // <= 0: session.DefaultTTL
	Enhancers  []ResponseEnhancer
}

func (f *AuthorizationFlow) Authorize(ctx context.Context, p Principal, params AuthorizeParams) (res AuthorizeResult, err error) {
	ctx, span := tracer.Start(ctx, "oauth.authorize", trace.WithAttributes(
		attribute.String("oauth.client_id", params.ClientID),
		attribute.String("oauth.response_type", params.ResponseType),
	))
	defer func() { endSpan(span, err) }()

	if !p.authenticated() {
		return AuthorizeResult{}, ErrLoginRequired
	}
	if params.ResponseType == "" {
		return AuthorizeResult{}, fmt.Errorf("%w: response_type is required", ErrInvalidRequest)
	}
	if params.ClientID == "" {
		return AuthorizeResult{}, fmt.Errorf("%w: client_id is required", ErrInvalidRequest)
	}
	rt, err := domain.ParseResponseType(params.ResponseType)
	if err != nil {
		return AuthorizeResult{}, fmt.Errorf("%w: %v", ErrUnsupportedResponseType, err)
	}

	client, err := f.Clients.LoadClient(ctx, domain.ClientID(params.ClientID))
	if err != nil {
		return AuthorizeResult{}, err
	}
	target, err := ResolveRedirectURI(params.RedirectURI, client)
	if err != nil {
		return AuthorizeResult{}, err
	}

	// From here on the client and its redirect target are trusted.
	redirectable := func(err error) error {
		if !IsProtocolError(err) {
			return err
		}
		return &RedirectableError{Err: err, RedirectURI: target, ResponseType: rt, State: params.State}
	}

	if !client.AllowsGrant(grantForResponseType(rt)) {
		return AuthorizeResult{}, redirectable(fmt.Errorf("%w: client may not use response_type %s", ErrUnauthorizedClient, rt))
	}

	scopes, err := requestedScopes(domain.ParseScopeSet(params.Scope), client)
	if err != nil {
		return AuthorizeResult{}, redirectable(err)
	}

	challenge, method, err := domain.NormalizePKCE(params.CodeChallenge, params.CodeChallengeMethod)
	if err != nil {
		return AuthorizeResult{}, redirectable(fmt.Errorf("%w: %v", ErrInvalidRequest, err))
	}

	approved, err := f.Approvals.AutoApproved(ctx, p.Username, client.ID)
	if err != nil {
		return AuthorizeResult{}, err
	}
	needs := scopes.Minus(approved)
	auto := scopes.Minus(needs)

	st := session.State{
		Request: domain.AuthorizationRequest{
			ClientID:            client.ID,
			Username:            p.Username,
			RedirectURI:         target,
			Scopes:              scopes,
			ResponseType:        rt,
			State:               params.State,
			CodeChallenge:       challenge,
			CodeChallengeMethod: method,
		},
		Params:           params.Raw,
		NeedsApproval:    needs,
		AutoApproved:     auto,
		RedirectSupplied: params.RedirectURI != "",
	}
	if err := f.Sessions.Save(ctx, p.SessionID, st, f.sessionTTL()); err != nil {
		return AuthorizeResult{}, err
	}

	if !needs.IsEmpty() {
		return AuthorizeResult{
			Client:        client,
			Request:       st.Request,
			NeedsApproval: needs,
			AutoApproved:  auto,
		}, nil
	}

	span.SetAttributes(attribute.Bool("oauth.auto_approved", true))
	defer f.clear(ctx, p.SessionID)

	location, err := f.complete(ctx, client, st, auto)
	if err != nil {
		return AuthorizeResult{}, redirectable(err)
	}
	return AuthorizeResult{RedirectURI: location}, nil
}

// Approve completes the pending request of p's session with the user's
// answer from the consent form.
func (f *AuthorizationFlow) Approve(ctx context.Context, p Principal, form url.Values) (location string, err error) {
	ctx, span := tracer.Start(ctx, "oauth.approve")
	defer func() { endSpan(span, err) }()

	if !p.authenticated() {
		return "", ErrLoginRequired
	}

	// Every exit from here on releases the pending request, including a
	// failed load of a corrupt entry.
	defer f.clear(ctx, p.SessionID)

	st, err := f.Sessions.Load(ctx, p.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		return "", fmt.Errorf("%w: no pending authorization request", ErrInvalidRequest)
	}
	if err != nil {
		return "", err
	}

	req := st.Request
	span.SetAttributes(attribute.String("oauth.client_id", string(req.ClientID)))

	if req.Username != p.Username {
		return "", fmt.Errorf("%w: authorization request belongs to another user", ErrInvalidRequest)
	}

	client, err := f.Clients.LoadClient(ctx, req.ClientID)
	if err != nil {
		return "", err
	}

	redirectable := func(err error) error {
		if !IsProtocolError(err) {
			return err
		}
		return &RedirectableError{Err: err, RedirectURI: req.RedirectURI, ResponseType: req.ResponseType, State: req.State}
	}

	// The overall flag is optional; when sent it must agree.
	if form.Has("user_oauth_approval") && !strings.EqualFold(form.Get("user_oauth_approval"), "true") {
		return "", redirectable(ErrUserDenied)
	}

	explicit, err := ResolveApprovedScopes(st.NeedsApproval, form)
	if err != nil {
		return "", redirectable(err)
	}

	// Auto-approved scopes were confirmed again, so their expiry is renewed too.
	approved := explicit.Union(st.AutoApproved)
	if err := f.Approvals.GrantApprovals(ctx, p.Username, client.ID, approved); err != nil {
		return "", err
	}

	location, err = f.complete(ctx, client, st, approved)
	if err != nil {
		return "", redirectable(err)
	}
	return location, nil
}

// complete runs the enhancer for the request's response type. The redirect
// target is always the resolved one; the request itself keeps redirect_uri
// only if the client sent it, so the token endpoint can match it later.
func (f *AuthorizationFlow) complete(ctx context.Context, client domain.Client, st session.State, scopes domain.ScopeSet) (string, error) {
	req := st.Request
	target := req.RedirectURI
	req.Scopes = scopes
	if !st.RedirectSupplied {
		req.RedirectURI = ""
	}

	for _, e := range f.Enhancers {
		if e.Handles(req.ResponseType) {
			return e.Enhance(ctx, client, req, target)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedResponseType, req.ResponseType)
}

func (f *AuthorizationFlow) clear(ctx context.Context, sid string) {
	// The request context may already be done; clearing must still happen.
	ctx = context.WithoutCancel(ctx)
	if err := f.Sessions.Clear(ctx, sid); err != nil {
		slogx.FromContext(ctx).Warn("failed to clear authorization request", slog.Any("error", err))
	}
}

func (f *AuthorizationFlow) sessionTTL() time.Duration {
	if f.SessionTTL <= 0 {
		return session.DefaultTTL
	}
	return f.SessionTTL
}

func grantForResponseType(rt domain.ResponseType) domain.GrantType {
	if rt == domain.ResponseTypeToken {
		return domain.GrantImplicit
	}
	return domain.GrantAuthorizationCode
}
