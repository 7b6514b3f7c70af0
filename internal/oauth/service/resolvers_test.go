package service

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestResolveRedirectURI(t *testing.T) {
	t.Parallel()

	single := domain.Client{RedirectURIs: []string{"http://cb"}}
	multi := domain.Client{RedirectURIs: []string{"http://cb", "http://cb2"}}
	none := domain.Client{}

	tests := []struct {
		name      string
		requested string
		client    domain.Client
		want      string
		wantErr   error
	}{
		{"defaults to the only registration", "", single, "http://cb", nil},
		{"exact match", "http://cb2", multi, "http://cb2", nil},
		{"omitted with several registered", "", multi, "", ErrInvalidRequest},
		{"omitted with none registered", "", none, "", ErrInvalidRequest},
		{"unregistered", "http://cb/extra", single, "", ErrRedirectMismatch},
		{"prefix is not a match", "http://c", single, "", ErrRedirectMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveRedirectURI(tt.requested, tt.client)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestResolveApprovedScopes(t *testing.T) {
	t.Parallel()

	requested := domain.ParseScopeSet("read write admin")

	got, err := ResolveApprovedScopes(requested, url.Values{
		"read":  {"TRUE"},
		"write": {"no"},
		"admin": {"true"},
		"extra": {"true"},
	})
	require.NoError(t, err)
	require.Equal(t, domain.ParseScopeSet("read admin"), got)

	_, err = ResolveApprovedScopes(requested, url.Values{"read": {"false"}})
	require.ErrorIs(t, err, ErrUserDenied)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestErrorRedirect(t *testing.T) {
	t.Parallel()

	location, err := ErrorRedirect("http://cb?keep=1", domain.ResponseTypeCode, "st", fmt.Errorf("%w: nope", ErrInvalidScope))
	require.NoError(t, err)

	q := redirectParams(t, location, false)
	require.Equal(t, "1", q.Get("keep"))
	require.Equal(t, "invalid_scope", q.Get("error"))
	require.Equal(t, "nope", q.Get("error_description"))
	require.Equal(t, "st", q.Get("state"))

	location, err = ErrorRedirect("http://cb", domain.ResponseTypeToken, "", ErrUserDenied)
	require.NoError(t, err)

	frag := redirectParams(t, location, true)
	require.Equal(t, "access_denied", frag.Get("error"))
	require.Equal(t, "user denied authorization", frag.Get("error_description"))
	require.False(t, frag.Has("state"))
}

func TestErrorCodeAndDescription(t *testing.T) {
	t.Parallel()

	mismatch := fmt.Errorf("%w: %w", ErrInvalidGrant, ErrRedirectMismatch)
	require.Equal(t, "invalid_grant", ErrorCode(mismatch))
	require.Equal(t, "redirect_uri_mismatch", ErrorDescription(mismatch))

	require.Equal(t, "access_denied", ErrorCode(ErrLoginRequired))
	require.Equal(t, "server_error", ErrorCode(fmt.Errorf("disk full")))
	require.Empty(t, ErrorDescription(fmt.Errorf("disk full")))
	require.Empty(t, ErrorDescription(ErrInvalidRequest))
	require.False(t, IsProtocolError(ErrBadCredentials))
}

func TestVerifyPKCE(t *testing.T) {
	t.Parallel()

	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	s256 := cryptox.S256Challenge(verifier)

	tests := []struct {
		name      string
		challenge string
		method    domain.PKCEMethod
		verifier  string
		ok        bool
	}{
		{"neither present", "", "", "", true},
		{"plain match", "abc", domain.PKCEMethodPlain, "abc", true},
		{"plain mismatch", "abc", domain.PKCEMethodPlain, "abd", false},
		{"S256 match", s256, domain.PKCEMethodS256, verifier, true},
		{"S256 given the challenge itself", s256, domain.PKCEMethodS256, s256, false},
		{"verifier without challenge", "", "", verifier, false},
		{"challenge without verifier", s256, domain.PKCEMethodS256, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifyPKCE(tt.challenge, tt.method, tt.verifier)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInvalidGrant)
			}
		})
	}
}

// countingDirectory counts lookups and blocks them until released.
type countingDirectory struct {
	calls   atomic.Int32
	release chan struct{}
}

func (d *countingDirectory) LoadClient(_ context.Context, id domain.ClientID) (domain.Client, error) {
	d.calls.Add(1)
	<-d.release
	if id == "ghost" {
		return domain.Client{}, ErrInvalidClient
	}
	return domain.Client{ID: id}, nil
}

func TestCachedClientDirectory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	next := &countingDirectory{release: make(chan struct{})}
	dir := NewCachedClientDirectory(next, time.Minute)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = dir.LoadClient(ctx, "web")
		}()
	}
	for next.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	close(next.release)
	wg.Wait()

	c, err := dir.LoadClient(ctx, "web")
	require.NoError(t, err)
	require.Equal(t, domain.ClientID("web"), c.ID)
	require.LessOrEqual(t, next.calls.Load(), int32(5))

	before := next.calls.Load()
	_, err = dir.LoadClient(ctx, "web")
	require.NoError(t, err)
	require.Equal(t, before, next.calls.Load())

	dir.Invalidate("web")
	_, err = dir.LoadClient(ctx, "web")
	require.NoError(t, err)
	require.Equal(t, before+1, next.calls.Load())

	_, err = dir.LoadClient(ctx, "ghost")
	require.ErrorIs(t, err, ErrInvalidClient)
	_, err = dir.LoadClient(ctx, "ghost")
	require.ErrorIs(t, err, ErrInvalidClient)
	require.Equal(t, before+3, next.calls.Load())
}

// contextDirectory blocks lookups until released or the lookup's context ends.
type contextDirectory struct {
	started chan struct{}
	once    sync.Once
	release chan struct{}
}

func (d *contextDirectory) LoadClient(ctx context.Context, id domain.ClientID) (domain.Client, error) {
	d.once.Do(func() { close(d.started) })
	select {
	case <-ctx.Done():
		return domain.Client{}, ctx.Err()
	case <-d.release:
		return domain.Client{ID: id}, nil
	}
}

func TestCachedClientDirectoryCallerCancellation(t *testing.T) {
	t.Parallel()

	next := &contextDirectory{started: make(chan struct{}), release: make(chan struct{})}
	dir := NewCachedClientDirectory(next, time.Minute)

	firstCtx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := dir.LoadClient(firstCtx, "web")
		first <- err
	}()
	<-next.started

	type result struct {
		client domain.Client
		err    error
	}
	second := make(chan result, 1)
	go func() {
		c, err := dir.LoadClient(context.Background(), "web")
		second <- result{c, err}
	}()

	cancel()
	require.ErrorIs(t, <-first, context.Canceled)

	close(next.release)
	got := <-second
	require.NoError(t, got.err)
	require.Equal(t, domain.ClientID("web"), got.client.ID)
}

func TestClientAuthenticator(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, nil)
	f.seedClient(t, "public")

	hash, err := cryptox.HashPassword("s3cret")
	require.NoError(t, err)
	confidential := domain.Client{
		ID:         "confidential",
		Name:       "confidential",
		SecretHash: hash,
		Scopes:     domain.ParseScopeSet("read"),
		CreatedAt:  epoch,
		UpdatedAt:  epoch,
	}
	require.NoError(t, f.store.Clients().CreateClient(ctx, confidential))

	auth := &ClientAuthenticator{Clients: &StoreClientDirectory{Store: f.store}}

	tests := []struct {
		name    string
		id      domain.ClientID
		secret  string
		wantErr bool
	}{
		{"public without secret", "public", "", false},
		{"public with secret", "public", "s3cret", true},
		{"confidential with secret", "confidential", "s3cret", false},
		{"confidential wrong secret", "confidential", "nope", true},
		{"confidential without secret", "confidential", "", true},
		{"unknown", "ghost", "", true},
		{"missing id", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := auth.Authenticate(ctx, tt.id, tt.secret)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidClient)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.id, c.ID)
		})
	}
}
