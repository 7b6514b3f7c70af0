package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/session"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store/drivers/sqlite"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store/drivers/sqlite/sqlitetest"
	"github.com/aussiebroadwan/oauthd/pkg/clockx"
	"github.com/aussiebroadwan/oauthd/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	testPassword = "correct horse battery staple"
	callback     = "http://cb"
)

// fixture is a fully wired service layer on a fresh sqlite database.
type fixture struct {
	store      *sqlite.Store
	clock      *clockx.Manual
	tokens     TokenFactory
	codes      *AuthorizationCodeService
	dispatcher *GrantDispatcher
	implicit   *TokenGranter
	flow       *AuthorizationFlow
	sessions   *session.MemoryStore
	admin      *TokenAdminService
}

func newFixture(t *testing.T, keys UniqueKeyGenerator) *fixture {
	t.Helper()
	cryptox.SetPepper("test-pepper")

	st := sqlitetest.New(t)
	clock := clockx.NewManual(epoch)
	tokens := TokenFactory{Clock: clock}
	codes := &AuthorizationCodeService{Store: st, Clock: clock}

	granter := func(gt domain.GrantType, c TokenCreator) *TokenGranter {
		return &TokenGranter{GrantType: gt, Store: st, Creator: c, Keys: keys, Clock: clock}
	}

	implicit := granter(domain.GrantImplicit, &ImplicitGrant{Tokens: tokens})
	dispatcher := NewGrantDispatcher(map[domain.GrantType]Granter{
		domain.GrantAuthorizationCode: granter(domain.GrantAuthorizationCode, &AuthorizationCodeGrant{Codes: codes, Tokens: tokens}),
		domain.GrantClientCredentials: granter(domain.GrantClientCredentials, &ClientCredentialsGrant{Tokens: tokens}),
		domain.GrantRefreshToken:      granter(domain.GrantRefreshToken, &RefreshTokenGrant{Tokens: tokens}),
		domain.GrantPassword: granter(domain.GrantPassword, &PasswordGrant{
			Tokens:        tokens,
			Authenticator: &UserCredentialAuthenticator{Store: st},
		}),
	})

	sessions := session.NewMemoryStore(session.DefaultTTL)
	flow := &AuthorizationFlow{
		Clients:   &StoreClientDirectory{Store: st},
		Approvals: &StoreApprovalAuthority{Store: st, Clock: clock},
		Sessions:  sessions,
		Enhancers: []ResponseEnhancer{
			&CodeEnhancer{Codes: codes},
			&ImplicitEnhancer{Granter: implicit, Clock: clock},
		},
	}

	return &fixture{
		store:      st,
		clock:      clock,
		tokens:     tokens,
		codes:      codes,
		dispatcher: dispatcher,
		implicit:   implicit,
		flow:       flow,
		sessions:   sessions,
		admin:      &TokenAdminService{Store: st, Clock: clock},
	}
}

// seedClient registers a public client for every grant type with scopes
// read and write and the given redirect URIs (callback when none).
func (f *fixture) seedClient(t *testing.T, id domain.ClientID, redirects ...string) domain.Client {
	t.Helper()
	if len(redirects) == 0 {
		redirects = []string{callback}
	}

	c := domain.Client{
		ID:           id,
		Name:         string(id),
		RedirectURIs: redirects,
		GrantTypes: []domain.GrantType{
			domain.GrantAuthorizationCode,
			domain.GrantClientCredentials,
			domain.GrantImplicit,
			domain.GrantPassword,
			domain.GrantRefreshToken,
		},
		Scopes:    domain.ParseScopeSet("read write"),
		CreatedAt: epoch,
		UpdatedAt: epoch,
	}
	require.NoError(t, f.store.Clients().CreateClient(context.Background(), c))
	return c
}

func (f *fixture) seedUser(t *testing.T, username domain.Username) {
	t.Helper()

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)
	require.NoError(t, f.store.Users().CreateUser(context.Background(), domain.User{
		ID:           "user-" + string(username),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    epoch,
		UpdatedAt:    epoch,
	}))
}

// issueCode stores a code for alice as the authorization endpoint would.
func (f *fixture) issueCode(t *testing.T, req domain.AuthorizationRequest) string {
	t.Helper()

	if req.Username == "" {
		req.Username = "alice"
	}
	if req.Scopes == nil {
		req.Scopes = domain.ParseScopeSet("read")
	}
	code, err := f.codes.Issue(context.Background(), req)
	require.NoError(t, err)
	return code
}

func (f *fixture) countAccessTokens(t *testing.T) int {
	t.Helper()

	var n int
	require.NoError(t, f.store.DB().QueryRow(`SELECT COUNT(*) FROM access_tokens`).Scan(&n))
	return n
}
