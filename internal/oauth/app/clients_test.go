package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store/drivers/sqlite/sqlitetest"
	"github.com/aussiebroadwan/oauthd/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const clientsYAML = `
clients:
  - id: web
    name: Web App
    secret: web-secret
    redirect_uris: [http://cb]
    grant_types: [authorization_code, refresh_token]
    scopes: [read, write]
    access_token_ttl: 1h
  - id: spa
    redirect_uris: [http://spa/cb]
    grant_types: [implicit]
    scopes: [read]
  - id: worker
    secret: worker-secret
    grant_types: [client_credentials]
    scopes: [jobs]
`

func TestImportClients(t *testing.T) {
	cryptox.SetPepper("test-pepper")
	ctx := context.Background()
	st := sqlitetest.New(t)

	n, err := ImportClients(ctx, st, strings.NewReader(clientsYAML), now)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	web, err := st.Clients().GetClient(ctx, "web")
	require.NoError(t, err)
	require.Equal(t, "Web App", web.Name)
	require.False(t, web.IsPublic())
	require.NotEqual(t, "web-secret", web.SecretHash)
	require.NoError(t, cryptox.VerifyPassword("web-secret", web.SecretHash))
	require.Equal(t, []string{"http://cb"}, web.RedirectURIs)
	require.True(t, web.AllowsGrant(domain.GrantAuthorizationCode))
	require.False(t, web.AllowsGrant(domain.GrantImplicit))
	require.Equal(t, time.Hour, web.AccessTokenTTL)
	require.Zero(t, web.RefreshTokenTTL)

	spa, err := st.Clients().GetClient(ctx, "spa")
	require.NoError(t, err)
	require.True(t, spa.IsPublic())
	require.Equal(t, "spa", spa.Name, "name defaults to the id")

	t.Run("re-import replaces fields", func(t *testing.T) {
		_, err := ImportClients(ctx, st, strings.NewReader(`
clients:
  - id: worker
    secret: rotated
    grant_types: [client_credentials]
    scopes: [jobs, reports]
`), now.Add(time.Hour))
		require.NoError(t, err)

		worker, err := st.Clients().GetClient(ctx, "worker")
		require.NoError(t, err)
		require.NoError(t, cryptox.VerifyPassword("rotated", worker.SecretHash))
		require.True(t, worker.Scopes.Equal(domain.ParseScopeSet("jobs reports")))
	})
}

func TestImportClientsRejectsInvalidDocuments(t *testing.T) {
	cryptox.SetPepper("test-pepper")

	tests := []struct {
		name string
		doc  string
	}{
		{"missing id", "clients:\n  - grant_types: [client_credentials]\n"},
		{"no grant types", "clients:\n  - id: a\n"},
		{"unknown grant type", "clients:\n  - id: a\n    grant_types: [device_code]\n"},
		{"browser grant without redirect", "clients:\n  - id: a\n    grant_types: [authorization_code]\n"},
		{"secret and hash", "clients:\n  - id: a\n    secret: x\n    secret_hash: y\n    grant_types: [client_credentials]\n"},
		{"duplicate id", "clients:\n  - id: a\n    grant_types: [client_credentials]\n  - id: a\n    grant_types: [client_credentials]\n"},
		{"unknown field", "clients:\n  - id: a\n    grant_types: [client_credentials]\n    scope: read\n"},
		{"bad duration", "clients:\n  - id: a\n    grant_types: [client_credentials]\n    access_token_ttl: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st := sqlitetest.New(t)

			_, err := ImportClients(ctx, st, strings.NewReader(tt.doc), now)
			require.Error(t, err)

			clients, err := st.Clients().ListClients(ctx)
			require.NoError(t, err)
			require.Empty(t, clients, "nothing is written on error")
		})
	}
}

func TestImportClientsEmptyDocument(t *testing.T) {
	st := sqlitetest.New(t)

	n, err := ImportClients(context.Background(), st, strings.NewReader(""), now)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestAddUser(t *testing.T) {
	cryptox.SetPepper("test-pepper")
	ctx := context.Background()
	st := sqlitetest.New(t)

	user, err := AddUser(ctx, st, " alice ", "correct horse", now)
	require.NoError(t, err)
	require.Equal(t, domain.Username("alice"), user.Username)
	require.NotEmpty(t, user.ID)

	stored, err := st.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, cryptox.VerifyPassword("correct horse", stored.PasswordHash))
	require.True(t, stored.CanAuthenticate())

	_, err = AddUser(ctx, st, "alice", "another password", now)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = AddUser(ctx, st, "bob", "short", now)
	require.ErrorIs(t, err, ErrInvalidUser)

	_, err = AddUser(ctx, st, "  ", "long enough password", now)
	require.ErrorIs(t, err, ErrInvalidUser)
}

func TestSetPassword(t *testing.T) {
	cryptox.SetPepper("test-pepper")
	ctx := context.Background()
	st := sqlitetest.New(t)

	_, err := AddUser(ctx, st, "alice", "correct horse", now)
	require.NoError(t, err)

	require.NoError(t, SetPassword(ctx, st, "alice", "battery staple"))

	stored, err := st.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, cryptox.VerifyPassword("battery staple", stored.PasswordHash))
	require.ErrorIs(t, cryptox.VerifyPassword("correct horse", stored.PasswordHash), cryptox.ErrPasswordMismatch)

	require.ErrorIs(t, SetPassword(ctx, st, "alice", "short"), ErrInvalidUser)
	require.ErrorIs(t, SetPassword(ctx, st, "mallory", "long enough password"), store.ErrNotFound)
}
