package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
)

type clientsRepo struct {
	db dbtx
}

const clientColumns = `id, name, secret_hash, redirect_uris, grant_types, scopes,
	access_token_ttl, refresh_token_ttl, created_at, updated_at`

func (r *clientsRepo) GetClient(ctx context.Context, id domain.ClientID) (domain.Client, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, string(id))
	c, err := scanClient(row)
	if err != nil {
		return domain.Client{}, mapError(err)
	}
	return c, nil
}

func (r *clientsRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		clientArgs(c)...)
	return mapError(err)
}

func (r *clientsRepo) UpsertClient(ctx context.Context, c domain.Client) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			secret_hash = excluded.secret_hash,
			redirect_uris = excluded.redirect_uris,
			grant_types = excluded.grant_types,
			scopes = excluded.scopes,
			access_token_ttl = excluded.access_token_ttl,
			refresh_token_ttl = excluded.refresh_token_ttl,
			updated_at = excluded.updated_at`,
		clientArgs(c)...)
	return mapError(err)
}

func (r *clientsRepo) DeleteClient(ctx context.Context, id domain.ClientID) error {
	return requireAffected(r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, string(id)))
}

func clientArgs(c domain.Client) []any {
	return []any{
		string(c.ID),
		c.Name,
		mapStringNull(c.SecretHash),
		strings.Join(c.RedirectURIs, " "),
		joinGrantTypes(c.GrantTypes),
		c.Scopes.String(),
		c.AccessTokenTTL.Milliseconds(),
		c.RefreshTokenTTL.Milliseconds(),
		toMillis(c.CreatedAt),
		toMillis(c.UpdatedAt),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClient(s scanner) (domain.Client, error) {
	var (
		id, name                         string
		secretHash                       sql.NullString
		redirectURIs, grantTypes, scopes string
		accessTTL, refreshTTL            int64
		createdAt, updatedAt             int64
	)
	if err := s.Scan(&id, &name, &secretHash, &redirectURIs, &grantTypes, &scopes,
		&accessTTL, &refreshTTL, &createdAt, &updatedAt); err != nil {
		return domain.Client{}, err
	}

	return domain.Client{
		ID:              domain.ClientID(id),
		Name:            name,
		SecretHash:      mapNullString(secretHash),
		RedirectURIs:    strings.Fields(redirectURIs),
		GrantTypes:      splitGrantTypes(grantTypes),
		Scopes:          domain.ParseScopeSet(scopes),
		AccessTokenTTL:  time.Duration(accessTTL) * time.Millisecond,
		RefreshTokenTTL: time.Duration(refreshTTL) * time.Millisecond,
		CreatedAt:       fromMillis(createdAt),
		UpdatedAt:       fromMillis(updatedAt),
	}, nil
}
