package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
)

type accessTokensRepo struct {
	db dbtx
}

const selectAccessToken = `
	SELECT a.id, a.client_id, a.username, a.scopes, a.grant_type, a.issued_at, a.expires_at,
	       a.additional_info, a.unique_key, r.id, r.expires_at
	FROM access_tokens a
	LEFT JOIN refresh_tokens r ON r.access_token_id = a.id`

func (r *accessTokensRepo) CreateAccessToken(ctx context.Context, t domain.AccessToken) error {
	info, err := marshalInfo(t.AdditionalInfo)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO access_tokens
			(id, client_id, username, scopes, grant_type, issued_at, expires_at, additional_info, unique_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		string(t.ClientID),
		mapStringNull(string(t.Username)),
		t.Scopes.String(),
		string(t.GrantType),
		toMillis(t.IssuedAt),
		toMillis(t.ExpiresAt),
		info,
		t.UniqueKey,
	)
	return mapError(err)
}

func (r *accessTokensRepo) GetAccessToken(ctx context.Context, id string) (domain.AccessToken, error) {
	return scanAccessToken(r.db.QueryRowContext(ctx, selectAccessToken+` WHERE a.id = ?`, id))
}

func (r *accessTokensRepo) GetAccessTokenByUniqueKey(ctx context.Context, key string) (domain.AccessToken, error) {
	return scanAccessToken(r.db.QueryRowContext(ctx, selectAccessToken+` WHERE a.unique_key = ?`, key))
}

func (r *accessTokensRepo) DeleteAccessToken(ctx context.Context, id string) error {
	return requireAffected(r.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE id = ?`, id))
}

func (r *accessTokensRepo) DeleteExpiredAccessTokens(ctx context.Context, now time.Time) (int64, error) {
	ms := toMillis(now)
	return affected(r.db.ExecContext(ctx, `
		DELETE FROM access_tokens
		WHERE expires_at <= ?
		  AND NOT EXISTS (
			SELECT 1 FROM refresh_tokens r
			WHERE r.access_token_id = access_tokens.id AND r.expires_at > ?
		  )`, ms, ms))
}

func scanAccessToken(row *sql.Row) (domain.AccessToken, error) {
	var (
		t                    domain.AccessToken
		clientID, scopes, gt string
		username, info       sql.NullString
		issuedAt, expiresAt  int64
		refreshID            sql.NullString
		refreshExpiresAt     sql.NullInt64
	)
	err := row.Scan(&t.ID, &clientID, &username, &scopes, &gt, &issuedAt, &expiresAt,
		&info, &t.UniqueKey, &refreshID, &refreshExpiresAt)
	if err != nil {
		return domain.AccessToken{}, mapError(err)
	}

	t.ClientID = domain.ClientID(clientID)
	t.Username = domain.Username(mapNullString(username))
	t.Scopes = domain.ParseScopeSet(scopes)
	t.GrantType = domain.GrantType(gt)
	t.IssuedAt = fromMillis(issuedAt)
	t.ExpiresAt = fromMillis(expiresAt)

	if info.Valid {
		if err := json.Unmarshal([]byte(info.String), &t.AdditionalInfo); err != nil {
			return domain.AccessToken{}, fmt.Errorf("decode additional_info: %w", err)
		}
	}

	if refreshID.Valid {
		t.RefreshToken = &domain.RefreshToken{
			ID:            refreshID.String,
			AccessTokenID: t.ID,
			ExpiresAt:     fromMillis(refreshExpiresAt.Int64),
		}
	}

	return t, nil
}

func marshalInfo(info map[string]string) (sql.NullString, error) {
	if len(info) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(info)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode additional_info: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
