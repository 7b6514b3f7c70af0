package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
)

type authorizationCodesRepo struct {
	db dbtx
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO authorization_codes
			(code_hash, client_id, username, redirect_uri, scopes,
			 code_challenge, code_challenge_method, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CodeHash,
		string(c.ClientID),
		mapStringNull(string(c.Username)),
		mapStringNull(c.RedirectURI),
		c.Scopes.String(),
		mapStringNull(c.CodeChallenge),
		mapStringNull(string(c.CodeChallengeMethod)),
		toMillis(c.ExpiresAt),
		toMillis(c.CreatedAt),
	)
	return mapError(err)
}

func (r *authorizationCodesRepo) ConsumeAuthorizationCode(ctx context.Context, codeHash string) (domain.AuthorizationCode, error) {
	var (
		c                                        domain.AuthorizationCode
		clientID, scopes                         string
		username, redirectURI, challenge, method sql.NullString
		expiresAt, createdAt                     int64
	)
	err := r.db.QueryRowContext(ctx, `
		DELETE FROM authorization_codes WHERE code_hash = ?
		RETURNING code_hash, client_id, username, redirect_uri, scopes,
		          code_challenge, code_challenge_method, expires_at, created_at`, codeHash).
		Scan(&c.CodeHash, &clientID, &username, &redirectURI, &scopes,
			&challenge, &method, &expiresAt, &createdAt)
	if err != nil {
		return domain.AuthorizationCode{}, mapError(err)
	}

	c.ClientID = domain.ClientID(clientID)
	c.Username = domain.Username(mapNullString(username))
	c.RedirectURI = mapNullString(redirectURI)
	c.Scopes = domain.ParseScopeSet(scopes)
	c.CodeChallenge = mapNullString(challenge)
	c.CodeChallengeMethod = domain.PKCEMethod(mapNullString(method))
	c.ExpiresAt = fromMillis(expiresAt)
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx, `DELETE FROM authorization_codes WHERE expires_at <= ?`, toMillis(now)))
}
