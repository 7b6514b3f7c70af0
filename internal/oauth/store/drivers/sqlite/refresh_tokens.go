package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, access_token_id, expires_at) VALUES (?, ?, ?)`,
		t.ID, t.AccessTokenID, toMillis(t.ExpiresAt))
	return mapError(err)
}

func (r *refreshTokensRepo) ConsumeRefreshToken(ctx context.Context, id string) (domain.RefreshToken, error) {
	var (
		t         domain.RefreshToken
		expiresAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`DELETE FROM refresh_tokens WHERE id = ? RETURNING id, access_token_id, expires_at`, id).
		Scan(&t.ID, &t.AccessTokenID, &expiresAt)
	if err != nil {
		return domain.RefreshToken{}, mapError(err)
	}
	t.ExpiresAt = fromMillis(expiresAt)
	return t, nil
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, toMillis(now)))
}
