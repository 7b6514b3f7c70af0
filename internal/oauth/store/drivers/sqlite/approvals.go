package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
)

type approvalsRepo struct {
	db dbtx
}

func (r *approvalsRepo) ListApprovals(
	ctx context.Context,
	username domain.Username,
	clientID domain.ClientID,
	now time.Time,
) ([]domain.Approval, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT scope, expires_at, created_at FROM approvals
		WHERE username = ? AND client_id = ? AND expires_at > ?
		ORDER BY scope`, string(username), string(clientID), toMillis(now))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []domain.Approval
	for rows.Next() {
		var (
			scope                string
			expiresAt, createdAt int64
		)
		if err := rows.Scan(&scope, &expiresAt, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, domain.Approval{
			Username:  username,
			ClientID:  clientID,
			Scope:     domain.Scope(scope),
			ExpiresAt: fromMillis(expiresAt),
			CreatedAt: fromMillis(createdAt),
		})
	}
	return out, rows.Err()
}

func (r *approvalsRepo) UpsertApproval(ctx context.Context, a domain.Approval) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO approvals (username, client_id, scope, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (username, client_id, scope) DO UPDATE SET expires_at = excluded.expires_at`,
		string(a.Username), string(a.ClientID), string(a.Scope), toMillis(a.ExpiresAt), toMillis(a.CreatedAt))
	return mapError(err)
}

func (r *approvalsRepo) DeleteApprovals(ctx context.Context, username domain.Username, clientID domain.ClientID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM approvals WHERE username = ? AND client_id = ?`, string(username), string(clientID))
	return mapError(err)
}

func (r *approvalsRepo) DeleteExpiredApprovals(ctx context.Context, now time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx, `DELETE FROM approvals WHERE expires_at <= ?`, toMillis(now)))
}
