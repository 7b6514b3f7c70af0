package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
)

type usersRepo struct {
	db dbtx
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username domain.Username) (domain.User, error) {
	var (
		u                    domain.User
		name                 string
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, disabled, locked, created_at, updated_at
		FROM users WHERE username = ?`, string(username)).
		Scan(&u.ID, &name, &u.PasswordHash, &u.Disabled, &u.Locked, &createdAt, &updatedAt)
	if err != nil {
		return domain.User{}, mapError(err)
	}

	u.Username = domain.Username(name)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, disabled, locked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, string(u.Username), u.PasswordHash, u.Disabled, u.Locked,
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt))
	return mapError(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, username domain.Username, hash string) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE username = ?`,
		hash, toMillis(time.Now()), string(username)))
}

func (r *usersRepo) SetUserStatus(ctx context.Context, username domain.Username, disabled, locked bool) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE users SET disabled = ?, locked = ?, updated_at = ? WHERE username = ?`,
		disabled, locked, toMillis(time.Now()), string(username)))
}
