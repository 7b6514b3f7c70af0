package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store"
	"github.com/aussiebroadwan/oauthd/pkg/cryptox"
	"github.com/aussiebroadwan/oauthd/pkg/idx"
)

// MinPasswordLength is enforced when users are created from the CLI.
const MinPasswordLength = 8

var ErrInvalidUser = errors.New("invalid user")

// AddUser creates a user with an argon2id password hash.
func AddUser(ctx context.Context, st store.Store, username, password string, now time.Time) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, fmt.Errorf("%w: username is required", ErrInvalidUser)
	}
	if len(password) < MinPasswordLength {
		return domain.User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidUser, MinPasswordLength)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     domain.Username(username),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := st.Users().CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// SetPassword replaces a user's password hash. Unknown users are
// store.ErrNotFound.
func SetPassword(ctx context.Context, st store.Store, username, password string) error {
	username = strings.TrimSpace(username)
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidUser, MinPasswordLength)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return st.Users().UpdatePasswordHash(ctx, domain.Username(username), hash)
}
