package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
)

var (
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a write lost a race: a uniqueness
	// violation or a busy/locked database. The unit of work may be retried.
	ErrConflict = errors.New("store: conflict")

	// ErrAlreadyExists is a uniqueness violation. It matches ErrConflict.
	ErrAlreadyExists = fmt.Errorf("%w: already exists", ErrConflict)
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories so a Tx-scoped Store looks the same as the root one.
type Store interface {
	Clients() Clients
	Users() Users
	AccessTokens() AccessTokens
	RefreshTokens() RefreshTokens
	AuthorizationCodes() AuthorizationCodes
	Approvals() Approvals

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Nested transactions are not supported.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Clients interface {
	GetClient(ctx context.Context, id domain.ClientID) (domain.Client, error)
	ListClients(ctx context.Context) ([]domain.Client, error)

	// CreateClient returns ErrAlreadyExists when the id is taken.
	CreateClient(ctx context.Context, c domain.Client) error

	// UpsertClient creates the client or replaces every mutable field.
	UpsertClient(ctx context.Context, c domain.Client) error

	// DeleteClient cascades to the client's tokens, codes and approvals.
	DeleteClient(ctx context.Context, id domain.ClientID) error
}

type Users interface {
	GetUserByUsername(ctx context.Context, username domain.Username) (domain.User, error)

	// CreateUser returns ErrAlreadyExists when the username is taken.
	CreateUser(ctx context.Context, u domain.User) error
	UpdatePasswordHash(ctx context.Context, username domain.Username, hash string) error
	SetUserStatus(ctx context.Context, username domain.Username, disabled, locked bool) error
}

type AccessTokens interface {
	// CreateAccessToken stores the access token row only; its refresh token
	// is stored through RefreshTokens. A duplicate UniqueKey is ErrAlreadyExists.
	CreateAccessToken(ctx context.Context, t domain.AccessToken) error

	// GetAccessToken and GetAccessTokenByUniqueKey populate RefreshToken when
	// one is stored.
	GetAccessToken(ctx context.Context, id string) (domain.AccessToken, error)
	GetAccessTokenByUniqueKey(ctx context.Context, key string) (domain.AccessToken, error)

	// DeleteAccessToken also removes the owned refresh token.
	DeleteAccessToken(ctx context.Context, id string) error

	// DeleteExpiredAccessTokens keeps expired tokens whose refresh token is
	// still usable, since refreshing needs the original token.
	DeleteExpiredAccessTokens(ctx context.Context, now time.Time) (int64, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// ConsumeRefreshToken deletes and returns the token in one statement.
	ConsumeRefreshToken(ctx context.Context, id string) (domain.RefreshToken, error)
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type AuthorizationCodes interface {
	// CreateAuthorizationCode returns ErrAlreadyExists on a code hash collision.
	CreateAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error

	// ConsumeAuthorizationCode deletes and returns the code in one statement,
	// so at most one caller ever observes a given code.
	ConsumeAuthorizationCode(ctx context.Context, codeHash string) (domain.AuthorizationCode, error)
	DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error)
}

type Approvals interface {
	// ListApprovals returns the approvals of username for clientID that are
	// still valid at now.
	ListApprovals(ctx context.Context, username domain.Username, clientID domain.ClientID, now time.Time) ([]domain.Approval, error)

	// UpsertApproval creates the approval or extends its expiry.
	UpsertApproval(ctx context.Context, a domain.Approval) error
	DeleteApprovals(ctx context.Context, username domain.Username, clientID domain.ClientID) error
	DeleteExpiredApprovals(ctx context.Context, now time.Time) (int64, error)
}
