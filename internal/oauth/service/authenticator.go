package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store"
	"github.com/aussiebroadwan/oauthd/pkg/cryptox"
)

// CredentialAuthenticator checks a resource owner's password. Any failure to
// authenticate is reported as ErrBadCredentials.
type CredentialAuthenticator interface {
	Authenticate(ctx context.Context, username domain.Username, password string) (domain.Username, error)
}

// UserCredentialAuthenticator authenticates against the users table.
type UserCredentialAuthenticator struct {
	Store store.Store
}

func (a *UserCredentialAuthenticator) Authenticate(
	ctx context.Context,
	username domain.Username,
	password string,
) (domain.Username, error) {
	user, err := a.Store.Users().GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrBadCredentials
	}
	if err != nil {
		return "", err
	}

	if !user.CanAuthenticate() {
		return "", ErrBadCredentials
	}
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return "", ErrBadCredentials
	}
	return user.Username, nil
}

// ClientAuthenticator authenticates OAuth2 clients at the token endpoint.
type ClientAuthenticator struct {
	Clients ClientDirectory
}

// Authenticate loads the client and checks its secret. Public clients must
// not send a secret; confidential clients must send the right one.
func (a *ClientAuthenticator) Authenticate(ctx context.Context, id domain.ClientID, secret string) (domain.Client, error) {
	if id == "" {
		return domain.Client{}, fmt.Errorf("%w: client_id is required", ErrInvalidClient)
	}

	client, err := a.Clients.LoadClient(ctx, id)
	if err != nil {
		return domain.Client{}, err
	}

	if client.IsPublic() {
		if secret != "" {
			return domain.Client{}, fmt.Errorf("%w: public client sent a secret", ErrInvalidClient)
		}
		return client, nil
	}

	if secret == "" || cryptox.VerifyPassword(secret, client.SecretHash) != nil {
		return domain.Client{}, fmt.Errorf("%w: client authentication failed", ErrInvalidClient)
	}
	return client, nil
}
