package domain

import (
	"slices"
	"time"
)

type Client struct {
	ID           ClientID
	Name         string
	SecretHash   string // argon2id; empty for public clients
	RedirectURIs []string
	GrantTypes   []GrantType
	Scopes       ScopeSet

	// Zero TTLs fall back to the server defaults.
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Client) IsPublic() bool {
	return c.SecretHash == ""
}

func (c Client) AllowsGrant(gt GrantType) bool {
	return slices.Contains(c.GrantTypes, gt)
}
