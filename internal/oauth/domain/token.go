package domain

import "time"

// TokenTypeBearer is the only token type the server issues.
const TokenTypeBearer = "Bearer"

// AccessToken is an issued bearer token. ID is the opaque value handed to the
// client. Username is empty for client_credentials tokens.
type AccessToken struct {
	ID             string
	ClientID       ClientID
	Username       Username
	Scopes         ScopeSet
	GrantType      GrantType
	IssuedAt       time.Time
	ExpiresAt      time.Time
	AdditionalInfo map[string]string
	RefreshToken   *RefreshToken

	// UniqueKey identifies tokens that are interchangeable for reuse. Stored
	// tokens never share a key.
	UniqueKey string
}

func (t AccessToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// ExpiresIn is the remaining lifetime in whole seconds, never negative.
func (t AccessToken) ExpiresIn(now time.Time) int64 {
	secs := int64(t.ExpiresAt.Sub(now) / time.Second)
	return max(secs, 0)
}

// RefreshToken belongs to exactly one access token and is single-use.
type RefreshToken struct {
	ID            string
	AccessTokenID string
	ExpiresAt     time.Time
}

func (t RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
