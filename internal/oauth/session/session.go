// Package session keeps the in-flight state of an authorization request
// between the prompt and the user's approval. State is keyed by the session id
// carried in the user's session token.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
)

// DefaultTTL bounds how long a user may take to answer a consent prompt.
const DefaultTTL = 10 * time.Minute

var ErrNotFound = errors.New("session: authorization request not found")

// State is everything the approval step needs from the authorization step.
type State struct {
	Request domain.AuthorizationRequest `json:"request"`

	// Params are the raw authorization parameters as received.
	Params map[string]string `json:"params"`

	NeedsApproval domain.ScopeSet `json:"needs_approval"`
	AutoApproved  domain.ScopeSet `json:"auto_approved"`

	// RedirectSupplied records whether the client sent redirect_uri itself,
	// as opposed to it being defaulted from registration.
	RedirectSupplied bool `json:"redirect_supplied"`
}

// Store holds at most one State per session id; a later Save replaces an
// earlier one.
type Store interface {
	Save(ctx context.Context, sid string, st State, ttl time.Duration) error

	// Load returns ErrNotFound when nothing is stored or the entry expired.
	Load(ctx context.Context, sid string) (State, error)

	// Clear is idempotent.
	Clear(ctx context.Context, sid string) error
}
