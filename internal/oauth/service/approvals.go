package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store"
	"github.com/aussiebroadwan/oauthd/pkg/clockx"
)

// ApprovalAuthority remembers which scopes a user approved for a client.
type ApprovalAuthority interface {
	// AutoApproved returns the scopes that need no prompt.
	AutoApproved(ctx context.Context, username domain.Username, clientID domain.ClientID) (domain.ScopeSet, error)
	GrantApprovals(ctx context.Context, username domain.Username, clientID domain.ClientID, scopes domain.ScopeSet) error
	RevokeApprovals(ctx context.Context, username domain.Username, clientID domain.ClientID) error
}

// StoreApprovalAuthority persists approvals with an expiry.
type StoreApprovalAuthority struct {
	Store store.Store
	Clock clockx.Clock
	TTL   time.Duration // <= 0: domain.DefaultApprovalTTL
}

func (a *StoreApprovalAuthority) AutoApproved(
	ctx context.Context,
	username domain.Username,
	clientID domain.ClientID,
) (domain.ScopeSet, error) {
	approvals, err := a.Store.Approvals().ListApprovals(ctx, username, clientID, a.Clock.Now())
	if err != nil {
		return nil, err
	}

	scopes := make([]domain.Scope, len(approvals))
	for i, ap := range approvals {
		scopes[i] = ap.Scope
	}
	return domain.NewScopeSet(scopes...), nil
}

func (a *StoreApprovalAuthority) GrantApprovals(
	ctx context.Context,
	username domain.Username,
	clientID domain.ClientID,
	scopes domain.ScopeSet,
) error {
	if scopes.IsEmpty() {
		return nil
	}

	ttl := a.TTL
	if ttl <= 0 {
		ttl = domain.DefaultApprovalTTL
	}
	now := a.Clock.Now()

	return a.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, scope := range scopes {
			if err := tx.Approvals().UpsertApproval(ctx, domain.Approval{
				Username:  username,
				ClientID:  clientID,
				Scope:     scope,
				ExpiresAt: now.Add(ttl),
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (a *StoreApprovalAuthority) RevokeApprovals(ctx context.Context, username domain.Username, clientID domain.ClientID) error {
	return a.Store.Approvals().DeleteApprovals(ctx, username, clientID)
}
