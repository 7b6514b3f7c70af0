package domain

import "time"

// DefaultApprovalTTL is how long a remembered scope approval stays valid.
const DefaultApprovalTTL = 30 * 24 * time.Hour

// Approval records that a user approved one scope for one client.
type Approval struct {
	Username  Username
	ClientID  ClientID
	Scope     Scope
	ExpiresAt time.Time
	CreatedAt time.Time
}
