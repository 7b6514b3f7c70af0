package domain

import "time"

type User struct {
	ID           string
	Username     Username
	PasswordHash string
	Disabled     bool
	Locked       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanAuthenticate is false for disabled or locked accounts.
func (u User) CanAuthenticate() bool {
	return !u.Disabled && !u.Locked
}
