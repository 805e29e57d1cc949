package models

import "time"

// Account is the subset of the external account entity this subsystem reads
// and mutates. Lock fields are written only by the rate limiter (lock/unlock)
// and OTP recovery (forced unlock); accounts are never created or deleted here.
type Account struct {
	ID            string
	Email         string
	Username      string
	PasswordHash  string
	Locked        bool
	LockExpiresAt *time.Time
	LastLogin     *time.Time
	LastLoginIP   *string
	LastUserAgent *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LockExpired reports whether the account carries a lock whose expiry has
// already passed. Such accounts are treated as open; the stale fields are
// cleared lazily on the next attempt.
func (a *Account) LockExpired(now time.Time) bool {
	return a.Locked && a.LockExpiresAt != nil && !now.Before(*a.LockExpiresAt)
}

// IsLocked reports whether the account is locked with an unexpired expiry.
func (a *Account) IsLocked(now time.Time) bool {
	return a.Locked && a.LockExpiresAt != nil && now.Before(*a.LockExpiresAt)
}
