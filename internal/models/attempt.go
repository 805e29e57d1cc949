package models

import "time"

// Attempt outcomes. Records are immutable once written except for the reset
// relabel: after a successful login the window's failed records become
// OutcomeReset so the audit trail survives but the streak restarts.
const (
	OutcomeSuccess      = "success"
	OutcomeFailed       = "failed"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
	OutcomeReset        = "reset"
)

// Failure reasons recorded alongside failed attempts.
const (
	ReasonUserNotFound    = "user_not_found"
	ReasonInvalidPassword = "invalid_password"
	ReasonAccountLocked   = "account_locked"
)

// AttemptRecord is a single authentication attempt. AccountID is nil when the
// identifier did not resolve to a stored account.
type AttemptRecord struct {
	ID          string
	Identifier  string
	AccountID   *string
	OriginIP    string
	UserAgent   string
	AttemptTime time.Time
	Outcome     string
	Reason      *string
}

// AttemptFilter selects attempts for counting and relabeling. AccountID and
// Identifier match with logical OR so alternating between email and username
// cannot dodge the counter; OriginIP is consulted only when both are empty.
type AttemptFilter struct {
	AccountID  string
	Identifier string
	OriginIP   string
}

// IPOnly reports whether the filter falls back to raw origin-IP counting.
func (f AttemptFilter) IPOnly() bool {
	return f.AccountID == "" && f.Identifier == "" && f.OriginIP != ""
}
