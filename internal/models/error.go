package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Persistence failures on the lock check fail closed: the caller must
	// surface a generic server error, never a silent grant.
	ErrPersistence = errors.New("persistence unavailable")

	// OTP recovery errors
	ErrOTPInvalid       = errors.New("invalid recovery code")
	ErrOTPExpired       = errors.New("recovery code expired")
	ErrAccountNotLocked = errors.New("account is not locked")

	// Notifier failures are distinct from verification failures so clients
	// can offer "resend" instead of "retry password".
	ErrNotifierFailure = errors.New("notification delivery failed")
)

// LockedError indicates the account is temporarily locked. It carries the
// expiry so handlers can report when the caller may retry.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format(time.RFC3339))
}

// RemainingSeconds returns the number of whole seconds until the lock
// expires, never negative.
func (e *LockedError) RemainingSeconds() int {
	remaining := time.Until(e.Until)
	if remaining < 0 {
		return 0
	}
	return int(remaining.Seconds())
}

// InvalidCredentialsError indicates a failed credential check. The remaining
// attempt count is computed against the same filter the rate limiter counts
// with, so it is accurate whether or not the account exists.
type InvalidCredentialsError struct {
	RemainingAttempts int
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials (%d attempts remaining)", e.RemainingAttempts)
}

// AsLockedError unwraps err into a *LockedError if it is one.
func AsLockedError(err error) (*LockedError, bool) {
	var le *LockedError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// AsInvalidCredentialsError unwraps err into an *InvalidCredentialsError if it is one.
func AsInvalidCredentialsError(err error) (*InvalidCredentialsError, bool) {
	var ice *InvalidCredentialsError
	if errors.As(err, &ice) {
		return ice, true
	}
	return nil, false
}
