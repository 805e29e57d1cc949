package services

import (
	"context"
	"time"

	"github.com/mkarsten/gatehouse/internal/models"
)

// AttemptLog is the append-only attempt store. Record must be treated as
// best-effort by callers: a logging failure never blocks authentication.
type AttemptLog interface {
	Record(ctx context.Context, attempt *models.AttemptRecord) error
	CountFailures(ctx context.Context, filter models.AttemptFilter, since time.Time) (int, error)
	MarkReset(ctx context.Context, filter models.AttemptFilter, since time.Time) (int64, error)
	LastSuccess(ctx context.Context, accountID string) (*models.AttemptRecord, error)
	RecentTimesByIP(ctx context.Context, originIP string, since time.Time) ([]time.Time, error)
	CountDistinctIdentifiersByIP(ctx context.Context, originIP string, since time.Time) (int, error)
}

// AccountStore is the external account-store collaborator. Lock and ClearLock
// must be atomic single writes at the storage layer; this subsystem never
// read-modify-writes lock state in application memory.
type AccountStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (*models.Account, error)
	Lock(ctx context.Context, accountID string, until time.Time) error
	ClearLock(ctx context.Context, accountID string) error
	RecordLogin(ctx context.Context, accountID string, at time.Time, originIP, userAgent string) error
}

// AlertStore is the durable security-alert store.
type AlertStore interface {
	Create(ctx context.Context, alert *models.SecurityAlert) (*models.SecurityAlert, error)
}

// OTPRepository stores single-use recovery codes. Claim must be atomic:
// exactly one caller may observe a stored record.
type OTPRepository interface {
	Put(ctx context.Context, record *models.OTPRecord, ttl time.Duration) error
	Get(ctx context.Context, address string) (*models.OTPRecord, error)
	Claim(ctx context.Context, address string) (*models.OTPRecord, error)
	Delete(ctx context.Context, address string) error
}

// Notifier delivers out-of-band messages (recovery codes) to an address.
type Notifier interface {
	Send(ctx context.Context, address, subject, body string) error
}

// TokenIssuer mints the session token pair once credentials are verified.
type TokenIssuer interface {
	Issue(accountID, email string) (accessToken, refreshToken string, err error)
}
