package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mkarsten/gatehouse/internal/config"
	"github.com/mkarsten/gatehouse/internal/models"
	pkglogger "github.com/mkarsten/gatehouse/pkg/logger"
)

func testSecurityConfig() config.SecurityConfig {
	return config.SecurityConfig{
		MaxFailedAttempts:      5,
		FailureWindow:          15 * time.Minute,
		LockDuration:           15 * time.Minute,
		OTPCodeLength:          6,
		OTPExpiry:              10 * time.Minute,
		AutomationWindow:       60 * time.Second,
		AutomationMinAttempts:  3,
		AutomationMaxMeanGap:   2 * time.Second,
		StuffingWindow:         4 * time.Hour,
		StuffingMinIdentifiers: 5,
		OriginCheckBudget:      500 * time.Millisecond,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRateLimiter(attempts *MockAttemptLog, accounts *MockAccountStore, alerts *MockAlertStore, publisher EventPublisher) *RateLimitService {
	logger := testLogger()
	return NewRateLimitService(attempts, accounts, alerts, publisher, pkglogger.NewAuditLogger(logger), logger, testSecurityConfig())
}

func testAccount() *models.Account {
	return &models.Account{
		ID:           "acct-1",
		Email:        "alice@x.com",
		Username:     "alice",
		PasswordHash: "$2a$14$fakefakefakefakefakefake",
	}
}

func TestRateLimitOnFailure_RemainsOpenBelowThreshold(t *testing.T) {
	attempts := &MockAttemptLog{
		CountFailuresFunc: func(ctx context.Context, filter models.AttemptFilter, since time.Time) (int, error) {
			return 2, nil
		},
	}
	accounts := &MockAccountStore{}
	alerts := &MockAlertStore{}
	svc := newTestRateLimiter(attempts, accounts, alerts, &CapturingPublisher{})

	outcome, err := svc.OnFailure(context.Background(), testAccount(), "alice@x.com", "192.0.2.1")

	assert.NoError(t, err)
	assert.False(t, outcome.Locked)
	assert.Equal(t, 2, outcome.RemainingAttempts) // 5 - (2+1)
	assert.Empty(t, accounts.LockedID)
	assert.Empty(t, alerts.Created)
}

func TestRateLimitOnFailure_LocksOnThreshold(t *testing.T) {
	attempts := &MockAttemptLog{
		CountFailuresFunc: func(ctx context.Context, filter models.AttemptFilter, since time.Time) (int, error) {
			return 4, nil // 5th failure in flight
		},
	}
	accounts := &MockAccountStore{}
	alerts := &MockAlertStore{}
	publisher := &CapturingPublisher{}
	svc := newTestRateLimiter(attempts, accounts, alerts, publisher)

	before := time.Now()
	outcome, err := svc.OnFailure(context.Background(), testAccount(), "alice@x.com", "192.0.2.1")

	assert.NoError(t, err)
	assert.True(t, outcome.Locked)
	assert.Equal(t, "acct-1", accounts.LockedID)

	// lockExpiresAt is lock duration from the 5th failure
	expected := before.Add(15 * time.Minute)
	assert.WithinDuration(t, expected, outcome.LockedUntil, 2*time.Second)
	assert.WithinDuration(t, expected, accounts.LockedUntil, 2*time.Second)

	locked := alerts.AlertsOfType(models.AlertAccountLocked)
	assert.Len(t, locked, 1)
	assert.Equal(t, "acct-1", *locked[0].AccountID)

	assert.Len(t, publisher.Events, 1)
	assert.Equal(t, models.AlertAccountLocked, publisher.Events[0].Type)
}

func TestRateLimitOnFailure_CountsUseAccountOrIdentifier(t *testing.T) {
	var captured models.AttemptFilter
	attempts := &MockAttemptLog{
		CountFailuresFunc: func(ctx context.Context, filter models.AttemptFilter, since time.Time) (int, error) {
			captured = filter
			return 0, nil
		},
	}
	svc := newTestRateLimiter(attempts, &MockAccountStore{}, &MockAlertStore{}, &CapturingPublisher{})

	_, err := svc.OnFailure(context.Background(), testAccount(), "alice", "192.0.2.1")

	assert.NoError(t, err)
	assert.Equal(t, "acct-1", captured.AccountID)
	assert.Equal(t, "alice", captured.Identifier)
	assert.Empty(t, captured.OriginIP)
}

func TestRateLimitOnFailure_UnknownIdentifierStillLimited(t *testing.T) {
	attempts := &MockAttemptLog{
		CountFailuresFunc: func(ctx context.Context, filter models.AttemptFilter, since time.Time) (int, error) {
			return 4, nil
		},
	}
	accounts := &MockAccountStore{}
	alerts := &MockAlertStore{}
	svc := newTestRateLimiter(attempts, accounts, alerts, &CapturingPublisher{})

	outcome, err := svc.OnFailure(context.Background(), nil, "ghost@x.com", "192.0.2.1")

	assert.NoError(t, err)
	assert.True(t, outcome.Locked)
	// No account row to lock, but the alert is still recorded
	assert.Empty(t, accounts.LockedID)
	locked := alerts.AlertsOfType(models.AlertAccountLocked)
	assert.Len(t, locked, 1)
	assert.Nil(t, locked[0].AccountID)
}

func TestRateLimitOnFailure_IPOnlyWhenNothingElseKnown(t *testing.T) {
	var captured models.AttemptFilter
	attempts := &MockAttemptLog{
		CountFailuresFunc: func(ctx context.Context, filter models.AttemptFilter, since time.Time) (int, error) {
			captured = filter
			return 0, nil
		},
	}
	svc := newTestRateLimiter(attempts, &MockAccountStore{}, &MockAlertStore{}, &CapturingPublisher{})

	_, err := svc.OnFailure(context.Background(), nil, "", "192.0.2.1")

	assert.NoError(t, err)
	assert.True(t, captured.IPOnly())
	assert.Equal(t, "192.0.2.1", captured.OriginIP)
}

func TestRateLimitOnFailure_FailsClosedOnCountError(t *testing.T) {
	attempts := &MockAttemptLog{
		CountFailuresFunc: func(ctx context.Context, filter models.AttemptFilter, since time.Time) (int, error) {
			return 0, errors.New("connection refused")
		},
	}
	svc := newTestRateLimiter(attempts, &MockAccountStore{}, &MockAlertStore{}, &CapturingPublisher{})

	outcome, err := svc.OnFailure(context.Background(), testAccount(), "alice@x.com", "192.0.2.1")

	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, models.ErrPersistence)
}

func TestRateLimitOnFailure_FailsClosedOnLockWriteError(t *testing.T) {
	attempts := &MockAttemptLog{
		CountFailuresFunc: func(ctx context.Context, filter models.AttemptFilter, since time.Time) (int, error) {
			return 4, nil
		},
	}
	accounts := &MockAccountStore{
		LockFunc: func(ctx context.Context, accountID string, until time.Time) error {
			return errors.New("connection refused")
		},
	}
	svc := newTestRateLimiter(attempts, accounts, &MockAlertStore{}, &CapturingPublisher{})

	outcome, err := svc.OnFailure(context.Background(), testAccount(), "alice@x.com", "192.0.2.1")

	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, models.ErrPersistence)
}

func TestRateLimitOnSuccess_RelabelsWindowFailures(t *testing.T) {
	var captured models.AttemptFilter
	attempts := &MockAttemptLog{
		MarkResetFunc: func(ctx context.Context, filter models.AttemptFilter, since time.Time) (int64, error) {
			captured = filter
			return 3, nil
		},
	}
	accounts := &MockAccountStore{}
	svc := newTestRateLimiter(attempts, accounts, &MockAlertStore{}, &CapturingPublisher{})

	svc.OnSuccess(context.Background(), testAccount(), "alice@x.com")

	assert.Equal(t, "acct-1", captured.AccountID)
	assert.Equal(t, "alice@x.com", captured.Identifier)
	assert.Empty(t, accounts.ClearedID)
}

func TestRateLimitOnSuccess_ClearsStaleLock(t *testing.T) {
	accounts := &MockAccountStore{}
	svc := newTestRateLimiter(&MockAttemptLog{}, accounts, &MockAlertStore{}, &CapturingPublisher{})

	stale := testAccount()
	expired := time.Now().Add(-1 * time.Minute)
	stale.Locked = true
	stale.LockExpiresAt = &expired

	svc.OnSuccess(context.Background(), stale, "alice@x.com")

	assert.Equal(t, "acct-1", accounts.ClearedID)
}

func TestRateLimitOnSuccess_SwallowsResetError(t *testing.T) {
	attempts := &MockAttemptLog{
		MarkResetFunc: func(ctx context.Context, filter models.AttemptFilter, since time.Time) (int64, error) {
			return 0, errors.New("connection refused")
		},
	}
	svc := newTestRateLimiter(attempts, &MockAccountStore{}, &MockAlertStore{}, &CapturingPublisher{})

	// Must not panic or propagate; the login continues regardless
	svc.OnSuccess(context.Background(), testAccount(), "alice@x.com")
}
