package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/mkarsten/gatehouse/internal/config"
	"github.com/mkarsten/gatehouse/internal/models"
	pkglogger "github.com/mkarsten/gatehouse/pkg/logger"
)

// FailureOutcome is the rate limiter's decision after a failed credential
// check: either the account just transitioned to LOCKED, or it stays OPEN
// with a remaining-attempt budget.
type FailureOutcome struct {
	Locked            bool
	LockedUntil       time.Time
	RemainingAttempts int
}

// RateLimitService drives the OPEN -> LOCKED -> OPEN transitions from
// windowed failure counts. Counting is a single store query per decision;
// the count-then-decide-then-record sequence is not globally atomic across
// concurrent requests; the lock write itself is a single atomic update at
// the storage layer.
type RateLimitService struct {
	attempts  AttemptLog
	accounts  AccountStore
	alerts    AlertStore
	publisher EventPublisher
	audit     *pkglogger.AuditLogger
	logger    *slog.Logger
	cfg       config.SecurityConfig
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(
	attempts AttemptLog,
	accounts AccountStore,
	alerts AlertStore,
	publisher EventPublisher,
	audit *pkglogger.AuditLogger,
	logger *slog.Logger,
	cfg config.SecurityConfig,
) *RateLimitService {
	return &RateLimitService{
		attempts:  attempts,
		accounts:  accounts,
		alerts:    alerts,
		publisher: publisher,
		audit:     audit,
		logger:    logger,
		cfg:       cfg,
	}
}

// OnFailure applies the failure transition rule. The current failure counts
// toward the threshold, so the caller invokes this before recording the
// attempt. account may be nil when the identifier resolved to nothing; the
// identifier is then rate-limited on its own, so probing nonexistent
// usernames locks the identifier out the same way a real account would be.
//
// A counting error fails closed: the caller must surface a generic server
// error, never authenticate around it.
func (s *RateLimitService) OnFailure(ctx context.Context, account *models.Account, identifier, originIP string) (*FailureOutcome, error) {
	filter := buildFilter(account, identifier, originIP)
	windowStart := time.Now().Add(-s.cfg.FailureWindow)

	count, err := s.attempts.CountFailures(ctx, filter, windowStart)
	if err != nil {
		s.logger.Error("failure count unavailable", slog.Any("error", err))
		return nil, models.ErrPersistence
	}

	total := count + 1
	if total < s.cfg.MaxFailedAttempts {
		return &FailureOutcome{RemainingAttempts: s.cfg.MaxFailedAttempts - total}, nil
	}

	until := time.Now().Add(s.cfg.LockDuration)

	if account != nil {
		if err := s.accounts.Lock(ctx, account.ID, until); err != nil {
			s.logger.Error("failed to persist account lock",
				slog.String("account_id", account.ID),
				slog.Any("error", err))
			return nil, models.ErrPersistence
		}
		s.audit.LogLockout(account.ID, identifier, originIP, until)
	} else {
		// No account row to lock; the windowed count itself keeps rejecting
		// this identifier until the window slides past.
		s.audit.LogLockout("", identifier, originIP, until)
	}

	s.recordLockAlert(ctx, account, identifier, originIP, total, until)

	return &FailureOutcome{Locked: true, LockedUntil: until}, nil
}

// OnSuccess applies the success transition: window failures are relabeled as
// reset so a later streak starts clean, and stale lock fields are cleared.
// Both writes are best-effort; a failure here never fails the login.
func (s *RateLimitService) OnSuccess(ctx context.Context, account *models.Account, identifier string) {
	filter := buildFilter(account, identifier, "")
	windowStart := time.Now().Add(-s.cfg.FailureWindow)

	if relabeled, err := s.attempts.MarkReset(ctx, filter, windowStart); err != nil {
		s.logger.Error("failed to reset failure streak",
			slog.String("identifier", pkglogger.SanitizedIdentifier(identifier)),
			slog.Any("error", err))
	} else if relabeled > 0 {
		s.logger.Info("failure streak reset",
			slog.String("account_id", account.ID),
			slog.Int64("relabeled", relabeled))
	}

	if account.LockExpired(time.Now()) {
		if err := s.accounts.ClearLock(ctx, account.ID); err != nil {
			s.logger.Error("failed to clear stale lock fields",
				slog.String("account_id", account.ID),
				slog.Any("error", err))
		}
	}
}

func (s *RateLimitService) recordLockAlert(ctx context.Context, account *models.Account, identifier, originIP string, failures int, until time.Time) {
	var accountID *string
	eventAccount := ""
	if account != nil {
		accountID = &account.ID
		eventAccount = account.ID
	}

	alert := &models.SecurityAlert{
		AccountID: accountID,
		AlertType: models.AlertAccountLocked,
		Details: models.AlertDetails{
			"identifier":   identifier,
			"origin_ip":    originIP,
			"failures":     failures,
			"locked_until": until.UTC().Format(time.RFC3339),
		},
	}

	if _, err := s.alerts.Create(ctx, alert); err != nil {
		s.logger.Error("failed to record lockout alert", slog.Any("error", err))
	}

	if err := s.publisher.Publish(ctx, SecurityEvent{
		Type:      models.AlertAccountLocked,
		AccountID: eventAccount,
		Details:   map[string]any{"locked_until": until.UTC().Format(time.RFC3339)},
		Timestamp: time.Now().UTC(),
	}); err != nil {
		s.logger.Error("failed to publish lockout event", slog.Any("error", err))
	}
}

// buildFilter assembles the counting filter: account id and identifier match
// with OR, and the raw origin IP is consulted only when neither is known.
func buildFilter(account *models.Account, identifier, originIP string) models.AttemptFilter {
	filter := models.AttemptFilter{Identifier: identifier}
	if account != nil {
		filter.AccountID = account.ID
	}
	if filter.AccountID == "" && filter.Identifier == "" {
		filter.OriginIP = originIP
	}
	return filter
}
