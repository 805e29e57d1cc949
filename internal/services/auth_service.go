package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mkarsten/gatehouse/internal/config"
	"github.com/mkarsten/gatehouse/internal/models"
	pkgauth "github.com/mkarsten/gatehouse/pkg/auth"
	pkglogger "github.com/mkarsten/gatehouse/pkg/logger"
)

// TimingGuard pads failure responses to a uniform duration.
type TimingGuard interface {
	WaitFrom(start time.Time)
}

// AuthService orchestrates a login request: lock check before credential
// verification, rate limiter on either outcome, exactly one attempt record
// per call, advisory anomaly checks, and token issuance on success.
type AuthService struct {
	accounts  AccountStore
	attempts  AttemptLog
	limiter   *RateLimitService
	anomaly   *AnomalyService
	verifier  pkgauth.Verifier
	issuer    TokenIssuer
	timing    TimingGuard
	audit     *pkglogger.AuditLogger
	logger    *slog.Logger
	cfg       config.SecurityConfig
}

// NewAuthService creates a new AuthService
func NewAuthService(
	accounts AccountStore,
	attempts AttemptLog,
	limiter *RateLimitService,
	anomaly *AnomalyService,
	verifier pkgauth.Verifier,
	issuer TokenIssuer,
	timing TimingGuard,
	audit *pkglogger.AuditLogger,
	logger *slog.Logger,
	cfg config.SecurityConfig,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		attempts: attempts,
		limiter:  limiter,
		anomaly:  anomaly,
		verifier: verifier,
		issuer:   issuer,
		timing:   timing,
		audit:    audit,
		logger:   logger,
		cfg:      cfg,
	}
}

// Login authenticates a credential submission. On success it returns a
// session grant with a possible origin advisory; on failure it returns one of
// the typed login errors. Identifier matching is case-sensitive against the
// stored value.
func (s *AuthService) Login(ctx context.Context, identifier, password, originIP, userAgent string) (*models.SessionGrant, error) {
	start := time.Now()

	account, err := s.accounts.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, s.failUnknownIdentifier(ctx, start, identifier, originIP, userAgent)
		}
		s.logger.Error("account lookup failed", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now()

	// Locked with an unexpired expiry: reject before any password
	// comparison so timing cannot leak whether the password was correct.
	if account.IsLocked(now) {
		s.recordAttempt(ctx, identifier, &account.ID, originIP, userAgent, models.OutcomeUnauthorized, models.ReasonAccountLocked)
		s.audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_rejected",
			AccountID:     account.ID,
			Identifier:    identifier,
			IPAddress:     originIP,
			FailureReason: models.ReasonAccountLocked,
		})
		return nil, &models.LockedError{Until: *account.LockExpiresAt}
	}

	// Expired lock: observed as OPEN, fields cleared lazily.
	if account.LockExpired(now) {
		if err := s.accounts.ClearLock(ctx, account.ID); err != nil {
			s.logger.Error("failed to clear expired lock",
				slog.String("account_id", account.ID),
				slog.Any("error", err))
		}
		account.Locked = false
		account.LockExpiresAt = nil
	}

	if !s.verifier.Verify(password, account.PasswordHash) {
		return nil, s.failBadPassword(ctx, start, account, identifier, originIP, userAgent)
	}

	return s.succeed(ctx, account, identifier, originIP, userAgent)
}

// failUnknownIdentifier mirrors the wrong-password path closely enough that
// the response cannot confirm account existence: same error shape, same
// timing, with the remaining-attempt count computed against the identifier.
func (s *AuthService) failUnknownIdentifier(ctx context.Context, start time.Time, identifier, originIP, userAgent string) error {
	outcome, limitErr := s.limiter.OnFailure(ctx, nil, identifier, originIP)

	s.recordAttempt(ctx, identifier, nil, originIP, userAgent, models.OutcomeFailed, models.ReasonUserNotFound)
	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		Identifier:    identifier,
		IPAddress:     originIP,
		FailureReason: models.ReasonUserNotFound,
	})
	s.anomaly.ScanOriginAsync(originIP)
	s.timing.WaitFrom(start)

	if limitErr != nil {
		return models.ErrInternalServer
	}
	if outcome.Locked {
		return &models.LockedError{Until: outcome.LockedUntil}
	}
	return &models.InvalidCredentialsError{RemainingAttempts: outcome.RemainingAttempts}
}

func (s *AuthService) failBadPassword(ctx context.Context, start time.Time, account *models.Account, identifier, originIP, userAgent string) error {
	outcome, limitErr := s.limiter.OnFailure(ctx, account, identifier, originIP)

	s.recordAttempt(ctx, identifier, &account.ID, originIP, userAgent, models.OutcomeFailed, models.ReasonInvalidPassword)
	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		AccountID:     account.ID,
		Identifier:    identifier,
		IPAddress:     originIP,
		FailureReason: models.ReasonInvalidPassword,
	})
	s.anomaly.ScanOriginAsync(originIP)
	s.timing.WaitFrom(start)

	if limitErr != nil {
		return models.ErrInternalServer
	}
	if outcome.Locked {
		return &models.LockedError{Until: outcome.LockedUntil}
	}
	return &models.InvalidCredentialsError{RemainingAttempts: outcome.RemainingAttempts}
}

func (s *AuthService) succeed(ctx context.Context, account *models.Account, identifier, originIP, userAgent string) (*models.SessionGrant, error) {
	s.limiter.OnSuccess(ctx, account, identifier)

	// The origin advisory is best-effort under a short budget; compare
	// against the previous success before this attempt is recorded.
	var advisory *models.OriginChange
	originCtx, cancel := context.WithTimeout(ctx, s.cfg.OriginCheckBudget)
	change, err := s.anomaly.CheckUnusualOrigin(originCtx, account.ID, originIP, userAgent)
	cancel()
	if err != nil {
		s.logger.Warn("origin check skipped",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
	} else {
		advisory = change
	}

	now := time.Now()
	s.recordAttempt(ctx, identifier, &account.ID, originIP, userAgent, models.OutcomeSuccess, "")
	if err := s.accounts.RecordLogin(ctx, account.ID, now, originIP, userAgent); err != nil {
		s.logger.Error("failed to stamp last login",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
	}

	s.anomaly.ScanOriginAsync(originIP)

	accessToken, refreshToken, err := s.issuer.Issue(account.ID, account.Email)
	if err != nil {
		s.logger.Error("token issuance failed",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:  "login_success",
		AccountID:  account.ID,
		Identifier: identifier,
		IPAddress:  originIP,
		Success:    true,
	})

	return &models.SessionGrant{
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		AccountID:      account.ID,
		Email:          account.Email,
		Username:       account.Username,
		OriginAdvisory: advisory,
	}, nil
}

// recordAttempt writes the single attempt record for this call. Best-effort:
// a store failure is logged and swallowed so logging never aborts
// authentication.
func (s *AuthService) recordAttempt(ctx context.Context, identifier string, accountID *string, originIP, userAgent, outcome, reason string) {
	rec := &models.AttemptRecord{
		Identifier:  identifier,
		AccountID:   accountID,
		OriginIP:    originIP,
		UserAgent:   userAgent,
		AttemptTime: time.Now(),
		Outcome:     outcome,
	}
	if reason != "" {
		rec.Reason = &reason
	}

	if err := s.attempts.Record(ctx, rec); err != nil {
		s.logger.Error("failed to record login attempt",
			slog.String("identifier", pkglogger.SanitizedIdentifier(identifier)),
			slog.Any("error", err))
	}
}
