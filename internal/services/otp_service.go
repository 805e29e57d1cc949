package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/mkarsten/gatehouse/internal/config"
	"github.com/mkarsten/gatehouse/internal/models"
	pkglogger "github.com/mkarsten/gatehouse/pkg/logger"
)

// OTPService issues and verifies single-use recovery codes that unlock an
// account out of band, independent of the failure counters.
type OTPService struct {
	accounts  AccountStore
	otps      OTPRepository
	notifier  Notifier
	publisher EventPublisher
	audit     *pkglogger.AuditLogger
	logger    *slog.Logger
	cfg       config.SecurityConfig
}

// NewOTPService creates a new OTPService
func NewOTPService(
	accounts AccountStore,
	otps OTPRepository,
	notifier Notifier,
	publisher EventPublisher,
	audit *pkglogger.AuditLogger,
	logger *slog.Logger,
	cfg config.SecurityConfig,
) *OTPService {
	return &OTPService{
		accounts:  accounts,
		otps:      otps,
		notifier:  notifier,
		publisher: publisher,
		audit:     audit,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate issues a recovery code for a locked account and dispatches it to
// the address. A missing account and an unlocked account produce the same
// failure kind so generation does not confirm account existence.
func (s *OTPService) Generate(ctx context.Context, address string) error {
	account, err := s.accounts.FindByIdentifier(ctx, address)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.audit.LogRecovery("otp_rejected", address, false)
			return models.ErrAccountNotLocked
		}
		s.logger.Error("account lookup failed for recovery", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !account.IsLocked(time.Now()) {
		s.audit.LogRecovery("otp_rejected", address, false)
		return models.ErrAccountNotLocked
	}

	code, err := generateNumericCode(s.cfg.OTPCodeLength)
	if err != nil {
		s.logger.Error("failed to generate recovery code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	record := &models.OTPRecord{
		Address:   address,
		Code:      code,
		ExpiresAt: time.Now().Add(s.cfg.OTPExpiry),
	}

	// Overwrites any prior unconsumed code for this address.
	if err := s.otps.Put(ctx, record, s.cfg.OTPExpiry); err != nil {
		s.logger.Error("failed to store recovery code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	subject := "Your account recovery code"
	body := fmt.Sprintf(
		"Your recovery code is %s. It expires in %d minutes.\n\nIf you did not request this code, you can ignore this message.",
		code, int(s.cfg.OTPExpiry.Minutes()),
	)
	if err := s.notifier.Send(ctx, address, subject, body); err != nil {
		s.logger.Error("failed to deliver recovery code",
			slog.String("address", pkglogger.SanitizedIdentifier(address)),
			slog.Any("error", err))
		return models.ErrNotifierFailure
	}

	s.audit.LogRecovery("otp_generated", address, true)
	return nil
}

// Verify consumes a recovery code. On match the account's lock fields and
// the code are cleared as one logical transaction; the code is single-use
// even under concurrent verification because the claim is atomic.
func (s *OTPService) Verify(ctx context.Context, address, code string) error {
	record, err := s.otps.Get(ctx, address)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.audit.LogRecovery("otp_verify_failed", address, false)
			return models.ErrOTPInvalid
		}
		s.logger.Error("failed to fetch recovery code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if record.Expired(time.Now()) {
		if err := s.otps.Delete(ctx, address); err != nil {
			s.logger.Error("failed to drop expired recovery code", slog.Any("error", err))
		}
		s.audit.LogRecovery("otp_verify_failed", address, false)
		return models.ErrOTPExpired
	}

	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) != 1 {
		s.audit.LogRecovery("otp_verify_failed", address, false)
		return models.ErrOTPInvalid
	}

	// Claim atomically; a concurrent verify or regeneration loses the race
	// and sees Invalid.
	claimed, err := s.otps.Claim(ctx, address)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrOTPInvalid
		}
		s.logger.Error("failed to claim recovery code", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if subtle.ConstantTimeCompare([]byte(claimed.Code), []byte(code)) != 1 {
		return models.ErrOTPInvalid
	}

	account, err := s.accounts.FindByIdentifier(ctx, address)
	if err != nil {
		s.logger.Error("account lookup failed after claim", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.accounts.ClearLock(ctx, account.ID); err != nil {
		s.logger.Error("failed to unlock account after recovery",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.LogRecovery("otp_verified", address, true)

	if err := s.publisher.Publish(ctx, SecurityEvent{
		Type:      "account_unlocked",
		AccountID: account.ID,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		s.logger.Error("failed to publish unlock event", slog.Any("error", err))
	}

	return nil
}

// generateNumericCode returns a crypto-random numeric string of the given
// length, left-padded with zeros.
func generateNumericCode(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
