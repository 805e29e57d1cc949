package integration

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mkarsten/gatehouse/internal/auth"
	"github.com/mkarsten/gatehouse/internal/config"
	"github.com/mkarsten/gatehouse/internal/repositories"
	"github.com/mkarsten/gatehouse/internal/services"
	pkgauth "github.com/mkarsten/gatehouse/pkg/auth"
	pkglogger "github.com/mkarsten/gatehouse/pkg/logger"
)

// SentMessage is a captured notifier dispatch
type SentMessage struct {
	Address string
	Subject string
	Body    string
}

// CapturingNotifier records outbound messages for test assertions
type CapturingNotifier struct {
	mu   sync.Mutex
	Sent []SentMessage
}

func (n *CapturingNotifier) Send(ctx context.Context, address, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, SentMessage{Address: address, Subject: subject, Body: body})
	return nil
}

// LastMessage returns the most recent message, or nil
func (n *CapturingNotifier) LastMessage() *SentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.Sent) == 0 {
		return nil
	}
	m := n.Sent[len(n.Sent)-1]
	return &m
}

// Stack wires the full login-security service graph over a live database.
// Recovery codes use the in-memory store; the persistence semantics under
// test are the Postgres-backed attempt log and lock state.
type Stack struct {
	Accounts *repositories.AccountRepository
	Attempts *repositories.AttemptRepository
	Alerts   *repositories.AlertRepository
	Auth     *services.AuthService
	OTP      *services.OTPService
	Limiter  *services.RateLimitService
	Anomaly  *services.AnomalyService
	Notifier *CapturingNotifier
	Config   config.SecurityConfig
}

// TestSecurityConfig returns the lockout policy used by the integration suite
func TestSecurityConfig() config.SecurityConfig {
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
		AttemptRetention:       30 * 24 * time.Hour,
		CleanupInterval:        time.Hour,
	}
}

// BuildStack constructs the service graph over the test database
func BuildStack(db *TestDB) *Stack {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	audit := pkglogger.NewAuditLogger(logger)
	cfg := TestSecurityConfig()

	accounts := repositories.NewAccountRepository(db.DB)
	attempts := repositories.NewAttemptRepository(db.DB)
	alerts := repositories.NewAlertRepository(db.DB)

	notifier := &CapturingNotifier{}
	otps := services.NewMockOTPRepository()
	publisher := services.NoopPublisher{}

	// Zero delays keep the failure paths fast in tests
	timing := auth.NewTimingDelay(auth.TimingConfig{})
	issuer := auth.NewTokenManager("integration-secret-0123456789abcdef", 15*time.Minute, 24*time.Hour)

	limiter := services.NewRateLimitService(attempts, accounts, alerts, publisher, audit, logger, cfg)
	anomaly := services.NewAnomalyService(attempts, alerts, publisher, logger, cfg)
	authSvc := services.NewAuthService(
		accounts, attempts, limiter, anomaly,
		pkgauth.NewBcryptVerifier(), issuer, timing, audit, logger, cfg,
	)
	otpSvc := services.NewOTPService(accounts, otps, notifier, publisher, audit, logger, cfg)

	return &Stack{
		Accounts: accounts,
		Attempts: attempts,
		Alerts:   alerts,
		Auth:     authSvc,
		OTP:      otpSvc,
		Limiter:  limiter,
		Anomaly:  anomaly,
		Notifier: notifier,
		Config:   cfg,
	}
}

// CreateAccount inserts an account directly and returns its id
func CreateAccount(ctx context.Context, db *TestDB, email, username, password string) (string, error) {
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return "", err
	}

	var id string
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO accounts (email, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id
	`, email, username, hash).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to seed account: %w", err)
	}
	return id, nil
}

// TestAccount generates unique test account credentials using a timestamp
func TestAccount(suffix string) (email, username, password string) {
	ts := time.Now().UnixNano()
	email = fmt.Sprintf("test-%d-%s@example.com", ts, suffix)
	username = fmt.Sprintf("test-%d-%s", ts, suffix)
	password = "TestPassword123!"
	return
}
