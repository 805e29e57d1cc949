package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/mkarsten/gatehouse/internal/config"
	"github.com/mkarsten/gatehouse/internal/models"
)

// AnomalyService is the advisory heuristic layer. Nothing here blocks a
// request: the origin check attaches a warning to an already-successful
// login, and the scans run off the critical path entirely.
type AnomalyService struct {
	attempts  AttemptLog
	alerts    AlertStore
	publisher EventPublisher
	logger    *slog.Logger
	cfg       config.SecurityConfig
}

// NewAnomalyService creates a new AnomalyService
func NewAnomalyService(
	attempts AttemptLog,
	alerts AlertStore,
	publisher EventPublisher,
	logger *slog.Logger,
	cfg config.SecurityConfig,
) *AnomalyService {
	return &AnomalyService{
		attempts:  attempts,
		alerts:    alerts,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

// CheckUnusualOrigin compares the current origin against the most recent
// successful attempt. A mismatch yields the previous origin for the caller's
// advisory and records an unusual_login alert. First logins have no baseline
// and report nothing.
func (s *AnomalyService) CheckUnusualOrigin(ctx context.Context, accountID, currentIP, currentUserAgent string) (*models.OriginChange, error) {
	last, err := s.attempts.LastSuccess(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, nil
	}

	if last.OriginIP == currentIP && last.UserAgent == currentUserAgent {
		return nil, nil
	}

	change := &models.OriginChange{
		PreviousIP:        last.OriginIP,
		PreviousUserAgent: last.UserAgent,
	}

	alert := &models.SecurityAlert{
		AccountID: &accountID,
		AlertType: models.AlertUnusualLogin,
		Details: models.AlertDetails{
			"previous_ip":         last.OriginIP,
			"previous_user_agent": last.UserAgent,
			"current_ip":          currentIP,
			"current_user_agent":  currentUserAgent,
		},
	}
	if _, err := s.alerts.Create(ctx, alert); err != nil {
		s.logger.Error("failed to record unusual login alert",
			slog.String("account_id", accountID),
			slog.Any("error", err))
	}

	if err := s.publisher.Publish(ctx, SecurityEvent{
		Type:      models.AlertUnusualLogin,
		AccountID: accountID,
		Details:   map[string]any{"current_ip": currentIP},
		Timestamp: time.Now().UTC(),
	}); err != nil {
		s.logger.Error("failed to publish unusual login event", slog.Any("error", err))
	}

	return change, nil
}

// ScanOriginAsync dispatches both origin scans as a fire-and-forget task.
// The goroutine carries its own context so the login response never waits
// on it.
func (s *AnomalyService) ScanOriginAsync(originIP string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.ScanForAutomation(ctx, originIP)
		s.ScanForCredentialStuffing(ctx, originIP)
	}()
}

// ScanForAutomation flags burst timing: at least AutomationMinAttempts
// attempts from one IP inside the window with a mean inter-attempt gap under
// the threshold.
func (s *AnomalyService) ScanForAutomation(ctx context.Context, originIP string) {
	since := time.Now().Add(-s.cfg.AutomationWindow)
	times, err := s.attempts.RecentTimesByIP(ctx, originIP, since)
	if err != nil {
		s.logger.Error("automation scan failed", slog.String("origin_ip", originIP), slog.Any("error", err))
		return
	}

	if len(times) < s.cfg.AutomationMinAttempts {
		return
	}

	// Timestamps arrive newest first; the mean gap is the span divided by
	// the interval count.
	span := times[0].Sub(times[len(times)-1])
	meanGap := span / time.Duration(len(times)-1)
	if meanGap >= s.cfg.AutomationMaxMeanGap {
		return
	}

	alert := &models.SecurityAlert{
		AlertType: models.AlertAutomatedAttack,
		Details: models.AlertDetails{
			"origin_ip":     originIP,
			"attempt_count": len(times),
			"mean_gap_ms":   meanGap.Milliseconds(),
		},
	}
	if _, err := s.alerts.Create(ctx, alert); err != nil {
		s.logger.Error("failed to record automation alert", slog.Any("error", err))
		return
	}

	s.logger.Warn("automated attack suspected",
		slog.String("origin_ip", originIP),
		slog.Int("attempt_count", len(times)),
		slog.Int64("mean_gap_ms", meanGap.Milliseconds()))
}

// ScanForCredentialStuffing flags one IP spraying many identifiers inside the
// stuffing window. Advisory only; no lock is applied.
func (s *AnomalyService) ScanForCredentialStuffing(ctx context.Context, originIP string) {
	since := time.Now().Add(-s.cfg.StuffingWindow)
	distinct, err := s.attempts.CountDistinctIdentifiersByIP(ctx, originIP, since)
	if err != nil {
		s.logger.Error("credential stuffing scan failed", slog.String("origin_ip", originIP), slog.Any("error", err))
		return
	}

	if distinct < s.cfg.StuffingMinIdentifiers {
		return
	}

	alert := &models.SecurityAlert{
		AlertType: models.AlertAutomatedAttack,
		Details: models.AlertDetails{
			"origin_ip":            originIP,
			"distinct_identifiers": distinct,
			"window":               s.cfg.StuffingWindow.String(),
			"pattern":              "credential_stuffing",
		},
	}
	if _, err := s.alerts.Create(ctx, alert); err != nil {
		s.logger.Error("failed to record credential stuffing alert", slog.Any("error", err))
		return
	}

	s.logger.Warn("credential stuffing suspected",
		slog.String("origin_ip", originIP),
		slog.Int("distinct_identifiers", distinct))
}
