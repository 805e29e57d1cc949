package background

import (
	"context"
	"log/slog"
	"time"
)

// AttemptPruner removes attempt records older than a cutoff.
type AttemptPruner interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// CleanupManager periodically prunes login attempts past their retention
// period. Counting windows are minutes long, so retention exists for audit
// sizing, not for correctness.
type CleanupManager struct {
	attempts  AttemptPruner
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	attempts AttemptPruner,
	logger *slog.Logger,
	interval time.Duration,
	retention time.Duration,
) *CleanupManager {
	return &CleanupManager{
		attempts:  attempts,
		logger:    logger,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-cm.retention)
	rowsDeleted, err := cm.attempts.DeleteExpired(cleanupCtx, cutoff)
	if err != nil {
		cm.logger.Error("failed to prune login attempts", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("login attempt retention cleanup completed",
			slog.Int64("rows_deleted", rowsDeleted),
			slog.Time("cutoff", cutoff))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
