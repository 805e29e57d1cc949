package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mkarsten/gatehouse/internal/database"
	"github.com/mkarsten/gatehouse/internal/models"
)

// AlertRepository is the durable security-alert store. Alerts are created by
// the rate limiter and the anomaly detector; the only mutation afterwards is
// the review-status update.
type AlertRepository struct {
	db *database.DB
}

// NewAlertRepository creates a new AlertRepository
func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create persists a new alert with status active and returns it with its
// generated id.
func (r *AlertRepository) Create(ctx context.Context, alert *models.SecurityAlert) (*models.SecurityAlert, error) {
	details, err := json.Marshal(alert.Details)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal alert details: %w", err)
	}

	query := `
		INSERT INTO security_alerts (account_id, alert_type, details, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	created := *alert
	created.Status = models.AlertStatusActive
	err = r.db.Pool.QueryRow(ctx, query,
		alert.AccountID, alert.AlertType, details, models.AlertStatusActive,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &created, nil
}

// ListByAccount returns the newest alerts for an account.
func (r *AlertRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*models.SecurityAlert, error) {
	query := `
		SELECT id, account_id, alert_type, details, status, created_at, updated_at
		FROM security_alerts
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var alerts []*models.SecurityAlert
	for rows.Next() {
		var a models.SecurityAlert
		var details []byte
		if err := rows.Scan(&a.ID, &a.AccountID, &a.AlertType, &details, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &a.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal alert details: %w", err)
			}
		}
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

// UpdateStatus applies a human review decision to an alert.
func (r *AlertRepository) UpdateStatus(ctx context.Context, id, status string) error {
	switch status {
	case models.AlertStatusActive, models.AlertStatusResolved, models.AlertStatusFalsePositive:
	default:
		return models.ErrBadRequest
	}

	query := `
		UPDATE security_alerts
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, status)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CountActive returns the number of unreviewed alerts.
func (r *AlertRepository) CountActive(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM security_alerts WHERE status = $1`

	var count int64
	err := r.db.Pool.QueryRow(ctx, query, models.AlertStatusActive).Scan(&count)
	return count, err
}
