package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mkarsten/gatehouse/internal/database"
	"github.com/mkarsten/gatehouse/internal/models"
)

// AttemptRepository is the append-only attempt log. Counting runs as a single
// SQL query so it stays correct under concurrent requests for the same
// account; there is no in-process accumulation.
type AttemptRepository struct {
	db *database.DB
}

// NewAttemptRepository creates a new AttemptRepository
func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Record inserts an attempt record.
func (r *AttemptRepository) Record(ctx context.Context, attempt *models.AttemptRecord) error {
	query := `
		INSERT INTO login_attempts (identifier, account_id, origin_ip, user_agent, attempt_time, outcome, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.Identifier,
		attempt.AccountID,
		attempt.OriginIP,
		attempt.UserAgent,
		attempt.AttemptTime,
		attempt.Outcome,
		attempt.Reason,
	)

	return err
}

// CountFailures returns the number of failed attempts matching the filter
// since the window start. Account id and identifier match with OR; origin IP
// is used only when the filter carries neither.
func (r *AttemptRepository) CountFailures(ctx context.Context, filter models.AttemptFilter, since time.Time) (int, error) {
	clause, args := filterClause(filter, 3)
	if clause == "" {
		return 0, fmt.Errorf("empty attempt filter")
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM login_attempts
		WHERE outcome = $1 AND attempt_time >= $2 AND (%s)
	`, clause)

	queryArgs := append([]any{models.OutcomeFailed, since}, args...)

	var count int
	err := r.db.Pool.QueryRow(ctx, query, queryArgs...).Scan(&count)
	return count, err
}

// MarkReset relabels failed attempts in the window as reset so the audit
// trail survives but a later failure streak starts clean. Returns the number
// of relabeled rows.
func (r *AttemptRepository) MarkReset(ctx context.Context, filter models.AttemptFilter, since time.Time) (int64, error) {
	clause, args := filterClause(filter, 4)
	if clause == "" {
		return 0, fmt.Errorf("empty attempt filter")
	}

	query := fmt.Sprintf(`
		UPDATE login_attempts SET outcome = $1
		WHERE outcome = $2 AND attempt_time >= $3 AND (%s)
	`, clause)

	queryArgs := append([]any{models.OutcomeReset, models.OutcomeFailed, since}, args...)

	tag, err := r.db.Pool.Exec(ctx, query, queryArgs...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// LastSuccess returns the most recent successful attempt for an account, or
// nil if the account has never logged in.
func (r *AttemptRepository) LastSuccess(ctx context.Context, accountID string) (*models.AttemptRecord, error) {
	query := `
		SELECT id, identifier, account_id, origin_ip, user_agent, attempt_time, outcome, reason
		FROM login_attempts
		WHERE account_id = $1 AND outcome = $2
		ORDER BY attempt_time DESC
		LIMIT 1
	`

	var rec models.AttemptRecord
	err := r.db.Pool.QueryRow(ctx, query, accountID, models.OutcomeSuccess).Scan(
		&rec.ID, &rec.Identifier, &rec.AccountID, &rec.OriginIP,
		&rec.UserAgent, &rec.AttemptTime, &rec.Outcome, &rec.Reason,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// RecentTimesByIP returns attempt timestamps from an origin IP since the
// given instant, newest first. Used by the automation scan to compute
// inter-attempt gaps.
func (r *AttemptRepository) RecentTimesByIP(ctx context.Context, originIP string, since time.Time) ([]time.Time, error) {
	query := `
		SELECT attempt_time FROM login_attempts
		WHERE origin_ip = $1 AND attempt_time >= $2
		ORDER BY attempt_time DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, originIP, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

// CountDistinctIdentifiersByIP returns how many different identifiers were
// attempted from an origin IP since the given instant.
func (r *AttemptRepository) CountDistinctIdentifiersByIP(ctx context.Context, originIP string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(DISTINCT identifier) FROM login_attempts
		WHERE origin_ip = $1 AND attempt_time >= $2
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, originIP, since).Scan(&count)
	return count, err
}

// DeleteExpired removes attempt records older than the retention cutoff.
func (r *AttemptRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM login_attempts WHERE attempt_time < $1`
	tag, err := r.db.Pool.Exec(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// filterClause builds the OR match for an attempt filter. Placeholders start
// at argStart so callers can prepend their own arguments.
func filterClause(f models.AttemptFilter, argStart int) (string, []any) {
	var conds []string
	var args []any

	n := argStart
	if f.AccountID != "" {
		conds = append(conds, fmt.Sprintf("account_id = $%d", n))
		args = append(args, f.AccountID)
		n++
	}
	if f.Identifier != "" {
		conds = append(conds, fmt.Sprintf("identifier = $%d", n))
		args = append(args, f.Identifier)
		n++
	}
	if len(conds) == 0 && f.OriginIP != "" {
		conds = append(conds, fmt.Sprintf("origin_ip = $%d", n))
		args = append(args, f.OriginIP)
	}

	return strings.Join(conds, " OR "), args
}
