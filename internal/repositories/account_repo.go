package repositories

import (
	"context"
	"time"

	"github.com/mkarsten/gatehouse/internal/database"
	"github.com/mkarsten/gatehouse/internal/models"
)

// AccountRepository provides the account-store collaborator surface this
// subsystem needs: identifier lookup plus lock-state mutation. Accounts are
// never created or deleted here.
type AccountRepository struct {
	db *database.DB
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `
	id, email, username, password_hash, locked, lock_expires_at,
	last_login, last_login_ip, last_user_agent, created_at, updated_at
`

// FindByIdentifier looks up an account by email or username. Matching is
// case-sensitive against the stored value.
func (r *AccountRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE email = $1 OR username = $1
	`

	var a models.Account
	err := r.db.Pool.QueryRow(ctx, query, identifier).Scan(
		&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.Locked, &a.LockExpiresAt,
		&a.LastLogin, &a.LastLoginIP, &a.LastUserAgent, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &a, nil
}

// Lock sets the lock fields in a single conditional write keyed on the
// account id. Two concurrent threshold crossings both land here; last writer
// wins on lock_expires_at, but the write itself is atomic at the row level.
func (r *AccountRepository) Lock(ctx context.Context, accountID string, until time.Time) error {
	query := `
		UPDATE accounts
		SET locked = true, lock_expires_at = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, accountID, until)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClearLock clears the lock fields unconditionally.
func (r *AccountRepository) ClearLock(ctx context.Context, accountID string) error {
	query := `
		UPDATE accounts
		SET locked = false, lock_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, accountID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RecordLogin stamps the last successful login time and origin.
func (r *AccountRepository) RecordLogin(ctx context.Context, accountID string, at time.Time, originIP, userAgent string) error {
	query := `
		UPDATE accounts
		SET last_login = $2, last_login_ip = $3, last_user_agent = $4, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, accountID, at, originIP, userAgent)
	return database.MapPostgresError(err)
}
