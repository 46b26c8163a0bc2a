package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/classbank/classbank/internal/domain"
)

// ─── Account Operations ─────────────────────────────────────────────────────

// CreateAccount inserts a new account. Version starts at 1.
func (db *DB) CreateAccount(ctx context.Context, a domain.Account) error {
	if a.Version == 0 {
		a.Version = 1
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO accounts (id, class_id, total_coins, save_bucket, spend_bucket,
			current_goal_id, last_cycle_reset_at, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.ClassID, a.TotalCoins, a.SaveBucket, a.SpendBucket,
		a.CurrentGoalID, formatTime(a.LastCycleResetAt), a.Version, formatTime(a.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: account %s already exists", domain.ErrValidation, a.ID)
	}
	return err
}

// GetAccount retrieves an account by id.
func (db *DB) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var a domain.Account
	var lastReset, created string
	err := db.db.QueryRowContext(ctx, `
		SELECT id, class_id, total_coins, save_bucket, spend_bucket,
			current_goal_id, last_cycle_reset_at, version, created_at
		FROM accounts WHERE id = ?
	`, id).Scan(&a.ID, &a.ClassID, &a.TotalCoins, &a.SaveBucket, &a.SpendBucket,
		&a.CurrentGoalID, &lastReset, &a.Version, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	a.LastCycleResetAt = parseTime(lastReset)
	a.CreatedAt = parseTime(created)
	return &a, nil
}

// UpdateAccount persists a, matching on the version it was read at.
// A stale version fails with ErrConcurrencyConflict.
func (db *DB) UpdateAccount(ctx context.Context, a *domain.Account) error {
	res, err := db.db.ExecContext(ctx, `
		UPDATE accounts
		SET total_coins = ?, save_bucket = ?, spend_bucket = ?,
			current_goal_id = ?, last_cycle_reset_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`, a.TotalCoins, a.SaveBucket, a.SpendBucket,
		a.CurrentGoalID, formatTime(a.LastCycleResetAt), a.ID, a.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: account %s at version %d", domain.ErrConcurrencyConflict, a.ID, a.Version)
	}
	a.Version++
	return nil
}

// ListAccountsByClass returns the roster of a class ordered by creation.
func (db *DB) ListAccountsByClass(ctx context.Context, classID string) ([]domain.Account, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, class_id, total_coins, save_bucket, spend_bucket,
			current_goal_id, last_cycle_reset_at, version, created_at
		FROM accounts WHERE class_id = ? ORDER BY created_at, id
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		var a domain.Account
		var lastReset, created string
		if err := rows.Scan(&a.ID, &a.ClassID, &a.TotalCoins, &a.SaveBucket, &a.SpendBucket,
			&a.CurrentGoalID, &lastReset, &a.Version, &created); err != nil {
			return nil, err
		}
		a.LastCycleResetAt = parseTime(lastReset)
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}
