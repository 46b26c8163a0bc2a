package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/classbank/classbank/internal/domain"
)

// ─── Goal Operations ────────────────────────────────────────────────────────

// ReplaceGoal installs g as the account's goal, discarding any prior goal
// for the same account. Prior goal history is not retained.
func (db *DB) ReplaceGoal(ctx context.Context, g domain.Goal) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM goals WHERE account_id = ?`, g.AccountID); err != nil {
		return err
	}

	var completed interface{}
	if g.CompletedAt != nil {
		completed = formatTime(*g.CompletedAt)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO goals (id, account_id, name, target_amount, current_amount, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, g.ID, g.AccountID, g.Name, g.TargetAmount, g.CurrentAmount, completed, formatTime(g.CreatedAt)); err != nil {
		return err
	}
	return tx.Commit()
}

// GetGoalByAccount retrieves an account's goal.
func (db *DB) GetGoalByAccount(ctx context.Context, accountID string) (*domain.Goal, error) {
	var g domain.Goal
	var completed sql.NullString
	var created string
	err := db.db.QueryRowContext(ctx, `
		SELECT id, account_id, name, target_amount, current_amount, completed_at, created_at
		FROM goals WHERE account_id = ?
	`, accountID).Scan(&g.ID, &g.AccountID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &completed, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: goal for account %s", domain.ErrNotFound, accountID)
	}
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		t := parseTime(completed.String)
		g.CompletedAt = &t
	}
	g.CreatedAt = parseTime(created)
	return &g, nil
}

// UpdateGoal persists the goal's tracked progress and completion stamp.
func (db *DB) UpdateGoal(ctx context.Context, g *domain.Goal) error {
	var completed interface{}
	if g.CompletedAt != nil {
		completed = formatTime(*g.CompletedAt)
	}
	res, err := db.db.ExecContext(ctx, `
		UPDATE goals SET current_amount = ?, completed_at = ? WHERE id = ?
	`, g.CurrentAmount, completed, g.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: goal %s", domain.ErrNotFound, g.ID)
	}
	return nil
}
