package sqlite

import (
	"context"
	"fmt"

	"github.com/classbank/classbank/internal/domain"
)

// ─── Ledger Operations ──────────────────────────────────────────────────────

// ApplyTransaction persists the balance update, the ledger entry, and the
// activity row as one SQL transaction. The account write is version-checked;
// a stale version rolls everything back with ErrConcurrencyConflict so no
// partial state is ever observable.
func (db *DB) ApplyTransaction(ctx context.Context, a *domain.Account, txn domain.Transaction, act domain.Activity) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
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

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, kind, bucket, amount, description,
			task_id, store_item_id, cycle_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, txn.ID, txn.AccountID, string(txn.Kind), string(txn.Bucket), txn.Amount, txn.Description,
		txn.TaskID, txn.StoreItemID, txn.CycleID, formatTime(txn.CreatedAt)); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO activities (id, account_id, kind, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, act.ID, act.AccountID, string(act.Kind), act.Message, formatTime(act.CreatedAt)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	a.Version++
	return nil
}

// ListTransactions returns an account's full ledger, oldest first.
func (db *DB) ListTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	return db.queryTransactions(ctx, `
		SELECT id, account_id, kind, bucket, amount, description,
			task_id, store_item_id, cycle_id, created_at
		FROM transactions WHERE account_id = ? ORDER BY created_at, id
	`, accountID)
}

// ListTransactionsByCycle filters the ledger by account and cycle.
func (db *DB) ListTransactionsByCycle(ctx context.Context, accountID, cycleID string) ([]domain.Transaction, error) {
	return db.queryTransactions(ctx, `
		SELECT id, account_id, kind, bucket, amount, description,
			task_id, store_item_id, cycle_id, created_at
		FROM transactions WHERE account_id = ? AND cycle_id = ? ORDER BY created_at, id
	`, accountID, cycleID)
}

// HasTaskReward reports whether an earn entry for the task is already on
// the account's ledger.
func (db *DB) HasTaskReward(ctx context.Context, accountID, taskID string) (bool, error) {
	var n int
	err := db.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE account_id = ? AND task_id = ? AND kind = 'earn'
	`, accountID, taskID).Scan(&n)
	return n > 0, err
}

func (db *DB) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]domain.Transaction, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var kind, bucket, created string
		if err := rows.Scan(&t.ID, &t.AccountID, &kind, &bucket, &t.Amount, &t.Description,
			&t.TaskID, &t.StoreItemID, &t.CycleID, &created); err != nil {
			return nil, err
		}
		t.Kind = domain.TxKind(kind)
		t.Bucket = domain.Bucket(bucket)
		t.CreatedAt = parseTime(created)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ─── Activity Operations ────────────────────────────────────────────────────

// AppendActivity inserts one feed entry.
func (db *DB) AppendActivity(ctx context.Context, act domain.Activity) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO activities (id, account_id, kind, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, act.ID, act.AccountID, string(act.Kind), act.Message, formatTime(act.CreatedAt))
	return err
}

// ListActivity returns an account's newest feed entries, most recent first.
func (db *DB) ListActivity(ctx context.Context, accountID string, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, account_id, kind, message, created_at
		FROM activities WHERE account_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Activity
	for rows.Next() {
		var a domain.Activity
		var kind, created string
		if err := rows.Scan(&a.ID, &a.AccountID, &kind, &a.Message, &created); err != nil {
			return nil, err
		}
		a.Kind = domain.ActivityKind(kind)
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}
