// Package sqlite implements the ledger's repository interfaces on SQLite
// via the pure-Go modernc driver. All balance-affecting writes run inside
// a single SQL transaction; accounts carry an optimistic version stamp.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle and implements domain.Repository.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
// Pass ":memory:" for an ephemeral database in tests.
func Open(path string) (*DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite serializes writers anyway; a single connection avoids
	// "database is locked" churn and keeps :memory: databases coherent.
	handle.SetMaxOpenConns(1)

	for _, pragma := range []string{
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 5000`,
	} {
		if _, err := handle.Exec(pragma); err != nil {
			handle.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	db := &DB{db: handle}
	if err := db.migrate(); err != nil {
		handle.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the underlying handle.
func (db *DB) Close() error { return db.db.Close() }

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Student accounts with dual buckets and an optimistic version stamp
		`CREATE TABLE IF NOT EXISTS accounts (
			id                  TEXT PRIMARY KEY,
			class_id            TEXT NOT NULL,
			total_coins         INTEGER NOT NULL DEFAULT 0,
			save_bucket         INTEGER NOT NULL DEFAULT 0,
			spend_bucket        INTEGER NOT NULL DEFAULT 0,
			current_goal_id     TEXT NOT NULL DEFAULT '',
			last_cycle_reset_at TEXT NOT NULL DEFAULT '',
			version             INTEGER NOT NULL DEFAULT 1,
			created_at          TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_class ON accounts(class_id)`,

		// Append-only coin ledger
		`CREATE TABLE IF NOT EXISTS transactions (
			id            TEXT PRIMARY KEY,
			account_id    TEXT NOT NULL,
			kind          TEXT NOT NULL,
			bucket        TEXT NOT NULL,
			amount        INTEGER NOT NULL CHECK(amount > 0),
			description   TEXT NOT NULL DEFAULT '',
			task_id       TEXT NOT NULL DEFAULT '',
			store_item_id TEXT NOT NULL DEFAULT '',
			cycle_id      TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_account ON transactions(account_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_account_cycle ON transactions(account_id, cycle_id)`,

		// Human-readable activity feed
		`CREATE TABLE IF NOT EXISTS activities (
			id         TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			kind       TEXT NOT NULL,
			message    TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_account ON activities(account_id, created_at)`,

		// Per-class economy policy
		`CREATE TABLE IF NOT EXISTS class_policies (
			class_id           TEXT PRIMARY KEY,
			store_enabled      INTEGER NOT NULL DEFAULT 1,
			store_locked       INTEGER NOT NULL DEFAULT 0,
			auto_split_enabled INTEGER NOT NULL DEFAULT 0,
			save_ratio         INTEGER NOT NULL DEFAULT 50,
			spend_ratio        INTEGER NOT NULL DEFAULT 50,
			min_save_pct       INTEGER,
			cycle_length_days  INTEGER NOT NULL DEFAULT 7
		)`,

		// Accounting cycles; the partial unique index enforces the
		// one-active-cycle-per-class invariant at the storage layer
		`CREATE TABLE IF NOT EXISTS cycles (
			id          TEXT PRIMARY KEY,
			class_id    TEXT NOT NULL,
			week_number INTEGER NOT NULL,
			start_at    TEXT NOT NULL,
			end_at      TEXT NOT NULL,
			status      TEXT NOT NULL DEFAULT 'active'
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_cycles_one_active
			ON cycles(class_id) WHERE status = 'active'`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_class ON cycles(class_id, week_number)`,

		// Savings goals, at most one per account
		`CREATE TABLE IF NOT EXISTS goals (
			id             TEXT PRIMARY KEY,
			account_id     TEXT NOT NULL UNIQUE,
			name           TEXT NOT NULL,
			target_amount  INTEGER NOT NULL CHECK(target_amount > 0),
			current_amount INTEGER NOT NULL DEFAULT 0,
			completed_at   TEXT,
			created_at     TEXT NOT NULL
		)`,

		// Store catalog and purchase receipts
		`CREATE TABLE IF NOT EXISTS store_items (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			cost         INTEGER NOT NULL CHECK(cost > 0),
			class_id     TEXT NOT NULL DEFAULT '',
			is_available INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS purchases (
			id            TEXT PRIMARY KEY,
			account_id    TEXT NOT NULL,
			store_item_id TEXT NOT NULL,
			cost          INTEGER NOT NULL,
			cycle_id      TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_account ON purchases(account_id, created_at)`,

		// Tasks and submissions
		`CREATE TABLE IF NOT EXISTS tasks (
			id           TEXT PRIMARY KEY,
			class_id     TEXT NOT NULL,
			title        TEXT NOT NULL,
			reward_coins INTEGER NOT NULL CHECK(reward_coins > 0),
			created_by   TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS task_submissions (
			id           TEXT PRIMARY KEY,
			task_id      TEXT NOT NULL,
			account_id   TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT 'submitted',
			submitted_at TEXT NOT NULL,
			reviewed_by  TEXT NOT NULL DEFAULT '',
			reviewed_at  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_task ON task_submissions(task_id, account_id)`,
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
