package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/classbank/classbank/internal/domain"
)

// ─── Cycle Operations ───────────────────────────────────────────────────────

const cycleColumns = `id, class_id, week_number, start_at, end_at, status`

// CreateCycle inserts a cycle. The partial unique index on active cycles
// rejects a second Active cycle for the same class.
func (db *DB) CreateCycle(ctx context.Context, c domain.Cycle) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO cycles (id, class_id, week_number, start_at, end_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.ClassID, c.WeekNumber, formatTime(c.StartAt), formatTime(c.EndAt), string(c.Status))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: class %s already has an active cycle", domain.ErrConcurrencyConflict, c.ClassID)
	}
	return err
}

// GetCycle retrieves a cycle by id.
func (db *DB) GetCycle(ctx context.Context, id string) (*domain.Cycle, error) {
	row := db.db.QueryRowContext(ctx,
		`SELECT `+cycleColumns+` FROM cycles WHERE id = ?`, id)
	c, err := scanCycle(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: cycle %s", domain.ErrNotFound, id)
	}
	return c, err
}

// ActiveCycle returns the class's single active cycle.
func (db *DB) ActiveCycle(ctx context.Context, classID string) (*domain.Cycle, error) {
	row := db.db.QueryRowContext(ctx,
		`SELECT `+cycleColumns+` FROM cycles WHERE class_id = ? AND status = 'active'`, classID)
	c, err := scanCycle(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no active cycle for class %s", domain.ErrNotFound, classID)
	}
	return c, err
}

// RotateCycle retires the named cycle and creates next atomically. If the
// cycle is no longer active (a concurrent reset won), nothing is written.
func (db *DB) RotateCycle(ctx context.Context, retiredID string, next domain.Cycle) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE cycles SET status = 'retired' WHERE id = ? AND status = 'active'`, retiredID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: cycle %s is not active", domain.ErrConcurrencyConflict, retiredID)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cycles (id, class_id, week_number, start_at, end_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, next.ID, next.ClassID, next.WeekNumber, formatTime(next.StartAt),
		formatTime(next.EndAt), string(next.Status)); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: class %s already has an active cycle", domain.ErrConcurrencyConflict, next.ClassID)
		}
		return err
	}
	return tx.Commit()
}

// ListOverdueActiveCycles returns active cycles whose end has passed.
func (db *DB) ListOverdueActiveCycles(ctx context.Context, now time.Time) ([]domain.Cycle, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT `+cycleColumns+` FROM cycles WHERE status = 'active' AND end_at < ? ORDER BY end_at`,
		formatTime(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Cycle
	for rows.Next() {
		var c domain.Cycle
		var start, end, status string
		if err := rows.Scan(&c.ID, &c.ClassID, &c.WeekNumber, &start, &end, &status); err != nil {
			return nil, err
		}
		c.StartAt = parseTime(start)
		c.EndAt = parseTime(end)
		c.Status = domain.CycleStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCycle(row rowScanner) (*domain.Cycle, error) {
	var c domain.Cycle
	var start, end, status string
	if err := row.Scan(&c.ID, &c.ClassID, &c.WeekNumber, &start, &end, &status); err != nil {
		return nil, err
	}
	c.StartAt = parseTime(start)
	c.EndAt = parseTime(end)
	c.Status = domain.CycleStatus(status)
	return &c, nil
}
