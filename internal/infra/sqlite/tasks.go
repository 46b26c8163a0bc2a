package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/classbank/classbank/internal/domain"
)

// ─── Task Operations ────────────────────────────────────────────────────────

// CreateTask inserts a task.
func (db *DB) CreateTask(ctx context.Context, t domain.Task) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO tasks (id, class_id, title, reward_coins, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.ClassID, t.Title, t.RewardCoins, t.CreatedBy, formatTime(t.CreatedAt))
	return err
}

// GetTask retrieves a task by id.
func (db *DB) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	var created string
	err := db.db.QueryRowContext(ctx, `
		SELECT id, class_id, title, reward_coins, created_by, created_at
		FROM tasks WHERE id = ?
	`, id).Scan(&t.ID, &t.ClassID, &t.Title, &t.RewardCoins, &t.CreatedBy, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	t.CreatedAt = parseTime(created)
	return &t, nil
}

// ─── Submission Operations ──────────────────────────────────────────────────

// CreateSubmission inserts a task submission.
func (db *DB) CreateSubmission(ctx context.Context, s domain.TaskSubmission) error {
	var reviewed interface{}
	if s.ReviewedAt != nil {
		reviewed = formatTime(*s.ReviewedAt)
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO task_submissions (id, task_id, account_id, status, submitted_at, reviewed_by, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.TaskID, s.AccountID, string(s.Status), formatTime(s.SubmittedAt), s.ReviewedBy, reviewed)
	return err
}

// GetSubmission retrieves a submission by id.
func (db *DB) GetSubmission(ctx context.Context, id string) (*domain.TaskSubmission, error) {
	var s domain.TaskSubmission
	var status, submitted string
	var reviewed sql.NullString
	err := db.db.QueryRowContext(ctx, `
		SELECT id, task_id, account_id, status, submitted_at, reviewed_by, reviewed_at
		FROM task_submissions WHERE id = ?
	`, id).Scan(&s.ID, &s.TaskID, &s.AccountID, &status, &submitted, &s.ReviewedBy, &reviewed)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: submission %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	s.Status = domain.SubmissionStatus(status)
	s.SubmittedAt = parseTime(submitted)
	if reviewed.Valid {
		t := parseTime(reviewed.String)
		s.ReviewedAt = &t
	}
	return &s, nil
}

// UpdateSubmission persists a submission's review outcome.
func (db *DB) UpdateSubmission(ctx context.Context, s *domain.TaskSubmission) error {
	var reviewed interface{}
	if s.ReviewedAt != nil {
		reviewed = formatTime(*s.ReviewedAt)
	}
	res, err := db.db.ExecContext(ctx, `
		UPDATE task_submissions SET status = ?, reviewed_by = ?, reviewed_at = ? WHERE id = ?
	`, string(s.Status), s.ReviewedBy, reviewed, s.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: submission %s", domain.ErrNotFound, s.ID)
	}
	return nil
}

// HasApprovedSubmission reports whether the account already has an
// approved submission for the task.
func (db *DB) HasApprovedSubmission(ctx context.Context, taskID, accountID string) (bool, error) {
	var count int
	err := db.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM task_submissions
		WHERE task_id = ? AND account_id = ? AND status = 'approved'
	`, taskID, accountID).Scan(&count)
	return count > 0, err
}
