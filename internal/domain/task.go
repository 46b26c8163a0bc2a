package domain

import "time"

// ─── Task Types ─────────────────────────────────────────────────────────────

// Task is a rewardable assignment posted by a teacher.
type Task struct {
	ID          string    `json:"id"`
	ClassID     string    `json:"class_id"`
	Title       string    `json:"title"`
	RewardCoins int64     `json:"reward_coins"` // always > 0
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// SubmissionStatus is the review state of a task submission.
type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionApproved  SubmissionStatus = "approved"
	SubmissionReturned  SubmissionStatus = "returned"
)

// ReviewDecision is a teacher's verdict on a submission.
type ReviewDecision string

const (
	DecisionApproved ReviewDecision = "approved"
	DecisionReturned ReviewDecision = "returned"
)

// Valid reports whether d is a known review decision.
func (d ReviewDecision) Valid() bool {
	return d == DecisionApproved || d == DecisionReturned
}

// TaskSubmission records one student's claim of completing a task.
// A returned submission may be resubmitted; an approved submission is
// terminal and may be approved only once.
type TaskSubmission struct {
	ID          string           `json:"id"`
	TaskID      string           `json:"task_id"`
	AccountID   string           `json:"account_id"`
	Status      SubmissionStatus `json:"status"`
	SubmittedAt time.Time        `json:"submitted_at"`
	ReviewedBy  string           `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time       `json:"reviewed_at,omitempty"`
}
