// Package domain holds the classroom economy's core types and rules.
// It imports nothing outside the standard library; persistence and
// transport depend on it, never the reverse.
package domain

import "time"

// ─── Bucket ─────────────────────────────────────────────────────────────────

// Bucket identifies one of the two sub-balances composing an account's total.
type Bucket string

const (
	BucketSave  Bucket = "save"
	BucketSpend Bucket = "spend"
)

// Valid reports whether b is a known bucket.
func (b Bucket) Valid() bool {
	return b == BucketSave || b == BucketSpend
}

// ─── Account ────────────────────────────────────────────────────────────────

// Account is a student's dual-bucket coin balance within a class.
// Created when a student joins a class; mutated only through the
// Transaction Recorder, Allocation Engine, and Goal Tracker.
type Account struct {
	ID               string    `json:"id"`
	ClassID          string    `json:"class_id"`
	TotalCoins       int64     `json:"total_coins"`
	SaveBucket       int64     `json:"save_bucket"`
	SpendBucket      int64     `json:"spend_bucket"`
	CurrentGoalID    string    `json:"current_goal_id,omitempty"`
	LastCycleResetAt time.Time `json:"last_cycle_reset_at"`
	CreatedAt        time.Time `json:"created_at"`

	// Version is an optimistic concurrency stamp. Every persisted update
	// must carry the version it read; stale writes fail with
	// ErrConcurrencyConflict.
	Version int64 `json:"-"`
}

// Balanced reports whether the two buckets reconcile with the total.
// Invariant: true after every Transaction Recorder operation.
func (a Account) Balanced() bool {
	return a.TotalCoins == a.SaveBucket+a.SpendBucket
}

// BucketBalance returns the balance of the named bucket.
func (a Account) BucketBalance(b Bucket) int64 {
	if b == BucketSave {
		return a.SaveBucket
	}
	return a.SpendBucket
}
