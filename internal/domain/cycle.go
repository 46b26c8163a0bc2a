package domain

import (
	"math"
	"time"
)

// ─── Cycle ──────────────────────────────────────────────────────────────────

// CycleStatus is the lifecycle state of an accounting cycle.
type CycleStatus string

const (
	CycleActive  CycleStatus = "active"
	CycleRetired CycleStatus = "retired"
)

// Cycle is a bounded weekly accounting period scoped to a class.
// Invariant: exactly one Active cycle per class at any time. Retired
// cycles are retained for summary queries, never deleted.
type Cycle struct {
	ID         string      `json:"id"`
	ClassID    string      `json:"class_id"`
	WeekNumber int         `json:"week_number"` // monotonic per class, starts at 1
	StartAt    time.Time   `json:"start_at"`
	EndAt      time.Time   `json:"end_at"`
	Status     CycleStatus `json:"status"`
}

// Contains reports whether t falls within the cycle window.
func (c Cycle) Contains(t time.Time) bool {
	return !t.Before(c.StartAt) && !t.After(c.EndAt)
}

// Overdue reports whether the cycle's end has passed as of now.
func (c Cycle) Overdue(now time.Time) bool {
	return c.Status == CycleActive && now.After(c.EndAt)
}

// ─── Cycle Summary ──────────────────────────────────────────────────────────

// CycleSummary is a pure read-side projection of one account's ledger
// activity within one cycle.
type CycleSummary struct {
	CycleID        string `json:"cycle_id"`
	AccountID      string `json:"account_id"`
	WeekNumber     int    `json:"week_number"`
	CoinsEarned    int64  `json:"coins_earned"`
	CoinsSpent     int64  `json:"coins_spent"`
	SaveRate       int    `json:"save_rate"` // percent
	TasksCompleted int    `json:"tasks_completed"`
	GoalMet        bool   `json:"goal_met"`
}

// SaveRate computes round(earned/(earned+spent)*100). A cycle with no
// ledger movement has a save rate of zero.
func SaveRate(earned, spent int64) int {
	total := earned + spent
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(earned) / float64(total) * 100))
}
