package domain

import "time"

// ─── Goal ───────────────────────────────────────────────────────────────────

// Goal is a savings target tracked against an account's save bucket.
// CurrentAmount mirrors the save bucket and is recomputed by the Goal
// Tracker, never set directly by callers.
type Goal struct {
	ID            string     `json:"id"`
	AccountID     string     `json:"account_id"`
	Name          string     `json:"name"`
	TargetAmount  int64      `json:"target_amount"` // always > 0
	CurrentAmount int64      `json:"current_amount"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Completed reports whether the goal has been reached.
func (g Goal) Completed() bool {
	return g.CompletedAt != nil
}

// Reached reports whether the current amount meets the target.
func (g Goal) Reached() bool {
	return g.CurrentAmount >= g.TargetAmount
}

// ProgressPct returns completion progress in percent, capped at 100.
func (g Goal) ProgressPct() int {
	if g.TargetAmount <= 0 {
		return 0
	}
	pct := g.CurrentAmount * 100 / g.TargetAmount
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return int(pct)
}
