package domain

import "time"

// ─── Transaction Types ──────────────────────────────────────────────────────

// TxKind represents the business reason for a ledger entry.
type TxKind string

const (
	TxEarn     TxKind = "earn"
	TxSpend    TxKind = "spend"
	TxTransfer TxKind = "transfer"
)

// Valid reports whether k is a known transaction kind.
func (k TxKind) Valid() bool {
	return k == TxEarn || k == TxSpend || k == TxTransfer
}

// Transaction is a single row in the append-only coin ledger.
// Once written it is never mutated or deleted; the ledger is the sole
// audit trail for cycle summaries.
type Transaction struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Kind        TxKind    `json:"kind"`
	Bucket      Bucket    `json:"bucket"`
	Amount      int64     `json:"amount"` // always > 0
	Description string    `json:"description,omitempty"`
	TaskID      string    `json:"task_id,omitempty"`
	StoreItemID string    `json:"store_item_id,omitempty"`
	CycleID     string    `json:"cycle_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TxRefs carries the optional cross-entity references of a ledger entry.
type TxRefs struct {
	TaskID      string
	StoreItemID string
	CycleID     string
}

// ─── Activity ───────────────────────────────────────────────────────────────

// ActivityKind classifies a feed entry.
type ActivityKind string

const (
	ActivityTransaction ActivityKind = "transaction"
	ActivityGoalReached ActivityKind = "goal_reached"
	ActivityCycleReset  ActivityKind = "cycle_reset"
)

// Activity is a derived, human-readable feed entry generated alongside
// ledger-affecting events. Append-only.
type Activity struct {
	ID        string       `json:"id"`
	AccountID string       `json:"account_id"`
	Kind      ActivityKind `json:"kind"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"created_at"`
}
