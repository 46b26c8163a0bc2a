package domain

import (
	"context"
	"time"
)

// ─── Repository Interfaces ──────────────────────────────────────────────────
// These interfaces define the persistence boundary. Infrastructure
// implements them; the application layer depends on them. No component
// holds global state — repositories are injected at construction.

// AccountRepo stores student accounts.
type AccountRepo interface {
	CreateAccount(ctx context.Context, a Account) error
	GetAccount(ctx context.Context, id string) (*Account, error)

	// UpdateAccount persists a, matching on the version it was read at.
	// A stale version fails with ErrConcurrencyConflict; on success the
	// stored and in-memory versions are bumped.
	UpdateAccount(ctx context.Context, a *Account) error

	ListAccountsByClass(ctx context.Context, classID string) ([]Account, error)
}

// LedgerRepo stores the append-only transaction log and activity feed.
type LedgerRepo interface {
	// ApplyTransaction persists the balance update, the ledger entry, and
	// the activity row as a single atomic unit. No intermediate state is
	// observable. The account write is version-checked like UpdateAccount.
	ApplyTransaction(ctx context.Context, a *Account, tx Transaction, act Activity) error

	ListTransactions(ctx context.Context, accountID string) ([]Transaction, error)
	ListTransactionsByCycle(ctx context.Context, accountID, cycleID string) ([]Transaction, error)

	// HasTaskReward reports whether the ledger already holds an earn entry
	// crediting taskID to the account. The ledger, not the submission
	// status, is the authority on whether a reward was paid.
	HasTaskReward(ctx context.Context, accountID, taskID string) (bool, error)
	AppendActivity(ctx context.Context, act Activity) error
	ListActivity(ctx context.Context, accountID string, limit int) ([]Activity, error)
}

// PolicyRepo stores per-class economy policies.
type PolicyRepo interface {
	GetPolicy(ctx context.Context, classID string) (*ClassPolicy, error)
	PutPolicy(ctx context.Context, p ClassPolicy) error
}

// CycleRepo stores accounting cycles and enforces the one-active-per-class
// invariant via a unique constraint.
type CycleRepo interface {
	CreateCycle(ctx context.Context, c Cycle) error
	GetCycle(ctx context.Context, id string) (*Cycle, error)
	ActiveCycle(ctx context.Context, classID string) (*Cycle, error)

	// RotateCycle retires the named cycle and creates next atomically.
	RotateCycle(ctx context.Context, retiredID string, next Cycle) error

	ListOverdueActiveCycles(ctx context.Context, now time.Time) ([]Cycle, error)
}

// GoalRepo stores savings goals, at most one per account.
type GoalRepo interface {
	// ReplaceGoal installs g as the account's goal, discarding any prior
	// goal for the same account.
	ReplaceGoal(ctx context.Context, g Goal) error

	GetGoalByAccount(ctx context.Context, accountID string) (*Goal, error)
	UpdateGoal(ctx context.Context, g *Goal) error
}

// StoreRepo stores shop items and purchase receipts.
type StoreRepo interface {
	PutItem(ctx context.Context, item StoreItem) error
	GetItem(ctx context.Context, id string) (*StoreItem, error)
	ListItemsForClass(ctx context.Context, classID string) ([]StoreItem, error)
	CreatePurchase(ctx context.Context, p Purchase) error
	ListPurchases(ctx context.Context, accountID string) ([]Purchase, error)
}

// TaskRepo stores tasks and their submissions.
type TaskRepo interface {
	CreateTask(ctx context.Context, t Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	CreateSubmission(ctx context.Context, s TaskSubmission) error
	GetSubmission(ctx context.Context, id string) (*TaskSubmission, error)
	UpdateSubmission(ctx context.Context, s *TaskSubmission) error
	HasApprovedSubmission(ctx context.Context, taskID, accountID string) (bool, error)
}

// Repository is the full persistence surface consumed by the ledger core.
type Repository interface {
	AccountRepo
	LedgerRepo
	PolicyRepo
	CycleRepo
	GoalRepo
	StoreRepo
	TaskRepo
}
