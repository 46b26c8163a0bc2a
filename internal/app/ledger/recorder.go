// Package ledger implements the money core: the Transaction Recorder,
// the Allocation Engine, and the Goal Tracker. The Recorder is the only
// path permitted to change an account's balances; every other component
// calls through it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/classbank/classbank/internal/domain"
	"github.com/classbank/classbank/internal/infra/observability"
)

// Bounded internal retry on version contention before surfacing
// ErrConcurrencyConflict to the caller.
const (
	maxConflictRetries = 3
	conflictBackoff    = 10 * time.Millisecond
)

// Recorder appends immutable ledger entries atomically with balance
// changes. Mutations to a given account are serialized by a per-account
// lock; the repository's version stamp guards multi-instance deployments.
type Recorder struct {
	repo  domain.Repository
	goals *GoalTracker
	locks *KeyedMutex
	log   zerolog.Logger
}

// NewRecorder creates a Recorder. The keyed mutex is shared with the
// Allocation Engine and Cycle Manager so all account writers serialize
// on the same locks.
func NewRecorder(repo domain.Repository, goals *GoalTracker, locks *KeyedMutex, log zerolog.Logger) *Recorder {
	return &Recorder{repo: repo, goals: goals, locks: locks, log: log}
}

// Record applies one ledger operation to the account and appends the
// Transaction plus a human-readable Activity as a single atomic unit.
//
//   - earn: total and the named bucket grow by amount.
//   - spend: the named bucket and total shrink by amount; fails
//     InsufficientFunds when the bucket is short.
//   - transfer: amount moves into the named bucket from the other one;
//     total is unchanged; fails InsufficientFunds when the source is short.
//
// On any failure the account and ledger are left exactly as they were.
func (r *Recorder) Record(ctx context.Context, accountID string, kind domain.TxKind, amount int64, bucket domain.Bucket, description string, refs domain.TxRefs) (*domain.Account, *domain.Transaction, error) {
	if amount <= 0 {
		return nil, nil, fmt.Errorf("%w: amount must be positive, got %d", domain.ErrValidation, amount)
	}
	if !kind.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown transaction kind %q", domain.ErrValidation, kind)
	}
	if !bucket.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown bucket %q", domain.ErrValidation, bucket)
	}

	unlock := r.locks.Lock(accountID)
	defer unlock()

	var (
		account *domain.Account
		txn     domain.Transaction
		err     error
	)
	for attempt := 0; ; attempt++ {
		account, txn, err = r.apply(ctx, accountID, kind, amount, bucket, description, refs)
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			break
		}
		if attempt >= maxConflictRetries {
			break
		}
		observability.ConflictRetries.Inc()
		time.Sleep(conflictBackoff << attempt)
	}
	if err != nil {
		return nil, nil, err
	}

	observability.Transactions.WithLabelValues(string(kind), string(bucket)).Inc()
	r.log.Debug().
		Str("account", accountID).
		Str("kind", string(kind)).
		Str("bucket", string(bucket)).
		Int64("amount", amount).
		Msg("transaction recorded")

	// Goal progress mirrors the save bucket. The balance write is already
	// committed, so a failed mirror must not fail the transaction; the next
	// save-bucket change re-syncs the goal.
	if err := r.goals.OnSaveBucketChanged(ctx, accountID, account.SaveBucket); err != nil {
		r.log.Warn().Err(err).Str("account", accountID).Msg("goal sync failed")
	}
	return account, &txn, nil
}

func (r *Recorder) apply(ctx context.Context, accountID string, kind domain.TxKind, amount int64, bucket domain.Bucket, description string, refs domain.TxRefs) (*domain.Account, domain.Transaction, error) {
	account, err := r.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, domain.Transaction{}, err
	}

	switch kind {
	case domain.TxEarn:
		account.TotalCoins += amount
		if bucket == domain.BucketSave {
			account.SaveBucket += amount
		} else {
			account.SpendBucket += amount
		}

	case domain.TxSpend:
		if account.BucketBalance(bucket) < amount {
			return nil, domain.Transaction{}, fmt.Errorf("%w: %s bucket has %d, need %d",
				domain.ErrInsufficientFunds, bucket, account.BucketBalance(bucket), amount)
		}
		if bucket == domain.BucketSave {
			account.SaveBucket -= amount
		} else {
			account.SpendBucket -= amount
		}
		account.TotalCoins -= amount

	case domain.TxTransfer:
		source := domain.BucketSave
		if bucket == domain.BucketSave {
			source = domain.BucketSpend
		}
		if account.BucketBalance(source) < amount {
			return nil, domain.Transaction{}, fmt.Errorf("%w: %s bucket has %d, need %d",
				domain.ErrInsufficientFunds, source, account.BucketBalance(source), amount)
		}
		if bucket == domain.BucketSave {
			account.SaveBucket += amount
			account.SpendBucket -= amount
		} else {
			account.SpendBucket += amount
			account.SaveBucket -= amount
		}
	}

	now := time.Now()
	txn := domain.Transaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Kind:        kind,
		Bucket:      bucket,
		Amount:      amount,
		Description: description,
		TaskID:      refs.TaskID,
		StoreItemID: refs.StoreItemID,
		CycleID:     refs.CycleID,
		CreatedAt:   now,
	}
	act := domain.Activity{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      domain.ActivityTransaction,
		Message:   activityMessage(kind, amount, bucket, description),
		CreatedAt: now,
	}

	if err := r.repo.ApplyTransaction(ctx, account, txn, act); err != nil {
		return nil, domain.Transaction{}, err
	}
	return account, txn, nil
}

func activityMessage(kind domain.TxKind, amount int64, bucket domain.Bucket, description string) string {
	var msg string
	switch kind {
	case domain.TxEarn:
		msg = fmt.Sprintf("earned %d coins into %s", amount, bucket)
	case domain.TxSpend:
		msg = fmt.Sprintf("spent %d coins from %s", amount, bucket)
	case domain.TxTransfer:
		msg = fmt.Sprintf("moved %d coins into %s", amount, bucket)
	}
	if description != "" {
		msg += ": " + description
	}
	return msg
}
