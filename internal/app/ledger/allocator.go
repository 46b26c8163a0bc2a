package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/classbank/classbank/internal/domain"
	"github.com/classbank/classbank/internal/infra/observability"
)

// Allocator computes and applies the save/spend split of an account's
// balance under its class policy. Both branches keep the two buckets
// summing exactly to the total.
type Allocator struct {
	repo  domain.Repository
	goals *GoalTracker
	locks *KeyedMutex
	log   zerolog.Logger
}

// NewAllocator creates an Allocator sharing the account lock set.
func NewAllocator(repo domain.Repository, goals *GoalTracker, locks *KeyedMutex, log zerolog.Logger) *Allocator {
	return &Allocator{repo: repo, goals: goals, locks: locks, log: log}
}

// Allocate splits the account's total between buckets.
//
// With auto-split enabled the requested values are ignored and the policy
// ratio applies, save share floored, remainder absorbed into spend.
// Otherwise the requested split is validated against the balance and the
// class minimum-save percentage; the save bucket gets exactly the
// requested amount and spend absorbs the rest of the total.
func (al *Allocator) Allocate(ctx context.Context, accountID string, requestedSave, requestedSpend int64) (*domain.Account, error) {
	if requestedSave < 0 || requestedSpend < 0 {
		return nil, fmt.Errorf("%w: bucket amounts must not be negative", domain.ErrValidation)
	}

	unlock := al.locks.Lock(accountID)
	defer unlock()

	var (
		account *domain.Account
		err     error
	)
	for attempt := 0; ; attempt++ {
		account, err = al.apply(ctx, accountID, requestedSave, requestedSpend)
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
		return nil, err
	}

	// The split is already persisted; a failed goal mirror only delays
	// progress until the next save-bucket change.
	if err := al.goals.OnSaveBucketChanged(ctx, accountID, account.SaveBucket); err != nil {
		al.log.Warn().Err(err).Str("account", accountID).Msg("goal sync failed")
	}
	return account, nil
}

func (al *Allocator) apply(ctx context.Context, accountID string, requestedSave, requestedSpend int64) (*domain.Account, error) {
	account, err := al.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	policy, err := al.policyFor(ctx, account.ClassID)
	if err != nil {
		return nil, err
	}

	var save, spend int64
	mode := "manual"
	if policy.AutoSplitEnabled {
		mode = "auto"
		save, spend = policy.AutoSplit(account.TotalCoins)
	} else {
		if err := policy.CheckManualSplit(requestedSave, requestedSpend, account.TotalCoins); err != nil {
			return nil, err
		}
		save = requestedSave
		spend = account.TotalCoins - requestedSave
	}

	account.SaveBucket = save
	account.SpendBucket = spend
	if err := al.repo.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}

	observability.Allocations.WithLabelValues(mode).Inc()
	al.log.Debug().
		Str("account", accountID).
		Str("mode", mode).
		Int64("save", save).
		Int64("spend", spend).
		Msg("balance allocated")
	return account, nil
}

// policyFor loads the class policy, falling back to defaults for classes
// whose teacher has not configured one yet.
func (al *Allocator) policyFor(ctx context.Context, classID string) (*domain.ClassPolicy, error) {
	policy, err := al.repo.GetPolicy(ctx, classID)
	if errors.Is(err, domain.ErrNotFound) {
		p := domain.DefaultPolicy(classID)
		return &p, nil
	}
	return policy, err
}
