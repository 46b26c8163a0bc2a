// Package shop implements the Store Gate: the only path through which
// coins leave the economy for goods. Every purchase is screened against
// the class policy before any money moves.
package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/classbank/classbank/internal/app/ledger"
	"github.com/classbank/classbank/internal/domain"
	"github.com/classbank/classbank/internal/infra/observability"
)

// Gate screens purchases and, when they pass, debits the spend bucket
// through the Transaction Recorder and writes the receipt.
type Gate struct {
	repo     domain.Repository
	recorder *ledger.Recorder
	log      zerolog.Logger
}

// NewGate creates a Gate.
func NewGate(repo domain.Repository, recorder *ledger.Recorder, log zerolog.Logger) *Gate {
	return &Gate{repo: repo, recorder: recorder, log: log}
}

// Purchase buys itemID for the account. Preconditions are checked in
// order; the first failure wins and nothing is debited:
//
//  1. the item exists and is available
//  2. the class store is enabled
//  3. a locked store blocks accounts with an unfinished goal; accounts
//     with no goal, or a completed one, pass
//  4. a class-scoped item is only sold to that class
//  5. the spend bucket covers the cost
//
// The receipt, the ledger entry, and the debited account come back
// together.
func (g *Gate) Purchase(ctx context.Context, accountID, itemID string) (*domain.Purchase, *domain.Transaction, *domain.Account, error) {
	item, err := g.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, nil, nil, g.reject("item_not_found", err)
	}
	if !item.IsAvailable {
		return nil, nil, nil, g.reject("item_unavailable", fmt.Errorf("%w: item %q is not available", domain.ErrNotFound, item.Name))
	}

	account, err := g.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, nil, nil, err
	}

	policy := g.policyFor(ctx, account.ClassID)
	if !policy.StoreEnabled {
		return nil, nil, nil, g.reject("store_disabled", fmt.Errorf("%w: the class store is disabled", domain.ErrPolicyViolation))
	}
	if policy.StoreLocked {
		if blocked, err := g.blockedByGoal(ctx, accountID); err != nil {
			return nil, nil, nil, err
		} else if blocked {
			return nil, nil, nil, g.reject("goal_incomplete", fmt.Errorf("%w: the store is locked until your savings goal is reached", domain.ErrPolicyViolation))
		}
	}
	if item.ClassID != "" && item.ClassID != account.ClassID {
		return nil, nil, nil, g.reject("wrong_class", fmt.Errorf("%w: item %q is not sold to this class", domain.ErrPolicyViolation, item.Name))
	}
	if account.SpendBucket < item.Cost {
		return nil, nil, nil, g.reject("insufficient_funds", fmt.Errorf("%w: spend bucket has %d, item costs %d",
			domain.ErrInsufficientFunds, account.SpendBucket, item.Cost))
	}

	cycleID := ""
	if cycle, err := g.repo.ActiveCycle(ctx, account.ClassID); err == nil {
		cycleID = cycle.ID
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, nil, err
	}

	account, txn, err := g.recorder.Record(ctx, accountID, domain.TxSpend, item.Cost, domain.BucketSpend,
		fmt.Sprintf("bought %s", item.Name),
		domain.TxRefs{StoreItemID: item.ID, CycleID: cycleID})
	if err != nil {
		// The gate pre-checked the balance without the account lock, so a
		// concurrent spend can still surface here.
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return nil, nil, nil, g.reject("insufficient_funds", err)
		}
		return nil, nil, nil, err
	}

	purchase := domain.Purchase{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		StoreItemID: item.ID,
		Cost:        item.Cost,
		CycleID:     cycleID,
		CreatedAt:   txn.CreatedAt,
	}
	if err := g.repo.CreatePurchase(ctx, purchase); err != nil {
		return nil, nil, nil, err
	}

	observability.Purchases.Inc()
	g.log.Info().
		Str("account", accountID).
		Str("item", item.Name).
		Int64("cost", item.Cost).
		Msg("purchase completed")
	return &purchase, txn, account, nil
}

// ListItems returns the catalog visible to the class: its own items plus
// global ones, available only.
func (g *Gate) ListItems(ctx context.Context, classID string) ([]domain.StoreItem, error) {
	return g.repo.ListItemsForClass(ctx, classID)
}

// blockedByGoal reports whether a locked store should turn the account
// away. Only an unfinished goal blocks.
func (g *Gate) blockedByGoal(ctx context.Context, accountID string) (bool, error) {
	goal, err := g.repo.GetGoalByAccount(ctx, accountID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !goal.Completed(), nil
}

func (g *Gate) policyFor(ctx context.Context, classID string) domain.ClassPolicy {
	policy, err := g.repo.GetPolicy(ctx, classID)
	if err != nil {
		return domain.DefaultPolicy(classID)
	}
	return *policy
}

func (g *Gate) reject(reason string, err error) error {
	observability.PurchaseRejections.WithLabelValues(reason).Inc()
	return err
}
