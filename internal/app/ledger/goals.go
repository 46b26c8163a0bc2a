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

// GoalTracker keeps each account's savings goal in sync with its save
// bucket and detects completion. Goal progress is never set by callers
// directly.
type GoalTracker struct {
	repo  domain.Repository
	locks *KeyedMutex
	log   zerolog.Logger
}

// NewGoalTracker creates a GoalTracker.
func NewGoalTracker(repo domain.Repository, locks *KeyedMutex, log zerolog.Logger) *GoalTracker {
	return &GoalTracker{repo: repo, locks: locks, log: log}
}

// SetGoal replaces the account's goal with a fresh one. Progress starts
// at the current save bucket and the completion check runs immediately,
// so a goal set below the existing savings completes on the spot. Prior
// goal history is not retained.
func (g *GoalTracker) SetGoal(ctx context.Context, accountID, name string, targetAmount int64) (*domain.Goal, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: goal name is required", domain.ErrValidation)
	}
	if targetAmount <= 0 {
		return nil, fmt.Errorf("%w: goal target must be positive, got %d", domain.ErrValidation, targetAmount)
	}

	unlock := g.locks.Lock(accountID)
	defer unlock()

	account, err := g.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	goal := domain.Goal{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		Name:          name,
		TargetAmount:  targetAmount,
		CurrentAmount: account.SaveBucket,
		CreatedAt:     time.Now(),
	}
	if err := g.repo.ReplaceGoal(ctx, goal); err != nil {
		return nil, err
	}

	account.CurrentGoalID = goal.ID
	if err := g.repo.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}

	if err := g.checkCompletion(ctx, &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

// OnSaveBucketChanged mirrors the new save bucket into the account's goal
// and marks completion the first time the target is reached. Accounts
// without a goal are a no-op.
func (g *GoalTracker) OnSaveBucketChanged(ctx context.Context, accountID string, newSaveBucket int64) error {
	goal, err := g.repo.GetGoalByAccount(ctx, accountID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	goal.CurrentAmount = newSaveBucket
	return g.checkCompletion(ctx, goal)
}

// checkCompletion persists the goal's progress and stamps completion
// exactly once, emitting the goal-reached activity.
func (g *GoalTracker) checkCompletion(ctx context.Context, goal *domain.Goal) error {
	completing := goal.Reached() && !goal.Completed()
	if completing {
		now := time.Now()
		goal.CompletedAt = &now
	}
	if err := g.repo.UpdateGoal(ctx, goal); err != nil {
		return err
	}
	if !completing {
		return nil
	}

	act := domain.Activity{
		ID:        uuid.NewString(),
		AccountID: goal.AccountID,
		Kind:      domain.ActivityGoalReached,
		Message:   fmt.Sprintf("goal %q reached with %d coins saved", goal.Name, goal.CurrentAmount),
		CreatedAt: *goal.CompletedAt,
	}
	if err := g.repo.AppendActivity(ctx, act); err != nil {
		return err
	}

	observability.GoalCompletions.Inc()
	g.log.Info().
		Str("account", goal.AccountID).
		Str("goal", goal.Name).
		Int64("target", goal.TargetAmount).
		Msg("savings goal reached")
	return nil
}
