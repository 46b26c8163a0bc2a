// Package cycles owns the accounting-cycle lifecycle: one Active cycle
// per class, weekly rotation, the roster-wide reset cascade, and the
// read-side cycle summaries.
package cycles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/classbank/classbank/internal/app/ledger"
	"github.com/classbank/classbank/internal/domain"
	"github.com/classbank/classbank/internal/infra/observability"
)

// Manager drives per-class cycle transitions. Balances are never touched
// here: a reset is a continuous-economy rollover, only cycle metadata and
// per-account reset stamps change.
type Manager struct {
	repo  domain.Repository
	locks *ledger.KeyedMutex
	log   zerolog.Logger
}

// NewManager creates a Manager sharing the account lock set with the
// ledger components.
func NewManager(repo domain.Repository, locks *ledger.KeyedMutex, log zerolog.Logger) *Manager {
	return &Manager{repo: repo, locks: locks, log: log}
}

// CreateCycle starts week 1 for a class that has no cycle yet.
func (m *Manager) CreateCycle(ctx context.Context, classID string) (*domain.Cycle, error) {
	if _, err := m.repo.ActiveCycle(ctx, classID); err == nil {
		return nil, fmt.Errorf("%w: class %s already has an active cycle", domain.ErrValidation, classID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	cycle := domain.Cycle{
		ID:         uuid.NewString(),
		ClassID:    classID,
		WeekNumber: 1,
		StartAt:    now,
		EndAt:      now.AddDate(0, 0, m.cycleLengthDays(ctx, classID)),
		Status:     domain.CycleActive,
	}
	if err := m.repo.CreateCycle(ctx, cycle); err != nil {
		return nil, err
	}

	m.log.Info().Str("class", classID).Str("cycle", cycle.ID).Msg("first cycle created")
	return &cycle, nil
}

// ResetCycle retires the class's active cycle and starts the next week,
// then cascades across the roster: every account gets its reset stamp
// and one cycle-reset activity. Account locks are taken one at a time;
// no two are ever held simultaneously.
func (m *Manager) ResetCycle(ctx context.Context, classID string) (retired, next *domain.Cycle, err error) {
	active, err := m.repo.ActiveCycle(ctx, classID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	newCycle := domain.Cycle{
		ID:         uuid.NewString(),
		ClassID:    classID,
		WeekNumber: active.WeekNumber + 1,
		StartAt:    now,
		EndAt:      now.AddDate(0, 0, m.cycleLengthDays(ctx, classID)),
		Status:     domain.CycleActive,
	}
	if err := m.repo.RotateCycle(ctx, active.ID, newCycle); err != nil {
		return nil, nil, err
	}
	active.Status = domain.CycleRetired

	// The rotation is already committed, so the cascade must not abort
	// halfway: a failed stamp is logged and the rest of the roster still
	// gets theirs.
	roster, err := m.repo.ListAccountsByClass(ctx, classID)
	if err != nil {
		return nil, nil, err
	}
	for i := range roster {
		if err := m.stampAccount(ctx, roster[i].ID, newCycle.WeekNumber, now); err != nil {
			m.log.Error().Err(err).Str("account", roster[i].ID).Msg("cycle reset stamp failed")
		}
	}

	observability.CycleResets.Inc()
	m.log.Info().
		Str("class", classID).
		Int("week", newCycle.WeekNumber).
		Int("accounts", len(roster)).
		Msg("cycle reset")
	return active, &newCycle, nil
}

// stampAccount updates one account's reset marker under its lock.
// Balances are left untouched.
func (m *Manager) stampAccount(ctx context.Context, accountID string, week int, at time.Time) error {
	unlock := m.locks.Lock(accountID)
	defer unlock()

	for attempt := 0; ; attempt++ {
		account, err := m.repo.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		account.LastCycleResetAt = at
		err = m.repo.UpdateAccount(ctx, account)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) || attempt >= 3 {
			return err
		}
	}

	return m.repo.AppendActivity(ctx, domain.Activity{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      domain.ActivityCycleReset,
		Message:   fmt.Sprintf("new week started: week %d", week),
		CreatedAt: at,
	})
}

// Summarize is a pure read-side projection of one account's ledger
// within one cycle. No mutation.
func (m *Manager) Summarize(ctx context.Context, cycleID, accountID string) (*domain.CycleSummary, error) {
	cycle, err := m.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	txs, err := m.repo.ListTransactionsByCycle(ctx, accountID, cycleID)
	if err != nil {
		return nil, err
	}

	summary := domain.CycleSummary{
		CycleID:    cycleID,
		AccountID:  accountID,
		WeekNumber: cycle.WeekNumber,
	}
	for _, tx := range txs {
		switch tx.Kind {
		case domain.TxEarn:
			summary.CoinsEarned += tx.Amount
			if tx.TaskID != "" {
				summary.TasksCompleted++
			}
		case domain.TxSpend:
			summary.CoinsSpent += tx.Amount
		}
	}
	summary.SaveRate = domain.SaveRate(summary.CoinsEarned, summary.CoinsSpent)

	goal, err := m.repo.GetGoalByAccount(ctx, accountID)
	if err == nil && goal.CompletedAt != nil {
		summary.GoalMet = cycle.Contains(*goal.CompletedAt)
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return &summary, nil
}

func (m *Manager) cycleLengthDays(ctx context.Context, classID string) int {
	policy, err := m.repo.GetPolicy(ctx, classID)
	if err != nil || policy.CycleLengthDays <= 0 {
		return domain.DefaultCycleLengthDays
	}
	return policy.CycleLengthDays
}
