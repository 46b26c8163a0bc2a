// Package rewards implements the task-reward flow: students submit
// completed tasks, teachers review them, and an approval credits the
// reward exactly once through the Transaction Recorder.
package rewards

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

// Gate owns task submissions and their review outcomes. Coins are
// credited only on approval and only once per task per account.
type Gate struct {
	repo     domain.Repository
	recorder *ledger.Recorder
	log      zerolog.Logger
}

// NewGate creates a Gate.
func NewGate(repo domain.Repository, recorder *ledger.Recorder, log zerolog.Logger) *Gate {
	return &Gate{repo: repo, recorder: recorder, log: log}
}

// CreateTask posts a rewardable task for a class.
func (g *Gate) CreateTask(ctx context.Context, classID, title string, rewardCoins int64, createdBy string) (*domain.Task, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: task title is required", domain.ErrValidation)
	}
	if rewardCoins <= 0 {
		return nil, fmt.Errorf("%w: reward must be positive, got %d", domain.ErrValidation, rewardCoins)
	}

	task := domain.Task{
		ID:          uuid.NewString(),
		ClassID:     classID,
		Title:       title,
		RewardCoins: rewardCoins,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now(),
	}
	if err := g.repo.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Submit records a student's claim of completing a task. A task already
// approved for the account cannot be submitted again; a returned
// submission can.
func (g *Gate) Submit(ctx context.Context, taskID, accountID string) (*domain.TaskSubmission, error) {
	task, err := g.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	account, err := g.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if task.ClassID != account.ClassID {
		return nil, fmt.Errorf("%w: task %q belongs to another class", domain.ErrPolicyViolation, task.Title)
	}

	if err := g.guardUnrewarded(ctx, taskID, accountID, task.Title); err != nil {
		return nil, err
	}

	sub := domain.TaskSubmission{
		ID:          uuid.NewString(),
		TaskID:      taskID,
		AccountID:   accountID,
		Status:      domain.SubmissionSubmitted,
		SubmittedAt: time.Now(),
	}
	if err := g.repo.CreateSubmission(ctx, sub); err != nil {
		return nil, err
	}

	g.log.Debug().Str("task", taskID).Str("account", accountID).Msg("task submitted")
	return &sub, nil
}

// Review settles a pending submission. Approval credits the reward into
// the save bucket; returning it has no monetary effect and leaves the
// student free to resubmit. A submission can be reviewed once, and a
// task can be approved at most once per account even across separate
// submissions.
//
// The credit lands before the submission flips to approved. A failed
// credit leaves the submission pending and re-reviewable; once the
// ledger entry exists the ledger-backed guard blocks a second payout
// even if the status write itself failed.
func (g *Gate) Review(ctx context.Context, submissionID, reviewerID string, decision domain.ReviewDecision) (*domain.TaskSubmission, error) {
	if !decision.Valid() {
		return nil, fmt.Errorf("%w: unknown review decision %q", domain.ErrValidation, decision)
	}

	sub, err := g.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != domain.SubmissionSubmitted {
		return nil, fmt.Errorf("%w: submission was already reviewed as %s", domain.ErrAlreadyCompleted, sub.Status)
	}

	task, err := g.repo.GetTask(ctx, sub.TaskID)
	if err != nil {
		return nil, err
	}

	if decision == domain.DecisionApproved {
		// Another submission of the same task may have settled while this
		// one sat in the queue.
		if err := g.guardUnrewarded(ctx, sub.TaskID, sub.AccountID, task.Title); err != nil {
			return nil, err
		}

		cycleID := ""
		account, err := g.repo.GetAccount(ctx, sub.AccountID)
		if err != nil {
			return nil, err
		}
		if cycle, err := g.repo.ActiveCycle(ctx, account.ClassID); err == nil {
			cycleID = cycle.ID
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}

		_, _, err = g.recorder.Record(ctx, sub.AccountID, domain.TxEarn, task.RewardCoins, domain.BucketSave,
			fmt.Sprintf("completed task: %s", task.Title),
			domain.TxRefs{TaskID: task.ID, CycleID: cycleID})
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	sub.ReviewedBy = reviewerID
	sub.ReviewedAt = &now
	switch decision {
	case domain.DecisionApproved:
		sub.Status = domain.SubmissionApproved
	case domain.DecisionReturned:
		sub.Status = domain.SubmissionReturned
	}
	if err := g.repo.UpdateSubmission(ctx, sub); err != nil {
		return nil, err
	}

	observability.Reviews.WithLabelValues(string(decision)).Inc()
	g.log.Info().
		Str("submission", submissionID).
		Str("task", task.Title).
		Str("decision", string(decision)).
		Msg("submission reviewed")
	return sub, nil
}

// guardUnrewarded fails with AlreadyCompleted when the task has already
// paid out to the account, checking both the submission log and the
// ledger itself.
func (g *Gate) guardUnrewarded(ctx context.Context, taskID, accountID, title string) error {
	approved, err := g.repo.HasApprovedSubmission(ctx, taskID, accountID)
	if err != nil {
		return err
	}
	if !approved {
		rewarded, err := g.repo.HasTaskReward(ctx, accountID, taskID)
		if err != nil {
			return err
		}
		approved = rewarded
	}
	if approved {
		return fmt.Errorf("%w: task %q was already rewarded", domain.ErrAlreadyCompleted, title)
	}
	return nil
}
