package cycles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/classbank/classbank/internal/app/ledger"
	"github.com/classbank/classbank/internal/domain"
	"github.com/classbank/classbank/internal/infra/sqlite"
)

func newTestManager(t *testing.T) (*Manager, *ledger.Recorder, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	locks := ledger.NewKeyedMutex()
	log := zerolog.Nop()
	goals := ledger.NewGoalTracker(db, locks, log)
	recorder := ledger.NewRecorder(db, goals, locks, log)
	return NewManager(db, locks, log), recorder, db
}

func seedRoster(t *testing.T, db *sqlite.DB, classID string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		err := db.CreateAccount(context.Background(), domain.Account{
			ID: id, ClassID: classID, CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("seed account %s: %v", id, err)
		}
	}
}

func TestCreateCycle(t *testing.T) {
	mgr, _, db := newTestManager(t)
	ctx := context.Background()

	cycle, err := mgr.CreateCycle(ctx, "class-1")
	if err != nil {
		t.Fatalf("create cycle: %v", err)
	}
	if cycle.WeekNumber != 1 || cycle.Status != domain.CycleActive {
		t.Fatalf("first cycle: %+v", cycle)
	}
	if got := cycle.EndAt.Sub(cycle.StartAt); got != 7*24*time.Hour {
		t.Fatalf("default cycle length: %v", got)
	}

	// A second create while one is active is rejected.
	if _, err := mgr.CreateCycle(ctx, "class-1"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("duplicate create: want ErrValidation, got %v", err)
	}

	active, err := db.ActiveCycle(ctx, "class-1")
	if err != nil {
		t.Fatalf("active cycle: %v", err)
	}
	if active.ID != cycle.ID {
		t.Fatalf("active cycle id: want %s, got %s", cycle.ID, active.ID)
	}
}

func TestResetCyclePreservesBalances(t *testing.T) {
	mgr, recorder, db := newTestManager(t)
	ctx := context.Background()
	seedRoster(t, db, "class-1", "acc-1", "acc-2")

	if _, err := mgr.CreateCycle(ctx, "class-1"); err != nil {
		t.Fatalf("create cycle: %v", err)
	}
	if _, _, err := recorder.Record(ctx, "acc-1", domain.TxEarn, 40, domain.BucketSave, "", domain.TxRefs{}); err != nil {
		t.Fatalf("earn: %v", err)
	}
	if _, _, err := recorder.Record(ctx, "acc-2", domain.TxEarn, 25, domain.BucketSpend, "", domain.TxRefs{}); err != nil {
		t.Fatalf("earn: %v", err)
	}

	retired, next, err := mgr.ResetCycle(ctx, "class-1")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if retired.Status != domain.CycleRetired || next.WeekNumber != 2 || next.Status != domain.CycleActive {
		t.Fatalf("rotation: retired=%+v next=%+v", retired, next)
	}

	// The economy is continuous: balances survive the reset untouched.
	a1, _ := db.GetAccount(ctx, "acc-1")
	a2, _ := db.GetAccount(ctx, "acc-2")
	if a1.SaveBucket != 40 || a2.SpendBucket != 25 {
		t.Fatalf("reset touched balances: %+v %+v", a1, a2)
	}
	if a1.LastCycleResetAt.IsZero() || a2.LastCycleResetAt.IsZero() {
		t.Fatal("reset stamp missing")
	}

	// Each roster member gets one cycle-reset feed entry.
	for _, id := range []string{"acc-1", "acc-2"} {
		acts, err := db.ListActivity(ctx, id, 0)
		if err != nil {
			t.Fatalf("list activity: %v", err)
		}
		var resets int
		for _, act := range acts {
			if act.Kind == domain.ActivityCycleReset {
				resets++
			}
		}
		if resets != 1 {
			t.Fatalf("account %s: want 1 reset activity, got %d", id, resets)
		}
	}

	active, _ := db.ActiveCycle(ctx, "class-1")
	if active.ID != next.ID {
		t.Fatalf("active after reset: want %s, got %s", next.ID, active.ID)
	}
}

// stampFailRepo fails account writes for one chosen account so the reset
// cascade can be tested against a partial failure.
type stampFailRepo struct {
	*sqlite.DB
	failID string
}

func (r *stampFailRepo) UpdateAccount(ctx context.Context, a *domain.Account) error {
	if a.ID == r.failID {
		return errors.New("account store offline")
	}
	return r.DB.UpdateAccount(ctx, a)
}

func TestResetCycleSurvivesStampFailure(t *testing.T) {
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := &stampFailRepo{DB: db, failID: "acc-1"}
	mgr := NewManager(repo, ledger.NewKeyedMutex(), zerolog.Nop())
	ctx := context.Background()
	seedRoster(t, db, "class-1", "acc-1", "acc-2")

	if _, err := mgr.CreateCycle(ctx, "class-1"); err != nil {
		t.Fatalf("create cycle: %v", err)
	}

	// The rotation is committed before the roster cascade, so one account
	// refusing its stamp must not fail the reset or starve the others.
	retired, next, err := mgr.ResetCycle(ctx, "class-1")
	if err != nil {
		t.Fatalf("reset with failing stamp: %v", err)
	}
	if retired.Status != domain.CycleRetired || next.WeekNumber != 2 {
		t.Fatalf("rotation: retired=%+v next=%+v", retired, next)
	}
	active, _ := db.ActiveCycle(ctx, "class-1")
	if active.ID != next.ID {
		t.Fatalf("active after reset: want %s, got %s", next.ID, active.ID)
	}

	a1, _ := db.GetAccount(ctx, "acc-1")
	a2, _ := db.GetAccount(ctx, "acc-2")
	if !a1.LastCycleResetAt.IsZero() {
		t.Fatalf("failed stamp still landed: %+v", a1)
	}
	if a2.LastCycleResetAt.IsZero() {
		t.Fatal("healthy account missed its stamp")
	}

	// A week later the retried rotation moves to week 3, not past it.
	repo.failID = ""
	_, next, err = mgr.ResetCycle(ctx, "class-1")
	if err != nil {
		t.Fatalf("second reset: %v", err)
	}
	if next.WeekNumber != 3 {
		t.Fatalf("week after retry: %d", next.WeekNumber)
	}
	a1, _ = db.GetAccount(ctx, "acc-1")
	if a1.LastCycleResetAt.IsZero() {
		t.Fatal("recovered account still missing its stamp")
	}
}

func TestResetCycleWithoutActiveFails(t *testing.T) {
	mgr, _, db := newTestManager(t)
	seedRoster(t, db, "class-1", "acc-1")

	if _, _, err := mgr.ResetCycle(context.Background(), "class-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestResetUsesPolicyCycleLength(t *testing.T) {
	mgr, _, db := newTestManager(t)
	ctx := context.Background()

	err := db.PutPolicy(ctx, domain.ClassPolicy{
		ClassID: "class-1", StoreEnabled: true, CycleLengthDays: 14,
	})
	if err != nil {
		t.Fatalf("put policy: %v", err)
	}

	cycle, err := mgr.CreateCycle(ctx, "class-1")
	if err != nil {
		t.Fatalf("create cycle: %v", err)
	}
	if got := cycle.EndAt.Sub(cycle.StartAt); got != 14*24*time.Hour {
		t.Fatalf("cycle length: %v", got)
	}
}

func TestSummarize(t *testing.T) {
	mgr, recorder, db := newTestManager(t)
	ctx := context.Background()
	seedRoster(t, db, "class-1", "acc-1")

	cycle, err := mgr.CreateCycle(ctx, "class-1")
	if err != nil {
		t.Fatalf("create cycle: %v", err)
	}

	refs := domain.TxRefs{CycleID: cycle.ID}
	if _, _, err := recorder.Record(ctx, "acc-1", domain.TxEarn, 30, domain.BucketSave, "", domain.TxRefs{TaskID: "task-1", CycleID: cycle.ID}); err != nil {
		t.Fatalf("earn: %v", err)
	}
	if _, _, err := recorder.Record(ctx, "acc-1", domain.TxEarn, 10, domain.BucketSpend, "bonus", refs); err != nil {
		t.Fatalf("earn: %v", err)
	}
	if _, _, err := recorder.Record(ctx, "acc-1", domain.TxSpend, 10, domain.BucketSpend, "", refs); err != nil {
		t.Fatalf("spend: %v", err)
	}
	// A transaction outside the cycle must not count.
	if _, _, err := recorder.Record(ctx, "acc-1", domain.TxEarn, 99, domain.BucketSave, "", domain.TxRefs{}); err != nil {
		t.Fatalf("earn: %v", err)
	}

	sum, err := mgr.Summarize(ctx, cycle.ID, "acc-1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.CoinsEarned != 40 || sum.CoinsSpent != 10 {
		t.Fatalf("earned/spent: %d/%d", sum.CoinsEarned, sum.CoinsSpent)
	}
	if sum.TasksCompleted != 1 {
		t.Fatalf("tasks completed: %d", sum.TasksCompleted)
	}
	// 40 earned of 50 moved: 80%.
	if sum.SaveRate != 80 {
		t.Fatalf("save rate: %d", sum.SaveRate)
	}
	if sum.WeekNumber != 1 {
		t.Fatalf("week number: %d", sum.WeekNumber)
	}
}

func TestSummarizeGoalMet(t *testing.T) {
	mgr, _, db := newTestManager(t)
	ctx := context.Background()
	seedRoster(t, db, "class-1", "acc-1")

	cycle, err := mgr.CreateCycle(ctx, "class-1")
	if err != nil {
		t.Fatalf("create cycle: %v", err)
	}

	done := cycle.StartAt.Add(time.Hour)
	err = db.ReplaceGoal(ctx, domain.Goal{
		ID: "goal-1", AccountID: "acc-1", Name: "bike",
		TargetAmount: 10, CurrentAmount: 10, CompletedAt: &done, CreatedAt: cycle.StartAt,
	})
	if err != nil {
		t.Fatalf("seed goal: %v", err)
	}

	sum, err := mgr.Summarize(ctx, cycle.ID, "acc-1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !sum.GoalMet {
		t.Fatal("goal completed inside the window not reported")
	}

	// Completion outside the window does not count for this cycle.
	before := cycle.StartAt.Add(-time.Hour)
	err = db.ReplaceGoal(ctx, domain.Goal{
		ID: "goal-2", AccountID: "acc-1", Name: "older",
		TargetAmount: 10, CurrentAmount: 10, CompletedAt: &before, CreatedAt: before,
	})
	if err != nil {
		t.Fatalf("replace goal: %v", err)
	}
	sum, err = mgr.Summarize(ctx, cycle.ID, "acc-1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.GoalMet {
		t.Fatal("goal completed before the window wrongly reported")
	}
}
