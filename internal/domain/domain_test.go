package domain

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testContext() context.Context { return context.Background() }

// ─── Policy Tests ───────────────────────────────────────────────────────────

func TestClassPolicy_AutoSplit(t *testing.T) {
	tests := []struct {
		name      string
		saveRatio int
		total     int64
		wantSave  int64
		wantSpend int64
	}{
		{"60/40 of 25 floors the save share", 60, 25, 15, 10},
		{"50/50 of 11 gives remainder to spend", 50, 11, 5, 6},
		{"100 percent save", 100, 40, 40, 0},
		{"zero percent save", 0, 40, 0, 40},
		{"zero balance", 60, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ClassPolicy{AutoSplitEnabled: true, SaveRatio: tt.saveRatio, SpendRatio: 100 - tt.saveRatio}
			save, spend := p.AutoSplit(tt.total)
			if save != tt.wantSave || spend != tt.wantSpend {
				t.Errorf("AutoSplit(%d) = (%d, %d), want (%d, %d)",
					tt.total, save, spend, tt.wantSave, tt.wantSpend)
			}
			if save+spend != tt.total {
				t.Errorf("buckets %d+%d do not sum to total %d", save, spend, tt.total)
			}
		})
	}
}

func TestClassPolicy_CheckManualSplit(t *testing.T) {
	min20 := 20
	min0 := 0

	tests := []struct {
		name    string
		policy  ClassPolicy
		save    int64
		spend   int64
		total   int64
		wantErr error
	}{
		{"within balance no minimum", ClassPolicy{}, 4, 6, 10, nil},
		{"exceeds balance", ClassPolicy{}, 7, 6, 10, ErrPolicyViolation},
		{"negative save", ClassPolicy{}, -1, 5, 10, ErrValidation},
		{"min save met", ClassPolicy{MinSavePct: &min20}, 2, 8, 10, nil},
		{"min save violated", ClassPolicy{MinSavePct: &min20}, 1, 9, 10, ErrPolicyViolation},
		{"zero denominator violates minimum", ClassPolicy{MinSavePct: &min20}, 0, 0, 10, ErrPolicyViolation},
		{"zero denominator allowed when minimum is zero", ClassPolicy{MinSavePct: &min0}, 0, 0, 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.CheckManualSplit(tt.save, tt.spend, tt.total)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("CheckManualSplit() error: %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckManualSplit() error: %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClassPolicy_Validate(t *testing.T) {
	bad := -5
	tests := []struct {
		name    string
		policy  ClassPolicy
		wantErr bool
	}{
		{"default is valid", DefaultPolicy("class-1"), false},
		{"auto split must sum to 100", ClassPolicy{AutoSplitEnabled: true, SaveRatio: 60, SpendRatio: 50, CycleLengthDays: 7}, true},
		{"min save out of range", ClassPolicy{SaveRatio: 50, SpendRatio: 50, MinSavePct: &bad, CycleLengthDays: 7}, true},
		{"zero cycle length", ClassPolicy{SaveRatio: 50, SpendRatio: 50}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error: %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// ─── Account Tests ──────────────────────────────────────────────────────────

func TestAccount_Balanced(t *testing.T) {
	a := Account{TotalCoins: 25, SaveBucket: 15, SpendBucket: 10}
	if !a.Balanced() {
		t.Error("Balanced() = false, want true")
	}
	a.SpendBucket = 11
	if a.Balanced() {
		t.Error("Balanced() = true after drift, want false")
	}
}

func TestAccount_BucketBalance(t *testing.T) {
	a := Account{SaveBucket: 15, SpendBucket: 10}
	if got := a.BucketBalance(BucketSave); got != 15 {
		t.Errorf("BucketBalance(save) = %d, want 15", got)
	}
	if got := a.BucketBalance(BucketSpend); got != 10 {
		t.Errorf("BucketBalance(spend) = %d, want 10", got)
	}
}

// ─── Cycle Tests ────────────────────────────────────────────────────────────

func TestSaveRate(t *testing.T) {
	tests := []struct {
		earned int64
		spent  int64
		want   int
	}{
		{0, 0, 0},
		{10, 0, 100},
		{0, 10, 0},
		{10, 10, 50},
		{2, 1, 67}, // rounds 66.67 up
		{1, 2, 33},
	}
	for _, tt := range tests {
		if got := SaveRate(tt.earned, tt.spent); got != tt.want {
			t.Errorf("SaveRate(%d, %d) = %d, want %d", tt.earned, tt.spent, got, tt.want)
		}
	}
}

func TestCycle_Contains(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	c := Cycle{StartAt: start, EndAt: start.AddDate(0, 0, 7)}

	if !c.Contains(start.AddDate(0, 0, 3)) {
		t.Error("Contains(mid-window) = false, want true")
	}
	if c.Contains(start.Add(-time.Hour)) {
		t.Error("Contains(before start) = true, want false")
	}
	if c.Contains(start.AddDate(0, 0, 8)) {
		t.Error("Contains(after end) = true, want false")
	}
}

func TestCycle_Overdue(t *testing.T) {
	now := time.Now()
	c := Cycle{Status: CycleActive, EndAt: now.Add(-time.Hour)}
	if !c.Overdue(now) {
		t.Error("Overdue() = false for past end, want true")
	}
	c.Status = CycleRetired
	if c.Overdue(now) {
		t.Error("retired cycle should never be overdue")
	}
}

// ─── Goal Tests ─────────────────────────────────────────────────────────────

func TestGoal_ProgressPct(t *testing.T) {
	tests := []struct {
		current int64
		target  int64
		want    int
	}{
		{0, 50, 0},
		{25, 50, 50},
		{50, 50, 100},
		{75, 50, 100}, // capped
		{10, 0, 0},    // degenerate target
	}
	for _, tt := range tests {
		g := Goal{CurrentAmount: tt.current, TargetAmount: tt.target}
		if got := g.ProgressPct(); got != tt.want {
			t.Errorf("ProgressPct() with %d/%d = %d, want %d", tt.current, tt.target, got, tt.want)
		}
	}
}

func TestGoal_Reached(t *testing.T) {
	g := Goal{CurrentAmount: 45, TargetAmount: 50}
	if g.Reached() {
		t.Error("Reached() = true below target")
	}
	g.CurrentAmount = 55
	if !g.Reached() {
		t.Error("Reached() = false above target")
	}
	if g.Completed() {
		t.Error("Completed() = true without CompletedAt")
	}
}

// ─── Error Tests ────────────────────────────────────────────────────────────

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrValidation, "validation_error"},
		{ErrNotFound, "not_found"},
		{ErrInsufficientFunds, "insufficient_funds"},
		{ErrPolicyViolation, "policy_violation"},
		{ErrAlreadyCompleted, "already_completed"},
		{ErrConcurrencyConflict, "concurrency_conflict"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.want {
				t.Errorf("ErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorCode_Wrapped(t *testing.T) {
	wrapped := errorsJoin()
	if got := ErrorCode(wrapped); got != "insufficient_funds" {
		t.Errorf("ErrorCode(wrapped) = %q, want insufficient_funds", got)
	}
}

func errorsJoin() error {
	return &wrapErr{inner: ErrInsufficientFunds}
}

type wrapErr struct{ inner error }

func (w *wrapErr) Error() string { return "spend bucket short: " + w.inner.Error() }
func (w *wrapErr) Unwrap() error { return w.inner }

// ─── Identity Tests ─────────────────────────────────────────────────────────

func TestIdentityContext(t *testing.T) {
	id := Identity{SubjectID: "stu-1", Role: RoleStudent, ClassID: "class-1"}
	ctx := WithIdentity(testContext(), id)

	got, ok := IdentityFrom(ctx)
	if !ok {
		t.Fatal("IdentityFrom() not found")
	}
	if got != id {
		t.Errorf("IdentityFrom() = %+v, want %+v", got, id)
	}
	if got.IsTeacher() {
		t.Error("student identity reports IsTeacher")
	}

	if _, ok := IdentityFrom(testContext()); ok {
		t.Error("IdentityFrom(empty) found an identity")
	}
}
