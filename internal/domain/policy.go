package domain

import "fmt"

// ─── Class Policy ───────────────────────────────────────────────────────────

// ClassPolicy holds the teacher-configured economy rules for a class.
// Read by the Allocation Engine and the Store Gate.
type ClassPolicy struct {
	ClassID          string `json:"class_id"`
	StoreEnabled     bool   `json:"store_enabled"`
	StoreLocked      bool   `json:"store_locked"`
	AutoSplitEnabled bool   `json:"auto_split_enabled"`
	SaveRatio        int    `json:"save_ratio"`  // percent, 0–100
	SpendRatio       int    `json:"spend_ratio"` // percent, save+spend == 100
	MinSavePct       *int   `json:"min_save_pct,omitempty"`
	CycleLengthDays  int    `json:"cycle_length_days"`
}

// DefaultCycleLengthDays applies when a class has no explicit policy.
const DefaultCycleLengthDays = 7

// DefaultPolicy returns the policy a freshly created class starts with.
func DefaultPolicy(classID string) ClassPolicy {
	return ClassPolicy{
		ClassID:         classID,
		StoreEnabled:    true,
		SaveRatio:       50,
		SpendRatio:      50,
		CycleLengthDays: DefaultCycleLengthDays,
	}
}

// Validate checks the policy's internal consistency.
func (p ClassPolicy) Validate() error {
	if p.AutoSplitEnabled && p.SaveRatio+p.SpendRatio != 100 {
		return fmt.Errorf("%w: auto-split ratio must sum to 100, got %d/%d",
			ErrValidation, p.SaveRatio, p.SpendRatio)
	}
	if p.SaveRatio < 0 || p.SaveRatio > 100 || p.SpendRatio < 0 || p.SpendRatio > 100 {
		return fmt.Errorf("%w: ratio out of range", ErrValidation)
	}
	if p.MinSavePct != nil && (*p.MinSavePct < 0 || *p.MinSavePct > 100) {
		return fmt.Errorf("%w: min save percentage out of range: %d", ErrValidation, *p.MinSavePct)
	}
	if p.CycleLengthDays <= 0 {
		return fmt.Errorf("%w: cycle length must be positive, got %d", ErrValidation, p.CycleLengthDays)
	}
	return nil
}

// AutoSplit computes the save/spend split of total under the policy ratio.
// The save share is floored; the remainder is absorbed into spend so the
// two buckets always sum exactly to total.
func (p ClassPolicy) AutoSplit(total int64) (save, spend int64) {
	save = total * int64(p.SaveRatio) / 100
	spend = total - save
	return save, spend
}

// CheckManualSplit validates a caller-requested split against the policy.
// The requested amounts may not exceed total, and when a minimum save
// percentage is configured the requested save share must meet it. A zero
// denominator counts as violating unless the minimum itself is zero.
func (p ClassPolicy) CheckManualSplit(requestedSave, requestedSpend, total int64) error {
	if requestedSave < 0 || requestedSpend < 0 {
		return fmt.Errorf("%w: bucket amounts must not be negative", ErrValidation)
	}
	if requestedSave+requestedSpend > total {
		return fmt.Errorf("%w: requested split %d+%d exceeds balance %d",
			ErrPolicyViolation, requestedSave, requestedSpend, total)
	}
	if p.MinSavePct != nil {
		min := int64(*p.MinSavePct)
		denom := requestedSave + requestedSpend
		if denom == 0 {
			if min != 0 {
				return fmt.Errorf("%w: save share below class minimum of %d%%", ErrPolicyViolation, min)
			}
			return nil
		}
		if requestedSave*100 < min*denom {
			return fmt.Errorf("%w: save share below class minimum of %d%%", ErrPolicyViolation, min)
		}
	}
	return nil
}
