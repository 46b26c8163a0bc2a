package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Components wrap
// them with %w so callers can match with errors.Is.

var (
	// ErrValidation marks malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown entity id.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientFunds marks an underfunded bucket or store purchase.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrPolicyViolation marks a business-rule rejection: min-save share,
	// locked store, class-scope mismatch. An outcome, not a bug.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrAlreadyCompleted marks a duplicate approval or completion.
	ErrAlreadyCompleted = errors.New("already completed")

	// ErrConcurrencyConflict marks version contention on an Account or
	// Cycle record. Retried internally before surfacing.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// ErrorCode returns the machine-readable code for a domain error, or
// "internal" when the error does not match the taxonomy.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrPolicyViolation):
		return "policy_violation"
	case errors.Is(err, ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	default:
		return "internal"
	}
}
