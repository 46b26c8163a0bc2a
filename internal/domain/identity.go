package domain

import "context"

// ─── Identity ───────────────────────────────────────────────────────────────
// The identity provider supplies (subjectId, role, classId) as an opaque,
// pre-validated claim. The ledger trusts it and never re-derives the role.

// Role is the caller's role claim.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Identity is the authenticated caller, passed explicitly through context
// rather than read from shared middleware state.
type Identity struct {
	SubjectID string `json:"subject_id"`
	Role      Role   `json:"role"`
	ClassID   string `json:"class_id"`
}

// IsTeacher reports whether the caller holds the teacher role.
func (id Identity) IsTeacher() bool {
	return id.Role == RoleTeacher
}

type identityKey struct{}

// WithIdentity returns a context carrying the caller's identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom extracts the caller's identity from ctx.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
