package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/classbank/classbank/internal/domain"
)

// ─── Authentication ─────────────────────────────────────────────────────────
// Bearer tokens are HMAC-signed JWTs carrying the caller's identity:
// sub (student or teacher id), role, and class_id. The server never
// issues tokens; the school's SSO does.

type identityClaims struct {
	Role    string `json:"role"`
	ClassID string `json:"class_id"`
	jwt.RegisteredClaims
}

// authenticate verifies the bearer token and stores the caller identity
// in the request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"error": map[string]interface{}{
					"code":    "unauthorized",
					"message": "missing bearer token",
				},
			})
			return
		}

		claims := &identityClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.authSecret, nil
		})
		if err != nil || !token.Valid {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"error": map[string]interface{}{
					"code":    "unauthorized",
					"message": "invalid token",
				},
			})
			return
		}

		identity := domain.Identity{
			SubjectID: claims.Subject,
			Role:      domain.Role(claims.Role),
			ClassID:   claims.ClassID,
		}
		next.ServeHTTP(w, r.WithContext(domain.WithIdentity(r.Context(), identity)))
	})
}

// teacherOnly rejects callers without the teacher role.
func (s *Server) teacherOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := domain.IdentityFrom(r.Context())
		if !ok || !id.IsTeacher() {
			writeError(w, fmt.Errorf("%w: teacher role required", domain.ErrPolicyViolation))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAccountAccess lets teachers reach any account and students only
// their own.
func (s *Server) requireAccountAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := domain.IdentityFrom(r.Context())
		if !ok {
			writeError(w, fmt.Errorf("%w: no caller identity", domain.ErrPolicyViolation))
			return
		}
		accountID := chi.URLParam(r, "accountID")
		if !id.IsTeacher() && id.SubjectID != accountID {
			writeError(w, fmt.Errorf("%w: cannot act on another student's account", domain.ErrPolicyViolation))
			return
		}
		next.ServeHTTP(w, r)
	})
}
