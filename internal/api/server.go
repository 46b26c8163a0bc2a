// Package api provides the HTTP server for ClassBank.
// It exposes the classroom economy REST API: accounts, the coin ledger,
// allocation, goals, cycles, the store, and task rewards.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/classbank/classbank/internal/app/cycles"
	"github.com/classbank/classbank/internal/app/ledger"
	"github.com/classbank/classbank/internal/app/rewards"
	"github.com/classbank/classbank/internal/app/shop"
	"github.com/classbank/classbank/internal/domain"
)

// Server is the ClassBank HTTP API server.
type Server struct {
	repo      domain.Repository
	recorder  *ledger.Recorder
	allocator *ledger.Allocator
	goals     *ledger.GoalTracker
	cycles    *cycles.Manager
	store     *shop.Gate
	tasks     *rewards.Gate

	authSecret     []byte
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(repo domain.Repository, recorder *ledger.Recorder, allocator *ledger.Allocator,
	goals *ledger.GoalTracker, cycleMgr *cycles.Manager, store *shop.Gate, tasks *rewards.Gate,
	authSecret []byte) *Server {
	return &Server{
		repo:       repo,
		recorder:   recorder,
		allocator:  allocator,
		goals:      goals,
		cycles:     cycleMgr,
		store:      store,
		tasks:      tasks,
		authSecret: authSecret,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/accounts", func(r chi.Router) {
			r.With(s.teacherOnly).Post("/", s.handleCreateAccount)
			r.Route("/{accountID}", func(r chi.Router) {
				r.Use(s.requireAccountAccess)
				r.Get("/", s.handleGetAccount)
				r.Post("/transactions", s.handleRecordTransaction)
				r.Get("/transactions", s.handleListTransactions)
				r.Get("/activity", s.handleListActivity)
				r.Post("/allocate", s.handleAllocate)
				r.Put("/goal", s.handleSetGoal)
				r.Get("/goal", s.handleGetGoal)
				r.Get("/purchases", s.handleListPurchases)
			})
		})

		r.Route("/classes/{classID}", func(r chi.Router) {
			r.With(s.teacherOnly).Get("/accounts", s.handleListClassAccounts)
			r.Get("/policy", s.handleGetPolicy)
			r.With(s.teacherOnly).Put("/policy", s.handlePutPolicy)
			r.With(s.teacherOnly).Post("/cycles", s.handleCreateCycle)
			r.Get("/cycles/active", s.handleActiveCycle)
		})

		// The {id} wildcard carries a class id for reset and a cycle id
		// for summary.
		r.Route("/cycles/{id}", func(r chi.Router) {
			r.With(s.teacherOnly).Post("/reset", s.handleResetCycle)
			r.Get("/summary", s.handleCycleSummary)
		})

		r.Route("/store", func(r chi.Router) {
			r.Get("/items", s.handleListStoreItems)
			r.With(s.teacherOnly).Put("/items", s.handlePutStoreItem)
			r.Post("/{itemID}/purchase", s.handlePurchase)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.With(s.teacherOnly).Post("/", s.handleCreateTask)
			r.Post("/{taskID}/submissions", s.handleSubmitTask)
			r.With(s.teacherOnly).Post("/{taskID}/submissions/{submissionID}/review", s.handleReviewSubmission)
		})
	})

	return r
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response with the domain error code.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]interface{}{
		"error": map[string]interface{}{
			"code":    domain.ErrorCode(err),
			"message": err.Error(),
		},
	})
}

// statusFor maps domain sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPolicyViolation):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyCompleted), errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON parses a request body into v, surfacing malformed input as a
// validation error.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrValidation
	}
	return nil
}

// corsMiddleware adds CORS headers for the classroom web client.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
