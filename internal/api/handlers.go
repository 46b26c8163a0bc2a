package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/classbank/classbank/internal/domain"
)

// ─── Accounts ───────────────────────────────────────────────────────────────

// POST /api/v1/accounts
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID      string `json:"id"`
		ClassID string `json:"class_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ID == "" || req.ClassID == "" {
		writeError(w, fmt.Errorf("%w: id and class_id are required", domain.ErrValidation))
		return
	}

	account := domain.Account{
		ID:        req.ID,
		ClassID:   req.ClassID,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateAccount(r.Context(), account); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// GET /api/v1/accounts/{accountID}
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.repo.GetAccount(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// GET /api/v1/classes/{classID}/accounts
func (s *Server) handleListClassAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.repo.ListAccountsByClass(r.Context(), chi.URLParam(r, "classID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts})
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

// POST /api/v1/accounts/{accountID}/transactions
//
// Students may only move coins between their own buckets; earn and spend
// entries come from teachers (or internally from the store and reward
// flows).
func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind        string `json:"kind"`
		Amount      int64  `json:"amount"`
		Bucket      string `json:"bucket"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	kind := domain.TxKind(req.Kind)
	if id, ok := domain.IdentityFrom(r.Context()); ok && !id.IsTeacher() && kind != domain.TxTransfer {
		writeError(w, fmt.Errorf("%w: students may only transfer between buckets", domain.ErrPolicyViolation))
		return
	}

	accountID := chi.URLParam(r, "accountID")
	refs := domain.TxRefs{}
	if account, err := s.repo.GetAccount(r.Context(), accountID); err == nil {
		if cycle, err := s.repo.ActiveCycle(r.Context(), account.ClassID); err == nil {
			refs.CycleID = cycle.ID
		}
	}

	account, txn, err := s.recorder.Record(r.Context(), accountID, kind, req.Amount,
		domain.Bucket(req.Bucket), req.Description, refs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"account":     account,
		"transaction": txn,
	})
}

// GET /api/v1/accounts/{accountID}/transactions
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.repo.ListTransactions(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

// GET /api/v1/accounts/{accountID}/activity
func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, fmt.Errorf("%w: invalid limit %q", domain.ErrValidation, raw))
			return
		}
		limit = n
	}
	acts, err := s.repo.ListActivity(r.Context(), chi.URLParam(r, "accountID"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"activity": acts})
}

// POST /api/v1/accounts/{accountID}/allocate
func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Save  int64 `json:"save"`
		Spend int64 `json:"spend"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	account, err := s.allocator.Allocate(r.Context(), chi.URLParam(r, "accountID"), req.Save, req.Spend)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// ─── Goals ──────────────────────────────────────────────────────────────────

// PUT /api/v1/accounts/{accountID}/goal
func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name"`
		TargetAmount int64  `json:"target_amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	accountID := chi.URLParam(r, "accountID")
	goal, err := s.goals.SetGoal(r.Context(), accountID, req.Name, req.TargetAmount)
	if err != nil {
		writeError(w, err)
		return
	}
	account, err := s.repo.GetAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account": account,
		"goal":    goal,
	})
}

// GET /api/v1/accounts/{accountID}/goal
func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.repo.GetGoalByAccount(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"goal":         goal,
		"progress_pct": goal.ProgressPct(),
	})
}

// ─── Policy ─────────────────────────────────────────────────────────────────

// GET /api/v1/classes/{classID}/policy
func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "classID")
	policy, err := s.repo.GetPolicy(r.Context(), classID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

// PUT /api/v1/classes/{classID}/policy
func (s *Server) handlePutPolicy(w http.ResponseWriter, r *http.Request) {
	var policy domain.ClassPolicy
	if err := decodeJSON(r, &policy); err != nil {
		writeError(w, err)
		return
	}
	policy.ClassID = chi.URLParam(r, "classID")
	if err := policy.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := s.repo.PutPolicy(r.Context(), policy); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

// ─── Cycles ─────────────────────────────────────────────────────────────────

// POST /api/v1/classes/{classID}/cycles
func (s *Server) handleCreateCycle(w http.ResponseWriter, r *http.Request) {
	cycle, err := s.cycles.CreateCycle(r.Context(), chi.URLParam(r, "classID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cycle)
}

// POST /api/v1/cycles/{id}/reset  (id is a class id)
func (s *Server) handleResetCycle(w http.ResponseWriter, r *http.Request) {
	retired, next, err := s.cycles.ResetCycle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"retired_cycle": retired,
		"new_cycle":     next,
	})
}

// GET /api/v1/classes/{classID}/cycles/active
func (s *Server) handleActiveCycle(w http.ResponseWriter, r *http.Request) {
	cycle, err := s.repo.ActiveCycle(r.Context(), chi.URLParam(r, "classID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cycle)
}

// GET /api/v1/cycles/{id}/summary?account_id=...  (id is a cycle id)
func (s *Server) handleCycleSummary(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeError(w, fmt.Errorf("%w: account_id is required", domain.ErrValidation))
		return
	}
	if id, ok := domain.IdentityFrom(r.Context()); ok && !id.IsTeacher() && id.SubjectID != accountID {
		writeError(w, fmt.Errorf("%w: cannot view another student's summary", domain.ErrPolicyViolation))
		return
	}
	summary, err := s.cycles.Summarize(r.Context(), chi.URLParam(r, "id"), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ─── Store ──────────────────────────────────────────────────────────────────

// GET /api/v1/store/items
func (s *Server) handleListStoreItems(w http.ResponseWriter, r *http.Request) {
	id, _ := domain.IdentityFrom(r.Context())
	classID := id.ClassID
	if override := r.URL.Query().Get("class_id"); override != "" && id.IsTeacher() {
		classID = override
	}
	items, err := s.store.ListItems(r.Context(), classID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// PUT /api/v1/store/items
func (s *Server) handlePutStoreItem(w http.ResponseWriter, r *http.Request) {
	var item domain.StoreItem
	if err := decodeJSON(r, &item); err != nil {
		writeError(w, err)
		return
	}
	if item.Name == "" || item.Cost <= 0 {
		writeError(w, fmt.Errorf("%w: item needs a name and a positive cost", domain.ErrValidation))
		return
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if err := s.repo.PutItem(r.Context(), item); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// POST /api/v1/store/{itemID}/purchase
func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"account_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, _ := domain.IdentityFrom(r.Context())
	if req.AccountID == "" {
		req.AccountID = id.SubjectID
	}
	if !id.IsTeacher() && req.AccountID != id.SubjectID {
		writeError(w, fmt.Errorf("%w: cannot buy on another student's account", domain.ErrPolicyViolation))
		return
	}

	purchase, txn, account, err := s.store.Purchase(r.Context(), req.AccountID, chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"purchase":    purchase,
		"transaction": txn,
		"account":     account,
	})
}

// GET /api/v1/accounts/{accountID}/purchases
func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := s.repo.ListPurchases(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"purchases": purchases})
}

// ─── Tasks ──────────────────────────────────────────────────────────────────

// POST /api/v1/tasks
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClassID     string `json:"class_id"`
		Title       string `json:"title"`
		RewardCoins int64  `json:"reward_coins"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, _ := domain.IdentityFrom(r.Context())
	task, err := s.tasks.CreateTask(r.Context(), req.ClassID, req.Title, req.RewardCoins, id.SubjectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// POST /api/v1/tasks/{taskID}/submissions
func (s *Server) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"account_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id, _ := domain.IdentityFrom(r.Context())
	if req.AccountID == "" {
		req.AccountID = id.SubjectID
	}
	if !id.IsTeacher() && req.AccountID != id.SubjectID {
		writeError(w, fmt.Errorf("%w: cannot submit for another student", domain.ErrPolicyViolation))
		return
	}

	sub, err := s.tasks.Submit(r.Context(), chi.URLParam(r, "taskID"), req.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// POST /api/v1/tasks/{taskID}/submissions/{submissionID}/review
func (s *Server) handleReviewSubmission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decision string `json:"decision"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	submissionID := chi.URLParam(r, "submissionID")
	sub, err := s.repo.GetSubmission(r.Context(), submissionID)
	if err != nil {
		writeError(w, err)
		return
	}
	if sub.TaskID != chi.URLParam(r, "taskID") {
		writeError(w, fmt.Errorf("%w: submission does not belong to this task", domain.ErrNotFound))
		return
	}

	id, _ := domain.IdentityFrom(r.Context())
	reviewed, err := s.tasks.Review(r.Context(), submissionID, id.SubjectID,
		domain.ReviewDecision(req.Decision))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewed)
}
