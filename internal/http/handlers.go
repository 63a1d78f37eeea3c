package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/period"
	"fintrack/internal/query"
)

const recentCount = 5

// transactionRequest is the create payload. The amount is a decimal
// string ("12.34"); amount_cents takes precedence when supplied.
type transactionRequest struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	AmountCents *int64 `json:"amount_cents"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// transactionPatch is the update payload; absent fields keep their prior
// values.
type transactionPatch struct {
	Type        *string `json:"type"`
	Amount      *string `json:"amount"`
	AmountCents *int64  `json:"amount_cents"`
	Date        *string `json:"date"`
	Time        *string `json:"time"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	criteria := query.Criteria{
		Category: r.URL.Query().Get("category"),
		Type:     r.URL.Query().Get("type"),
	}
	if token := r.URL.Query().Get("period"); token != "" && token != period.AllTime {
		rng := period.Resolve(token, time.Now(), customRange(r))
		criteria.Dates = &rng
	}

	txs := query.SortByRecency(query.Filter(s.ledger.Transactions(), criteria))
	s.respondJSON(w, r, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, ok := s.amountCents(w, r, req.Amount, req.AmountCents)
	if !ok {
		return
	}

	t, err := s.ledger.Add(r.Context(), ledger.Input{
		Type:        core.TransactionType(req.Type),
		Amount:      core.Money{Cents: cents},
		Date:        core.ParseDate(req.Date),
		Time:        req.Time,
		Description: req.Description,
		Category:    req.Category,
	})
	s.invalidateSummaries()
	if err != nil {
		// The mutation is applied in memory; warn that it is not durable
		s.logger.ErrorContext(r.Context(), "Transaction not persisted", "error", err, "id", t.ID)
		s.respondJSON(w, r, http.StatusAccepted, t)
		return
	}
	s.respondJSON(w, r, http.StatusCreated, t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var req transactionPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := ledger.Patch{
		Time:        req.Time,
		Description: req.Description,
		Category:    req.Category,
	}
	if req.Type != nil {
		t := core.TransactionType(*req.Type)
		patch.Type = &t
	}
	if req.Date != nil {
		d := core.ParseDate(*req.Date)
		patch.Date = &d
	}
	switch {
	case req.AmountCents != nil:
		patch.Amount = &core.Money{Cents: *req.AmountCents}
	case req.Amount != nil:
		cents, ok := s.amountCents(w, r, *req.Amount, nil)
		if !ok {
			return
		}
		patch.Amount = &core.Money{Cents: cents}
	}

	t, err := s.ledger.Update(r.Context(), id, patch)
	if errors.Is(err, ledger.ErrNotFound) {
		s.respondError(w, r, http.StatusNotFound, "transaction not found")
		return
	}
	s.invalidateSummaries()
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Transaction not persisted", "error", err, "id", id)
		s.respondJSON(w, r, http.StatusAccepted, t)
		return
	}
	s.respondJSON(w, r, http.StatusOK, t)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid transaction id")
		return
	}

	removed, err := s.ledger.Remove(r.Context(), id)
	if !removed {
		s.respondError(w, r, http.StatusNotFound, "transaction not found")
		return
	}
	s.invalidateSummaries()
	if err != nil {
		// Deleted in memory but not durably; same contract as create/update
		s.logger.ErrorContext(r.Context(), "Deletion not persisted", "error", err, "id", id)
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if v := r.URL.Query().Get("type"); v != "" {
		s.respondJSON(w, r, http.StatusOK, s.ledger.CategoriesFor(core.TransactionType(v)))
		return
	}
	s.respondJSON(w, r, http.StatusOK, s.ledger.Taxonomy())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, r, http.StatusOK, s.dashboard())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("period")
	key := reportKey(token, r)

	if summary, ok := s.reportCache.Get(key); ok {
		s.respondJSON(w, r, http.StatusOK, summary)
		return
	}

	rng := period.Resolve(token, time.Now(), customRange(r))
	txs := query.Filter(s.ledger.Transactions(), query.Criteria{Dates: &rng})
	totals := query.Totals(txs)

	summary := core.ReportSummary{
		From:     core.Date{Time: rng.Start},
		To:       core.Date{Time: rng.End},
		Income:   totals.Income,
		Expenses: totals.Expenses,
		Balance:  totals.Balance(),
	}
	s.reportCache.Set(key, summary)
	s.respondJSON(w, r, http.StatusOK, summary)
}

func (s *Server) dashboard() core.DashboardSummary {
	if summary, ok := s.dashboardCache.Get("dashboard"); ok {
		return summary
	}

	txs := s.ledger.Transactions()
	totals := query.Totals(txs)
	summary := core.DashboardSummary{
		Income:             totals.Income,
		Expenses:           totals.Expenses,
		Balance:            totals.Balance(),
		RecentTransactions: query.Recent(txs, recentCount),
	}
	s.dashboardCache.Set("dashboard", summary)
	return summary
}

func (s *Server) invalidateSummaries() {
	s.dashboardCache.Delete("dashboard")
	s.reportCache.Clear()
}

// amountCents resolves the amount from either representation, answering
// the request itself on a malformed decimal.
func (s *Server) amountCents(w http.ResponseWriter, r *http.Request, amount string, cents *int64) (int64, bool) {
	if cents != nil {
		return *cents, true
	}
	if strings.TrimSpace(amount) == "" {
		return 0, true
	}
	v, err := core.ParseDecimalToCents(amount)
	if err != nil {
		s.respondError(w, r, http.StatusUnprocessableEntity, "invalid amount")
		return 0, false
	}
	return v, true
}

func customRange(r *http.Request) *query.Range {
	start := core.ParseDate(r.URL.Query().Get("start"))
	end := core.ParseDate(r.URL.Query().Get("end"))
	if start.IsZero() || end.IsZero() {
		return nil
	}
	return &query.Range{Start: start.Time, End: end.Time}
}

func reportKey(token string, r *http.Request) string {
	return token + "|" + r.URL.Query().Get("start") + "|" + r.URL.Query().Get("end")
}

func (s *Server) respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.ErrorContext(r.Context(), "Response encoding failed", "error", err, "path", r.URL.Path)
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.respondJSON(w, r, status, map[string]string{"error": message})
}
