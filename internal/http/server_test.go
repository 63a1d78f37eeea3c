package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/storage/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := log.NewWithWriter(slog.LevelError, io.Discard)
	svc := ledger.New(memory.New(), logger)
	srv := NewServer(":0", svc, logger)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func createTxn(t *testing.T, srv *Server, amount, date, clock, category, typ string) core.Transaction {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"type":        typ,
		"amount":      amount,
		"date":        date,
		"time":        clock,
		"description": "test entry",
		"category":    category,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[core.Transaction](t, rec)
}

func TestCreateTransaction(t *testing.T) {
	srv := newTestServer(t)

	got := createTxn(t, srv, "12.34", "2024-03-10", "14:00", "Food", "expense")
	if got.ID != 1 {
		t.Errorf("ID = %d, want 1", got.ID)
	}
	if got.Amount.Cents != 1234 {
		t.Errorf("Amount = %d cents, want 1234", got.Amount.Cents)
	}
	if got.Type != core.Expense {
		t.Errorf("Type = %q, want expense", got.Type)
	}
}

func TestCreateTransactionInvalidAmount(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"type":   "expense",
		"amount": "-5.00",
		"date":   "2024-03-10",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestCreateTransactionMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString("{oops"))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListTransactionsFiltered(t *testing.T) {
	srv := newTestServer(t)
	createTxn(t, srv, "100.00", "2024-03-01", "09:00", "Salary", "income")
	createTxn(t, srv, "20.00", "2024-03-02", "12:00", "Food", "expense")
	createTxn(t, srv, "30.00", "2024-04-02", "12:00", "Food", "expense")

	tests := []struct {
		name    string
		target  string
		wantLen int
	}{
		{name: "no filters", target: "/api/transactions", wantLen: 3},
		{name: "all sentinels", target: "/api/transactions?category=all&type=all", wantLen: 3},
		{name: "by category", target: "/api/transactions?category=Food", wantLen: 2},
		{name: "by type", target: "/api/transactions?type=income", wantLen: 1},
		{name: "all-time period", target: "/api/transactions?period=all-time", wantLen: 3},
		{
			name:    "custom period",
			target:  "/api/transactions?period=custom&start=2024-03-01&end=2024-03-31",
			wantLen: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodGet, tt.target, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			got := decode[[]core.Transaction](t, rec)
			if len(got) != tt.wantLen {
				t.Errorf("returned %d transactions, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestListTransactionsSortedByRecency(t *testing.T) {
	srv := newTestServer(t)
	createTxn(t, srv, "1.00", "2024-03-01", "09:00", "Food", "expense")
	createTxn(t, srv, "2.00", "2024-03-05", "09:00", "Food", "expense")
	createTxn(t, srv, "3.00", "2024-03-05", "18:00", "Food", "expense")

	rec := doJSON(t, srv, http.MethodGet, "/api/transactions", nil)
	got := decode[[]core.Transaction](t, rec)
	if len(got) != 3 {
		t.Fatalf("returned %d transactions", len(got))
	}
	wantIDs := []int64{3, 2, 1}
	for i, want := range wantIDs {
		if got[i].ID != want {
			t.Errorf("result[%d].ID = %d, want %d", i, got[i].ID, want)
		}
	}
}

func TestUpdateTransaction(t *testing.T) {
	srv := newTestServer(t)
	created := createTxn(t, srv, "10.00", "2024-03-01", "09:00", "Food", "expense")

	rec := doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/transactions/%d", created.ID), map[string]any{
		"amount":   "25.50",
		"category": "Bills",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decode[core.Transaction](t, rec)
	if got.Amount.Cents != 2550 {
		t.Errorf("Amount = %d, want 2550", got.Amount.Cents)
	}
	if got.Category != "Bills" {
		t.Errorf("Category = %q, want Bills", got.Category)
	}
	if got.Description != "test entry" {
		t.Errorf("unpatched Description = %q", got.Description)
	}
}

func TestUpdateMissingTransaction(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPut, "/api/transactions/99", map[string]any{"category": "Bills"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	srv := newTestServer(t)
	created := createTxn(t, srv, "10.00", "2024-03-01", "09:00", "Food", "expense")

	rec := doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", created.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", created.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

// flakyStore persists normally until fail is set.
type flakyStore struct {
	inner *memory.Store
	fail  bool
}

func (f *flakyStore) Load(key string) ([]byte, bool, error) { return f.inner.Load(key) }

func (f *flakyStore) Save(key string, value []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.inner.Save(key, value)
}

func TestDeletePersistFailureReturnsAccepted(t *testing.T) {
	store := &flakyStore{inner: memory.New()}
	logger := log.NewWithWriter(slog.LevelError, io.Discard)
	srv := NewServer(":0", ledger.New(store, logger), logger)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	created := createTxn(t, srv, "10.00", "2024-03-01", "09:00", "Food", "expense")
	store.fail = true

	rec := doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", created.ID), nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 when the deletion is not durable", rec.Code)
	}

	// Deleted in memory despite the failed save
	rec = doJSON(t, srv, http.MethodGet, "/api/transactions", nil)
	if got := decode[[]core.Transaction](t, rec); len(got) != 0 {
		t.Errorf("ledger still lists %d transactions after delete", len(got))
	}
}

func TestCategories(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/categories", nil)
	tax := decode[core.Taxonomy](t, rec)
	if len(tax.Income) == 0 || len(tax.Expense) == 0 {
		t.Fatalf("taxonomy = %+v, want seeded defaults", tax)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/categories?type=income", nil)
	cats := decode[[]string](t, rec)
	if len(cats) != len(tax.Income) {
		t.Errorf("income categories = %v", cats)
	}
}

func TestDashboard(t *testing.T) {
	srv := newTestServer(t)
	createTxn(t, srv, "100.00", "2024-03-01", "09:00", "Salary", "income")
	createTxn(t, srv, "30.00", "2024-03-02", "09:00", "Food", "expense")

	rec := doJSON(t, srv, http.MethodGet, "/api/dashboard", nil)
	got := decode[core.DashboardSummary](t, rec)
	if got.Income.Cents != 10000 {
		t.Errorf("Income = %d, want 10000", got.Income.Cents)
	}
	if got.Expenses.Cents != 3000 {
		t.Errorf("Expenses = %d, want 3000", got.Expenses.Cents)
	}
	if got.Balance.Cents != 7000 {
		t.Errorf("Balance = %d, want 7000", got.Balance.Cents)
	}
	if len(got.RecentTransactions) != 2 {
		t.Errorf("recent = %d entries, want 2", len(got.RecentTransactions))
	}
}

func TestDashboardCacheInvalidatedByMutation(t *testing.T) {
	srv := newTestServer(t)
	createTxn(t, srv, "100.00", "2024-03-01", "09:00", "Salary", "income")

	rec := doJSON(t, srv, http.MethodGet, "/api/dashboard", nil)
	first := decode[core.DashboardSummary](t, rec)

	createTxn(t, srv, "40.00", "2024-03-02", "09:00", "Food", "expense")

	rec = doJSON(t, srv, http.MethodGet, "/api/dashboard", nil)
	second := decode[core.DashboardSummary](t, rec)
	if second.Expenses.Cents == first.Expenses.Cents {
		t.Error("dashboard served stale totals after a mutation")
	}
}

func TestReport(t *testing.T) {
	srv := newTestServer(t)
	createTxn(t, srv, "100.00", "2024-01-15", "09:00", "Salary", "income")
	createTxn(t, srv, "25.00", "2024-02-20", "09:00", "Food", "expense")

	rec := doJSON(t, srv, http.MethodGet, "/api/report?period=custom&start=2024-01-01&end=2024-01-31", nil)
	got := decode[core.ReportSummary](t, rec)
	if got.Income.Cents != 10000 {
		t.Errorf("Income = %d, want 10000", got.Income.Cents)
	}
	if got.Expenses.Cents != 0 {
		t.Errorf("Expenses = %d, want 0 (outside the window)", got.Expenses.Cents)
	}
}

func TestReportUnknownPeriodStillResponds(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/report?period=whenever", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (unknown token falls back)", rec.Code)
	}
}

func TestRefreshDispatch(t *testing.T) {
	srv := newTestServer(t)
	createTxn(t, srv, "10.00", "2024-03-01", "09:00", "Food", "expense")

	tests := []struct {
		name   string
		target string
	}{
		{name: "dashboard", target: "/api/refresh?view=dashboard"},
		{name: "transactions", target: "/api/refresh?view=transactions"},
		{name: "reports", target: "/api/refresh?view=reports"},
		{name: "unknown view falls back to dashboard", target: "/api/refresh?view=settings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodGet, tt.target, nil)
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rec.Code)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/transactions", nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestParseView(t *testing.T) {
	tests := []struct {
		input string
		want  View
	}{
		{"dashboard", ViewDashboard},
		{"transactions", ViewTransactions},
		{"reports", ViewReports},
		{"", ViewDashboard},
		{"bogus", ViewDashboard},
	}
	for _, tt := range tests {
		if got := ParseView(tt.input); got != tt.want {
			t.Errorf("ParseView(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
