package core

// Totals holds the independent income and expense sums for a set of
// transactions. The balance is derived by callers, never stored.
type Totals struct {
	Income   Money `json:"income_cents"`
	Expenses Money `json:"expenses_cents"`
}

// Balance returns income minus expenses.
func (t Totals) Balance() Money {
	return Money{Cents: t.Income.Cents - t.Expenses.Cents}
}

// DashboardSummary is the compact payload behind the dashboard view.
type DashboardSummary struct {
	Income             Money         `json:"income_cents"`
	Expenses           Money         `json:"expenses_cents"`
	Balance            Money         `json:"balance_cents"`
	RecentTransactions []Transaction `json:"recent_transactions"`
}

// ReportSummary aggregates a resolved period into totals.
type ReportSummary struct {
	From     Date  `json:"from"`
	To       Date  `json:"to"`
	Income   Money `json:"income_cents"`
	Expenses Money `json:"expenses_cents"`
	Balance  Money `json:"balance_cents"`
}
