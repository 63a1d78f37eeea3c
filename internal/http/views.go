package http

import "net/http"

// View enumerates the app's screens. The refresh dispatch below replaces
// string-keyed branching on view names; the core never knows which view
// is active.
type View int

const (
	ViewDashboard View = iota
	ViewTransactions
	ViewReports
)

// ParseView maps a view name to its View; unknown names refresh the
// dashboard.
func ParseView(name string) View {
	switch name {
	case "transactions":
		return ViewTransactions
	case "reports":
		return ViewReports
	default:
		return ViewDashboard
	}
}

func (v View) String() string {
	switch v {
	case ViewTransactions:
		return "transactions"
	case ViewReports:
		return "reports"
	default:
		return "dashboard"
	}
}

// refreshTable routes each view to the handler producing its payload.
func (s *Server) refreshTable() map[View]http.HandlerFunc {
	return map[View]http.HandlerFunc{
		ViewDashboard:    s.handleDashboard,
		ViewTransactions: s.handleListTransactions,
		ViewReports:      s.handleReport,
	}
}

// handleRefresh re-renders the payload for the requested view.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	view := ParseView(r.URL.Query().Get("view"))
	s.refreshTable()[view](w, r)
}
