// Package query provides pure filtering and aggregation over transaction
// snapshots. Nothing here mutates its input or touches persistence.
package query

import (
	"sort"
	"time"

	"fintrack/internal/core"
)

// All is the sentinel filter value meaning "no filter on this dimension".
// It is matched literally, so a category actually named "all" is
// unreachable through filtering. The empty string is treated the same way.
const All = "all"

// Range is an inclusive [Start, End] window on the time axis.
type Range struct {
	Start time.Time
	End   time.Time
}

// Criteria describes a conjunctive transaction filter. Zero-value or All
// dimensions are skipped; a nil Dates range means no date filtering.
type Criteria struct {
	Category string
	Type     string
	Dates    *Range
}

// Filter returns the transactions matching every supplied predicate,
// preserving input order. Date matching compares the transaction's
// calendar date, not its clock time, against the inclusive range.
func Filter(txs []core.Transaction, c Criteria) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if c.Category != "" && c.Category != All && t.Category != c.Category {
			continue
		}
		if c.Type != "" && c.Type != All && string(t.Type) != c.Type {
			continue
		}
		if c.Dates != nil {
			d := t.Date.Time
			if d.Before(c.Dates.Start) || d.After(c.Dates.End) {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// SortByRecency returns a copy sorted descending by the combined
// (date, time) instant. The sort is stable: transactions sharing an
// instant keep their original relative order.
func SortByRecency(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Instant().After(out[j].Instant())
	})
	return out
}

// Recent returns the n most recent transactions. n is clamped to
// [0, len(txs)].
func Recent(txs []core.Transaction, n int) []core.Transaction {
	sorted := SortByRecency(txs)
	if n < 0 {
		n = 0
	}
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// Totals sums amounts per transaction type. The empty list yields {0, 0}.
func Totals(txs []core.Transaction) core.Totals {
	var t core.Totals
	for _, tx := range txs {
		if tx.Type == core.Income {
			t.Income.Cents += tx.Amount.Cents
		} else {
			t.Expenses.Cents += tx.Amount.Cents
		}
	}
	return t
}
