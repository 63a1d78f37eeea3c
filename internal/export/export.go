// Package export declares the optional output capabilities of the
// tracker. The core never depends on these doing real work; no-op
// implementations satisfy every contract.
package export

import (
	"context"

	"fintrack/internal/core"
)

// Exporter writes transactions to an external destination.
type Exporter interface {
	ExportTransaction(ctx context.Context, t core.Transaction) error
	RemoveTransaction(ctx context.Context, id int64) error
}

// ChartRenderer turns aggregates into a rendered chart. The tracker
// ships no real renderer; the interface exists so a UI can plug one in.
type ChartRenderer interface {
	RenderTotals(ctx context.Context, totals core.Totals) ([]byte, error)
}

// Noop satisfies both capabilities and does nothing.
type Noop struct{}

func (Noop) ExportTransaction(context.Context, core.Transaction) error { return nil }
func (Noop) RemoveTransaction(context.Context, int64) error            { return nil }
func (Noop) RenderTotals(context.Context, core.Totals) ([]byte, error) { return nil, nil }
