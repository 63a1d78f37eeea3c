// Package worker syncs ledger mutations to an export destination. It is
// driven by AMQP messages and reads transaction state fresh from the
// store, so delayed messages never resurrect stale data.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/export"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
)

type SyncWorker struct {
	store    ledger.Store
	exporter export.Exporter
	logger   *log.Logger
}

func NewSyncWorker(store ledger.Store, exporter export.Exporter, logger *log.Logger) *SyncWorker {
	return &SyncWorker{
		store:    store,
		exporter: exporter,
		logger:   logger.WithComponent("sync-worker"),
	}
}

// Handle processes one sync message. Returning an error requeues the
// message; a transaction that no longer exists is treated as settled.
func (w *SyncWorker) Handle(ctx context.Context, msg *events.TransactionSyncMessage) error {
	if msg.Action == events.ActionDeleted {
		if err := w.exporter.RemoveTransaction(ctx, msg.ID); err != nil {
			return fmt.Errorf("remove exported transaction %d: %w", msg.ID, err)
		}
		w.logger.InfoContext(ctx, "Removed exported transaction", "id", msg.ID)
		return nil
	}

	t, ok, err := w.lookup(msg.ID)
	if err != nil {
		return fmt.Errorf("load transaction %d: %w", msg.ID, err)
	}
	if !ok {
		w.logger.WarnContext(ctx, "Transaction vanished before sync", "id", msg.ID, "action", msg.Action)
		return nil
	}

	// Updates replace the previously exported row
	if msg.Action == events.ActionUpdated {
		if err := w.exporter.RemoveTransaction(ctx, msg.ID); err != nil {
			return fmt.Errorf("replace exported transaction %d: %w", msg.ID, err)
		}
	}

	if err := w.exporter.ExportTransaction(ctx, t); err != nil {
		return fmt.Errorf("export transaction %d: %w", msg.ID, err)
	}
	w.logger.InfoContext(ctx, "Exported transaction", "id", msg.ID, "action", msg.Action)
	return nil
}

func (w *SyncWorker) lookup(id int64) (core.Transaction, bool, error) {
	data, ok, err := w.store.Load(ledger.KeyTransactions)
	if err != nil || !ok {
		return core.Transaction{}, false, err
	}
	var txs []core.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return core.Transaction{}, false, fmt.Errorf("decode transactions: %w", err)
	}
	for _, t := range txs {
		if t.ID == id {
			return t, true, nil
		}
	}
	return core.Transaction{}, false, nil
}
