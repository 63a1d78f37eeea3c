package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/storage/memory"
)

type recordingExporter struct {
	exported []int64
	removed  []int64
	failWith error
}

func (r *recordingExporter) ExportTransaction(_ context.Context, t core.Transaction) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.exported = append(r.exported, t.ID)
	return nil
}

func (r *recordingExporter) RemoveTransaction(_ context.Context, id int64) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.removed = append(r.removed, id)
	return nil
}

func storeWith(t *testing.T, txs []core.Transaction) *memory.Store {
	t.Helper()
	store := memory.New()
	data, err := json.Marshal(txs)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := store.Save(ledger.KeyTransactions, data); err != nil {
		t.Fatalf("save fixture: %v", err)
	}
	return store
}

func newWorker(store ledger.Store, exp *recordingExporter) *SyncWorker {
	return NewSyncWorker(store, exp, log.NewWithWriter(slog.LevelError, io.Discard))
}

func TestHandleCreated(t *testing.T) {
	store := storeWith(t, []core.Transaction{{ID: 7, Type: core.Expense}})
	exp := &recordingExporter{}
	w := newWorker(store, exp)

	err := w.Handle(context.Background(), events.NewTransactionSyncMessage(7, events.ActionCreated))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(exp.exported) != 1 || exp.exported[0] != 7 {
		t.Errorf("exported = %v, want [7]", exp.exported)
	}
	if len(exp.removed) != 0 {
		t.Errorf("removed = %v, want none", exp.removed)
	}
}

func TestHandleUpdatedReplacesRow(t *testing.T) {
	store := storeWith(t, []core.Transaction{{ID: 3}})
	exp := &recordingExporter{}
	w := newWorker(store, exp)

	if err := w.Handle(context.Background(), events.NewTransactionSyncMessage(3, events.ActionUpdated)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(exp.removed) != 1 || exp.removed[0] != 3 {
		t.Errorf("removed = %v, want [3]", exp.removed)
	}
	if len(exp.exported) != 1 || exp.exported[0] != 3 {
		t.Errorf("exported = %v, want [3]", exp.exported)
	}
}

func TestHandleDeletedSkipsLookup(t *testing.T) {
	// No store fixture at all: delete must not need one.
	exp := &recordingExporter{}
	w := newWorker(memory.New(), exp)

	if err := w.Handle(context.Background(), events.NewTransactionSyncMessage(9, events.ActionDeleted)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(exp.removed) != 1 || exp.removed[0] != 9 {
		t.Errorf("removed = %v, want [9]", exp.removed)
	}
}

func TestHandleVanishedTransactionSettles(t *testing.T) {
	store := storeWith(t, nil)
	exp := &recordingExporter{}
	w := newWorker(store, exp)

	if err := w.Handle(context.Background(), events.NewTransactionSyncMessage(42, events.ActionCreated)); err != nil {
		t.Fatalf("Handle for vanished transaction: %v", err)
	}
	if len(exp.exported) != 0 {
		t.Errorf("exported = %v, want none", exp.exported)
	}
}

func TestHandleExportFailureRequeues(t *testing.T) {
	store := storeWith(t, []core.Transaction{{ID: 1}})
	exp := &recordingExporter{failWith: errors.New("quota exceeded")}
	w := newWorker(store, exp)

	if err := w.Handle(context.Background(), events.NewTransactionSyncMessage(1, events.ActionCreated)); err == nil {
		t.Fatal("Handle returned nil, want error for requeue")
	}
}

func TestSyncMessageRoundTrip(t *testing.T) {
	msg := events.NewTransactionSyncMessage(5, events.ActionUpdated)
	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	back, err := events.TransactionSyncMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if back.ID != 5 || back.Action != events.ActionUpdated {
		t.Errorf("round trip = %+v", back)
	}
}
