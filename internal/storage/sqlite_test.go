package storage

import (
	"bytes"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteLoadMissingKey(t *testing.T) {
	store := newTestStore(t)
	_, ok, err := store.Load("missing")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Error("Load reported presence for missing key")
	}
}

func TestSQLiteSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("transactions", []byte(`[{"id":1}]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := store.Load("transactions")
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if !bytes.Equal(got, []byte(`[{"id":1}]`)) {
		t.Errorf("Load = %s", got)
	}
}

func TestSQLiteUpsert(t *testing.T) {
	store := newTestStore(t)

	store.Save("k", []byte("first"))
	if err := store.Save("k", []byte("second")); err != nil {
		t.Fatalf("Save upsert: %v", err)
	}
	got, _, _ := store.Load("k")
	if !bytes.Equal(got, []byte("second")) {
		t.Errorf("Load after upsert = %s, want second", got)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	if err := RunMigrations(dbPath); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		t.Fatalf("second run: %v", err)
	}
}
