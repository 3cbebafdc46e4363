package kvstore

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return NewSQLiteStore(db, AreaLocal)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)

	type snapshot struct {
		Items []string
	}

	if err := store.Set(ctx, "snap", snapshot{Items: []string{"a", "b"}}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got snapshot
	ok, err := store.Get(ctx, "snap", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected key to exist")
	}
	if len(got.Items) != 2 || got.Items[0] != "a" {
		t.Errorf("unexpected value: %+v", got)
	}

	// Overwrite keeps a single record per key.
	if err := store.Set(ctx, "snap", snapshot{Items: []string{"c"}}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, err := store.Get(ctx, "snap", &got); err != nil {
		t.Fatalf("get after overwrite: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0] != "c" {
		t.Errorf("unexpected value after overwrite: %+v", got)
	}
}

func TestSQLiteStore_AreaIsolation(t *testing.T) {
	ctx := context.Background()
	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	local := NewSQLiteStore(db, AreaLocal)
	synced := NewSQLiteStore(db, AreaSynced)

	if err := local.Set(ctx, "k", "local-value"); err != nil {
		t.Fatalf("set local: %v", err)
	}
	if err := synced.Set(ctx, "k", "synced-value"); err != nil {
		t.Fatalf("set synced: %v", err)
	}

	var got string
	if _, err := local.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get local: %v", err)
	}
	if got != "local-value" {
		t.Errorf("expected local value, got %q", got)
	}

	// Clearing one area leaves the other untouched.
	if err := local.Clear(ctx); err != nil {
		t.Fatalf("clear local: %v", err)
	}
	if ok, _ := local.Get(ctx, "k", &got); ok {
		t.Error("expected local key to be cleared")
	}
	if ok, _ := synced.Get(ctx, "k", &got); !ok || got != "synced-value" {
		t.Errorf("expected synced key to survive, got %q (ok=%v)", got, ok)
	}
}

func TestSQLiteStore_RemoveMissingKey(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)

	notified := false
	unsubscribe := store.OnChange(func(key string) { notified = true })
	defer unsubscribe()

	if err := store.Remove(ctx, "absent"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if notified {
		t.Error("expected no notification for a no-op remove")
	}
}
