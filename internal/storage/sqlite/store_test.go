package sqlite

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/storyweft/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "saves.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestPutSaveRoundTripsBytes(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	status := []byte(`{"info":{"script":{"narrated":{},"observed":{},"words":null},"world":null},"sceneStack":[]}`)
	err := store.PutSave(ctx, storage.SaveRecord{Story: "harbor", Slot: "auto", Status: status})
	if err != nil {
		t.Fatalf("put save: %v", err)
	}

	record, err := store.GetSave(ctx, "harbor", "auto")
	if err != nil {
		t.Fatalf("get save: %v", err)
	}
	if !bytes.Equal(record.Status, status) {
		t.Fatalf("expected byte-identical status, got %s", record.Status)
	}
	if record.UpdatedAt.IsZero() {
		t.Fatal("expected updated_at set")
	}
}

func TestPutSaveReplacesSlot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.PutSave(ctx, storage.SaveRecord{Story: "harbor", Slot: "auto", Status: []byte("one")}); err != nil {
		t.Fatalf("put save: %v", err)
	}
	if err := store.PutSave(ctx, storage.SaveRecord{Story: "harbor", Slot: "auto", Status: []byte("two")}); err != nil {
		t.Fatalf("replace save: %v", err)
	}

	record, err := store.GetSave(ctx, "harbor", "auto")
	if err != nil {
		t.Fatalf("get save: %v", err)
	}
	if string(record.Status) != "two" {
		t.Fatalf("expected replacement to win, got %s", record.Status)
	}

	records, err := store.ListSaves(ctx, "harbor")
	if err != nil {
		t.Fatalf("list saves: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected a single slot, got %d", len(records))
	}
}

func TestGetSaveMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetSave(context.Background(), "harbor", "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutSaveValidation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.PutSave(ctx, storage.SaveRecord{Slot: "auto", Status: []byte("x")}); err == nil {
		t.Fatal("expected error for missing story")
	}
	if err := store.PutSave(ctx, storage.SaveRecord{Story: "harbor", Status: []byte("x")}); err == nil {
		t.Fatal("expected error for missing slot")
	}
	if err := store.PutSave(ctx, storage.SaveRecord{Story: "harbor", Slot: "auto"}); err == nil {
		t.Fatal("expected error for missing status")
	}
}

func TestListSavesOrdersByRecency(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older := time.Now().UTC().Add(-time.Hour)
	newer := time.Now().UTC()
	if err := store.PutSave(ctx, storage.SaveRecord{Story: "harbor", Slot: "old", Status: []byte("o"), UpdatedAt: older}); err != nil {
		t.Fatalf("put old: %v", err)
	}
	if err := store.PutSave(ctx, storage.SaveRecord{Story: "harbor", Slot: "new", Status: []byte("n"), UpdatedAt: newer}); err != nil {
		t.Fatalf("put new: %v", err)
	}
	if err := store.PutSave(ctx, storage.SaveRecord{Story: "other", Slot: "auto", Status: []byte("x")}); err != nil {
		t.Fatalf("put other story: %v", err)
	}

	records, err := store.ListSaves(ctx, "harbor")
	if err != nil {
		t.Fatalf("list saves: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(records))
	}
	if records[0].Slot != "new" || records[1].Slot != "old" {
		t.Fatalf("expected recency ordering, got %s then %s", records[0].Slot, records[1].Slot)
	}
}

func TestDeleteSave(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.PutSave(ctx, storage.SaveRecord{Story: "harbor", Slot: "auto", Status: []byte("x")}); err != nil {
		t.Fatalf("put save: %v", err)
	}
	if err := store.DeleteSave(ctx, "harbor", "auto"); err != nil {
		t.Fatalf("delete save: %v", err)
	}
	if _, err := store.GetSave(ctx, "harbor", "auto"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteSave(ctx, "harbor", "auto"); err != nil {
		t.Fatalf("double delete should be a no-op, got %v", err)
	}
}
