package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/tjfontaine/nextware/internal/storage"
)

func TestStore_SaveAndGet(t *testing.T) {
	store := New(10)
	ctx := context.Background()

	rec := &storage.Record{ID: "rec-1", App: "api", Method: "GET", Path: "/", Outcome: "terminated", StatusCode: 200}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("Save() should stamp CreatedAt")
	}

	got, err := store.Get(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Outcome != "terminated" || got.StatusCode != 200 {
		t.Errorf("Get() = %+v", got)
	}

	if err := store.Save(ctx, rec); err == nil {
		t.Error("Save() expected error for duplicate id")
	}
}

func TestStore_GetMissing(t *testing.T) {
	_, err := New(10).Get(context.Background(), "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListNewestFirstWithFilters(t *testing.T) {
	store := New(10)
	ctx := context.Background()

	for _, rec := range []*storage.Record{
		{ID: "1", App: "api", Outcome: "terminated"},
		{ID: "2", App: "api", Outcome: "failed"},
		{ID: "3", App: "admin", Outcome: "terminated"},
		{ID: "4", App: "api", Outcome: "terminated"},
	} {
		if err := store.Save(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	all, _ := store.List(ctx, storage.ListOptions{})
	if len(all) != 4 || all[0].ID != "4" || all[3].ID != "1" {
		t.Errorf("List() order = %v", ids(all))
	}

	api, _ := store.List(ctx, storage.ListOptions{App: "api", Outcome: "terminated"})
	if got := ids(api); len(got) != 2 || got[0] != "4" || got[1] != "1" {
		t.Errorf("List(filtered) = %v", got)
	}

	limited, _ := store.List(ctx, storage.ListOptions{Limit: 1})
	if len(limited) != 1 || limited[0].ID != "4" {
		t.Errorf("List(limit) = %v", ids(limited))
	}
}

func ids(recs []*storage.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestStore_EvictsOldestWhenFull(t *testing.T) {
	store := New(3)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3", "4", "5"} {
		if err := store.Save(ctx, &storage.Record{ID: id, App: "api", Outcome: "terminated"}); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	if got := store.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}

	all, _ := store.List(ctx, storage.ListOptions{})
	if got := ids(all); len(got) != 3 || got[0] != "5" || got[1] != "4" || got[2] != "3" {
		t.Errorf("List() = %v, want [5 4 3]", got)
	}

	for _, id := range []string{"1", "2"} {
		if _, err := store.Get(ctx, id); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Get(%s) error = %v, want ErrNotFound", id, err)
		}
	}
	if _, err := store.Get(ctx, "3"); err != nil {
		t.Errorf("Get(3) error = %v", err)
	}

	// An evicted ID can be saved again.
	if err := store.Save(ctx, &storage.Record{ID: "1"}); err != nil {
		t.Errorf("Save(evicted id) error = %v", err)
	}
}

func TestStore_NonPositiveLimitUsesDefault(t *testing.T) {
	store := New(0)
	if got := len(store.ring); got != DefaultMaxRecords {
		t.Errorf("capacity = %d, want %d", got, DefaultMaxRecords)
	}
}
