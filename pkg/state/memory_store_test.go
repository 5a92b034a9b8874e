package state

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ref := Ref{Domain: "billing", Name: "worker"}
	snapshot := map[string]any{"a": 1, "nested": map[string]any{"b": 2}}

	meta, err := store.Save(context.Background(), ref, snapshot, Meta{SnapshotID: "snap-1"})
	if err != nil {
		t.Fatalf("unexpected error from Save: %v", err)
	}
	if meta.SnapshotID != "snap-1" || meta.ETag == "" || meta.UpdatedAt.IsZero() {
		t.Fatalf("unexpected meta: %+v", meta)
	}

	loaded, loadedMeta, err := store.Load(context.Background(), ref)
	if err != nil {
		t.Fatalf("unexpected error from Load: %v", err)
	}
	if loadedMeta.ETag != meta.ETag {
		t.Fatalf("expected stable etag, got %q vs %q", loadedMeta.ETag, meta.ETag)
	}
	if loaded["a"] != 1 {
		t.Fatalf("unexpected snapshot: %v", loaded)
	}

	// Stored snapshots are isolated from caller mutation.
	loaded["nested"].(map[string]any)["b"] = 99
	again, _, err := store.Load(context.Background(), ref)
	if err != nil {
		t.Fatalf("unexpected error from Load: %v", err)
	}
	if again["nested"].(map[string]any)["b"] != 2 {
		t.Fatalf("expected stored snapshot unchanged, got %v", again)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, _, err := store.Load(context.Background(), Ref{Domain: "d", Name: "n"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreETagConflict(t *testing.T) {
	store := NewMemoryStore()
	ref := Ref{Domain: "d", Name: "n"}

	first, err := store.Save(context.Background(), ref, map[string]any{"v": 1}, Meta{})
	if err != nil {
		t.Fatalf("unexpected error from Save: %v", err)
	}
	second, err := store.Save(context.Background(), ref, map[string]any{"v": 2}, Meta{ETag: first.ETag})
	if err != nil {
		t.Fatalf("expected matching etag to succeed, got %v", err)
	}
	if second.ETag == first.ETag {
		t.Fatalf("expected etag to rotate on save")
	}

	if _, err := store.Save(context.Background(), ref, map[string]any{"v": 3}, Meta{ETag: first.ETag}); !errors.Is(err, ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch for stale etag, got %v", err)
	}
}

func TestRefIdentifier(t *testing.T) {
	id, err := Ref{Domain: "billing", Name: "worker"}.Identifier()
	if err != nil || id != "billing/worker" {
		t.Fatalf("unexpected identifier %q, %v", id, err)
	}
	if _, err := (Ref{Name: "worker"}).Identifier(); err == nil {
		t.Fatalf("expected missing domain to fail")
	}
	if _, err := (Ref{Domain: "billing"}).Identifier(); err == nil {
		t.Fatalf("expected missing name to fail")
	}
}
