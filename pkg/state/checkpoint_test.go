package state

import (
	"context"
	"testing"

	factory "github.com/goliatone/go-factory"
)

func workerFactory(t *testing.T) *factory.Factory {
	t.Helper()
	f, err := factory.New(
		factory.Opt("threads", 2),
		factory.Opt("burst", factory.Rule("threads * 2")),
	)
	if err != nil {
		t.Fatalf("unexpected error building factory: %v", err)
	}
	return f
}

func TestCheckpointAndRestore(t *testing.T) {
	f := workerFactory(t)
	store := NewMemoryStore()
	ref := Ref{Domain: "pool", Name: "default"}

	tree, err := f.CreateMutable(nil)
	if err != nil {
		t.Fatalf("unexpected error from CreateMutable: %v", err)
	}
	if err := tree.Set("threads", 8); err != nil {
		t.Fatalf("unexpected error from Set: %v", err)
	}

	meta, err := Checkpoint(context.Background(), store, ref, tree, Meta{})
	if err != nil {
		t.Fatalf("unexpected error from Checkpoint: %v", err)
	}
	if meta.SnapshotID != tree.SnapshotID() {
		t.Fatalf("expected checkpoint to carry tree snapshot id")
	}

	restored, restoredMeta, err := Restore(context.Background(), store, ref, f)
	if err != nil {
		t.Fatalf("unexpected error from Restore: %v", err)
	}
	if restoredMeta.ETag != meta.ETag {
		t.Fatalf("expected restore to report saved meta")
	}
	if v, _ := restored.GetInt("threads"); v != 8 {
		t.Fatalf("expected explicit value restored, got %d", v)
	}
	if v, _ := restored.GetInt("burst"); v != 16 {
		t.Fatalf("expected rule re-evaluated after restore, got %d", v)
	}

	// Only explicit values are persisted; defaults come from the factory.
	snapshot, _, err := store.Load(context.Background(), ref)
	if err != nil {
		t.Fatalf("unexpected error from Load: %v", err)
	}
	if _, ok := snapshot["burst"]; ok {
		t.Fatalf("expected default-valued option absent from snapshot, got %v", snapshot)
	}
}

func TestCheckpointValidatesInputs(t *testing.T) {
	f := workerFactory(t)
	tree, err := f.CreateMutable(nil)
	if err != nil {
		t.Fatalf("unexpected error from CreateMutable: %v", err)
	}
	ref := Ref{Domain: "pool", Name: "default"}

	if _, err := Checkpoint(context.Background(), nil, ref, tree, Meta{}); err == nil {
		t.Fatalf("expected nil store to fail")
	}
	if _, err := Checkpoint(context.Background(), NewMemoryStore(), ref, nil, Meta{}); err == nil {
		t.Fatalf("expected nil tree to fail")
	}
	if _, _, err := Restore(context.Background(), NewMemoryStore(), ref, nil); err == nil {
		t.Fatalf("expected nil factory to fail")
	}
}
