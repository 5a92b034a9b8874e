package state

import (
	"context"
	"fmt"

	factory "github.com/goliatone/go-factory"
)

// Checkpoint persists the tree's explicit values under ref. Defaults are not
// written, so later Restore calls pick up any defaults the factory has gained
// since the checkpoint.
func Checkpoint(ctx context.Context, store Store, ref Ref, tree *factory.MutableOptions, expect Meta) (Meta, error) {
	if store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	if tree == nil {
		return Meta{}, fmt.Errorf("state: tree is required")
	}
	snapshot, err := tree.ToMap(false)
	if err != nil {
		return Meta{}, fmt.Errorf("state: snapshot: %w", err)
	}
	expect.SnapshotID = tree.SnapshotID()
	return store.Save(ctx, ref, snapshot, expect)
}

// Restore loads the snapshot saved under ref and resolves it through f into
// a fresh mutable tree.
func Restore(ctx context.Context, store Store, ref Ref, f *factory.Factory, opts ...factory.CreateOption) (*factory.MutableOptions, Meta, error) {
	if store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	if f == nil {
		return nil, Meta{}, fmt.Errorf("state: factory is required")
	}
	snapshot, meta, err := store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, err
	}
	tree, err := f.CreateMutable(snapshot, opts...)
	if err != nil {
		return nil, meta, err
	}
	return tree, meta, nil
}
