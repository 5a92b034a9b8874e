// Package state defines persistence-facing contracts for loading and saving
// explicit-value snapshots of resolved trees, plus checkpoint helpers that
// round-trip a mutable tree through a Store.
//
// Responsibilities:
//   - Store only loads/saves a single snapshot for a single Ref.
//   - Checkpoint/Restore bridge between Store snapshots and the core factory
//     primitives, saving Options.ToMap(false) output and replaying it through
//     Factory.CreateMutable.
//   - The core factory package remains persistence-agnostic; all persistence
//     logic stays behind Store implementations supplied by consumers.
//
// Concurrency control:
//
//	Meta.ETag changes on every Save. Pass the last observed Meta back to Save
//	(or Checkpoint) to detect concurrent writers; a stale ETag fails with
//	ErrETagMismatch.
package state
