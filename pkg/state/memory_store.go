package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store intended for tests and single-process
// use. It enforces ETag checks the way a persistent implementation would.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	snapshot map[string]any
	meta     Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (map[string]any, Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return cloneSnapshot(record.snapshot), cloneMeta(record.meta), nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, snapshot map[string]any, expect Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[key]; ok && expect.ETag != "" && expect.ETag != existing.meta.ETag {
		return Meta{}, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expect.ETag, existing.meta.ETag)
	}

	meta := Meta{
		SnapshotID: expect.SnapshotID,
		ETag:       uuid.NewString(),
		UpdatedAt:  time.Now().UTC(),
		Extra:      expect.Extra,
	}
	if meta.SnapshotID == "" {
		meta.SnapshotID = uuid.NewString()
	}
	s.records[key] = memoryRecord{snapshot: cloneSnapshot(snapshot), meta: cloneMeta(meta)}
	return cloneMeta(meta), nil
}

func cloneSnapshot(snapshot map[string]any) map[string]any {
	if snapshot == nil {
		return nil
	}
	clone := make(map[string]any, len(snapshot))
	for key, value := range snapshot {
		if nested, ok := value.(map[string]any); ok {
			clone[key] = cloneSnapshot(nested)
			continue
		}
		clone[key] = value
	}
	return clone
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
