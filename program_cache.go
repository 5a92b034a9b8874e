package factory

import "sync"

// ProgramCache stores compiled expression programs keyed by expression
// strings. Implementations must be safe for concurrent use when a cache is
// shared across trees.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MemoryProgramCache is an unbounded in-memory ProgramCache.
type MemoryProgramCache struct {
	programs sync.Map
}

// NewMemoryProgramCache constructs an empty cache.
func NewMemoryProgramCache() *MemoryProgramCache {
	return &MemoryProgramCache{}
}

// Get returns the cached program for key.
func (c *MemoryProgramCache) Get(key string) (any, bool) {
	return c.programs.Load(key)
}

// Set stores value under key.
func (c *MemoryProgramCache) Set(key string, value any) {
	c.programs.Store(key, value)
}
