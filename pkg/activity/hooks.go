// Package activity fans out resolved-tree lifecycle events to hooks: tree
// creation, explicit value sets, and deletes on mutable trees.
package activity

import (
	"errors"
	"strings"
	"time"
)

// Event describes one occurrence on a resolved tree. SnapshotID ties the
// event back to the tree that produced it; Path is empty for tree-level
// events such as creation.
type Event struct {
	Verb       string
	Path       string
	OldValue   any
	NewValue   any
	SnapshotID string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Hook receives normalized events.
type Hook interface {
	Notify(event Event) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(event Event) error {
	if fn == nil {
		return nil
	}
	return fn(event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Compact returns a copy with nil entries removed; nil when none remain.
func (h Hooks) Compact() Hooks {
	if len(h) == 0 {
		return nil
	}
	compacted := make(Hooks, 0, len(h))
	for _, hook := range h {
		if hook == nil {
			continue
		}
		compacted = append(compacted, hook)
	}
	if len(compacted) == 0 {
		return nil
	}
	return compacted
}

// Notify forwards the event to all hooks, returning a joined error if any
// fail. It normalizes the event and short-circuits when the verb is missing.
func (h Hooks) Notify(event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Verb == "" {
		return nil
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims identifiers, clones metadata, and ensures a timestamp
// is present.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.Path = strings.TrimSpace(event.Path)
	normalized.SnapshotID = strings.TrimSpace(event.SnapshotID)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
