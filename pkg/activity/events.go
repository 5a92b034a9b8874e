package activity

// Verbs emitted by resolved trees.
const (
	VerbCreated = "created"
	VerbSet     = "set"
	VerbDeleted = "deleted"
)

// NewCreatedEvent describes a freshly resolved tree.
func NewCreatedEvent(snapshotID string) Event {
	return Event{
		Verb:       VerbCreated,
		SnapshotID: snapshotID,
	}
}

// NewSetEvent describes an explicit value stored on a mutable tree.
func NewSetEvent(path string, oldValue, newValue any, snapshotID string) Event {
	return Event{
		Verb:       VerbSet,
		Path:       path,
		OldValue:   oldValue,
		NewValue:   newValue,
		SnapshotID: snapshotID,
	}
}

// NewDeletedEvent describes an explicit value removed from a mutable tree,
// restoring the option's default.
func NewDeletedEvent(path string, oldValue any, snapshotID string) Event {
	return Event{
		Verb:       VerbDeleted,
		Path:       path,
		OldValue:   oldValue,
		SnapshotID: snapshotID,
	}
}
