package factory

import (
	"github.com/goliatone/go-factory/pkg/activity"
)

// MutableOptions is a resolved tree node that additionally supports Set and
// Delete. Every mutation invalidates the cached values that depend on the
// touched option, anywhere in the tree, so subsequent reads recompute from
// the new state. Like Options, mutation and resolution are not internally
// synchronised; confine a mutable tree to one goroutine.
type MutableOptions struct {
	*Options
}

// Section returns the named child as a mutable node sharing this tree.
func (m *MutableOptions) Section(name string) (*MutableOptions, error) {
	child, err := m.Options.Section(name)
	if err != nil {
		return nil, err
	}
	return &MutableOptions{Options: child}, nil
}

// Parent returns the enclosing mutable node, or nil at the root.
func (m *MutableOptions) Parent() *MutableOptions {
	if m.Options.parent == nil {
		return nil
	}
	return &MutableOptions{Options: m.Options.parent}
}

// Set stores an explicit value for a declared option. Plain values are
// validated eagerly and a failing Set leaves the tree untouched; expression
// values (Rule or ExprFunc) are validated lazily when first resolved, same
// as defaults.
func (m *MutableOptions) Set(name string, value any) error {
	n := m.Options
	if _, ok := n.children[name]; ok {
		return &ResolutionError{Path: joinPath(n.path, name), Err: ErrNotAnOption}
	}
	opt, ok := n.spec.options[name]
	if !ok {
		return &ResolutionError{Path: joinPath(n.path, name), Err: ErrUnknownOption}
	}

	key := depKey{node: n, name: name}
	if _, evaluatable := asEvaluatable(value); !evaluatable {
		if err := checkValue(value, opt, key.path()); err != nil {
			return err
		}
	}

	old, hadOld := n.cache[name]
	if !hadOld {
		old = n.raw[name]
	}
	n.raw[name] = value
	n.tree.invalidate(key)

	if hooks := n.tree.cfg.hooks; hooks.Enabled() {
		hooks.Notify(activity.NewSetEvent(key.path(), old, value, n.SnapshotID()))
	}
	return nil
}

// Delete removes the explicit value for a declared option, restoring its
// default behavior. Deleting an option that has no explicit value is a no-op.
func (m *MutableOptions) Delete(name string) error {
	n := m.Options
	if _, ok := n.children[name]; ok {
		return &ResolutionError{Path: joinPath(n.path, name), Err: ErrNotAnOption}
	}
	if _, ok := n.spec.options[name]; !ok {
		return &ResolutionError{Path: joinPath(n.path, name), Err: ErrUnknownOption}
	}

	old, explicit := n.raw[name]
	if !explicit {
		return nil
	}
	delete(n.raw, name)

	key := depKey{node: n, name: name}
	n.tree.invalidate(key)

	if hooks := n.tree.cfg.hooks; hooks.Enabled() {
		hooks.Notify(activity.NewDeletedEvent(key.path(), old, n.SnapshotID()))
	}
	return nil
}
