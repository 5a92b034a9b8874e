package factory

import (
	"fmt"
	"strconv"
	"strings"
)

// Options is one node of a resolved tree: a pre-defined set of options whose
// values resolve lazily from explicit overrides or defaults, with resolved
// values cached per node.
//
// Trees returned by Factory.Create are immutable: a cached value never
// changes once computed. Resolution is not internally synchronised, so two
// goroutines racing to first-read the same option may both evaluate it;
// benign for pure expressions, otherwise call ResolveAll on one goroutine
// before sharing the tree.
type Options struct {
	spec     *section
	parent   *Options
	tree     *treeState
	path     string
	raw      map[string]any
	cache    map[string]any
	children map[string]*Options
}

// Item is one (name, value) pair produced by Items. Subsections appear as
// *Options values.
type Item struct {
	Name  string
	Value any
}

// SnapshotID identifies this resolved tree for traces and activity events.
func (n *Options) SnapshotID() string {
	return n.tree.cfg.snapshotID
}

// Parent returns the enclosing node, or nil at the root.
func (n *Options) Parent() *Options {
	return n.parent
}

// Path returns the dotted path of this node from the root; empty at the root.
func (n *Options) Path() string {
	return n.path
}

// Has reports whether name is a declared option or subsection of this node.
func (n *Options) Has(name string) bool {
	return n.spec.has(name)
}

// Len returns the number of declared options and subsections.
func (n *Options) Len() int {
	return len(n.spec.orderedNames())
}

// Keys returns declared names in declaration order.
func (n *Options) Keys() []string {
	return n.spec.orderedNames()
}

// Get resolves name, evaluating and caching its default on first read.
// Subsection names yield the child *Options node.
func (n *Options) Get(name string) (any, error) {
	return n.resolve(name)
}

// MustGet is Get, panicking on failure. Intended for ExprFunc bodies and
// tests where a resolution failure is a programming error.
func (n *Options) MustGet(name string) any {
	v, err := n.resolve(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Section returns the named child node.
func (n *Options) Section(name string) (*Options, error) {
	child, ok := n.children[name]
	if !ok {
		return nil, &ResolutionError{Path: joinPath(n.path, name), Err: ErrUnknownOption}
	}
	return child, nil
}

// Doc returns the documentation string declared for name.
func (n *Options) Doc(name string) (string, bool) {
	opt, ok := n.spec.options[name]
	if !ok || opt.meta.Doc == "" {
		return "", false
	}
	return opt.meta.Doc, true
}

// Docs returns the dotted-path documentation view for this subtree.
func (n *Options) Docs() map[string]string {
	docs := make(map[string]string)
	collectDocs(n.spec, "", docs)
	return docs
}

// IsDefault reports whether name currently resolves from its default rather
// than an explicit override. Section names are not options and fail.
func (n *Options) IsDefault(name string) (bool, error) {
	if _, ok := n.children[name]; ok {
		return false, &ResolutionError{Path: joinPath(n.path, name), Err: ErrNotAnOption}
	}
	if _, ok := n.spec.options[name]; !ok {
		return false, &ResolutionError{Path: joinPath(n.path, name), Err: ErrUnknownOption}
	}
	_, explicit := n.raw[name]
	return !explicit, nil
}

// Items resolves every declared name in declaration order.
func (n *Options) Items() ([]Item, error) {
	names := n.spec.orderedNames()
	items := make([]Item, 0, len(names))
	for _, name := range names {
		v, err := n.resolve(name)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Name: name, Value: v})
	}
	return items, nil
}

// ToMap resolves the subtree into a nested mapping. With withDefaults false
// only explicitly-set values are exported, the shape consumed by a save
// collaborator and accepted back by Create.
func (n *Options) ToMap(withDefaults bool) (map[string]any, error) {
	out := make(map[string]any)
	for _, name := range n.spec.orderedNames() {
		if child, ok := n.children[name]; ok {
			sub, err := child.ToMap(withDefaults)
			if err != nil {
				return nil, err
			}
			out[name] = sub
			continue
		}
		if !withDefaults {
			if _, explicit := n.raw[name]; !explicit {
				continue
			}
		}
		v, err := n.resolve(name)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// ResolveAll forces evaluation of every option in the subtree, joining any
// failures. Run it before sharing an immutable tree across goroutines.
func (n *Options) ResolveAll() error {
	var errs []error
	for _, name := range n.spec.orderedNames() {
		if child, ok := n.children[name]; ok {
			if err := child.ResolveAll(); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if _, err := n.resolve(name); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}

// GetString resolves name and converts the value to a string.
func (n *Options) GetString(name string) (string, error) {
	v, err := n.resolve(name)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// GetInt resolves name and converts the value to an int64.
func (n *Options) GetInt(name string) (int64, error) {
	v, err := n.resolve(name)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case string:
		i, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("factory: cannot convert %q to int64 for option %s: %w", t, joinPath(n.path, name), err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("factory: cannot convert %T to int64 for option %s", v, joinPath(n.path, name))
	}
}

// GetBool resolves name and converts the value to a bool.
func (n *Options) GetBool(name string) (bool, error) {
	v, err := n.resolve(name)
	if err != nil {
		return false, err
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, fmt.Errorf("factory: cannot convert %q to bool for option %s: %w", t, joinPath(n.path, name), err)
		}
		return b, nil
	case int:
		return t != 0, nil
	case int64:
		return t != 0, nil
	default:
		return false, fmt.Errorf("factory: cannot convert %T to bool for option %s", v, joinPath(n.path, name))
	}
}

// GetFloat resolves name and converts the value to a float64.
func (n *Options) GetFloat(name string) (float64, error) {
	v, err := n.resolve(name)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("factory: cannot convert %q to float64 for option %s: %w", t, joinPath(n.path, name), err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("factory: cannot convert %T to float64 for option %s", v, joinPath(n.path, name))
	}
}

// String renders the node like {a: 1 (default), sub: {...}}; options whose
// value cannot be resolved render as !error.
func (n *Options) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, name := range n.spec.orderedNames() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		if child, ok := n.children[name]; ok {
			sb.WriteString(child.String())
			continue
		}
		v, err := n.resolve(name)
		if err != nil {
			sb.WriteString("!error")
			continue
		}
		fmt.Fprintf(&sb, "%v", v)
		if isDefault, _ := n.IsDefault(name); isDefault {
			sb.WriteString(" (default)")
		}
	}
	sb.WriteString("}")
	return sb.String()
}
