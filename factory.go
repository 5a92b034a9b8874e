package factory

import (
	"fmt"
	"sort"
	"strings"
)

// Factory wraps a root section tree and turns raw override mappings into
// resolved trees. A factory is immutable: Add and composition produce new
// factories, and a single factory is safely reused across many Create calls.
//
//	f, err := factory.New(
//		factory.Opt("a", 1),
//		factory.Opt("b", factory.Rule("a + 5")),
//		factory.Opt("d", factory.WithMeta{
//			Default: 4,
//			Doc:     "option d",
//			Allowed: []any{4, 5, 6},
//		}),
//		factory.Sec("server",
//			factory.Opt("port", 8080),
//		),
//	)
type Factory struct {
	root *section
}

// New builds a factory from the supplied declarations. Conflicting or
// duplicate declarations fail here, never at resolution time.
func New(decls ...Decl) (*Factory, error) {
	b := newSectionBuilder("", "")
	for _, decl := range decls {
		if decl.apply == nil {
			continue
		}
		if err := decl.apply(b); err != nil {
			return nil, err
		}
	}
	return &Factory{root: b.sec}, nil
}

// MustNew is New for package-level factory declarations; it panics on a
// definition error.
func MustNew(decls ...Decl) *Factory {
	f, err := New(decls...)
	if err != nil {
		panic(err)
	}
	return f
}

// Add produces a more specific factory with extra or overridden options.
// Existing entries are copied; a bare value on an existing option replaces
// only its default while keeping doc, types, and constraints; a WithMeta
// replaces all metadata; Sec on an existing section extends it recursively.
func (f *Factory) Add(decls ...Decl) (*Factory, error) {
	b := newSectionBuilder("", "")
	b.sec = f.root.clone()
	b.adding = true
	for _, decl := range decls {
		if decl.apply == nil {
			continue
		}
		if err := decl.apply(b); err != nil {
			return nil, err
		}
	}
	return &Factory{root: b.sec}, nil
}

// Contains reports whether name is a declared option or section at the root.
func (f *Factory) Contains(name string) bool {
	return f.root.has(name)
}

// Keys returns the root's declared names in declaration order.
func (f *Factory) Keys() []string {
	return f.root.orderedNames()
}

// Docs returns a flat mapping of dotted option path to documentation string.
// Undocumented options are absent.
func (f *Factory) Docs() map[string]string {
	docs := make(map[string]string)
	collectDocs(f.root, "", docs)
	return docs
}

func collectDocs(s *section, prefix string, docs map[string]string) {
	for _, name := range s.orderedNames() {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		if opt, ok := s.options[name]; ok {
			if opt.meta.Doc != "" {
				docs[path] = opt.meta.Doc
			}
			continue
		}
		collectDocs(s.sections[name], path, docs)
	}
}

// Create resolves overrides into an immutable tree. With Embedded, unknown
// override keys are silently ignored instead of failing; use it when a
// broader tree's exported values are re-parsed by a narrower sub-factory.
func (f *Factory) Create(values map[string]any, opts ...CreateOption) (*Options, error) {
	return f.create(values, opts)
}

// CreateMutable resolves overrides into a tree that additionally supports
// Set and Delete with dependency-aware cache invalidation.
func (f *Factory) CreateMutable(values map[string]any, opts ...CreateOption) (*MutableOptions, error) {
	root, err := f.create(values, opts)
	if err != nil {
		return nil, err
	}
	return &MutableOptions{Options: root}, nil
}

// HelpTable renders an RST-style table of option names, descriptions, and
// evaluated defaults, nested sections flattened to dotted paths. Options
// whose default cannot be evaluated without user input show *Required*.
// Every line is prefixed with prefix, e.g. for indentation.
func (f *Factory) HelpTable(prefix string) string {
	probe, err := f.create(nil, nil)
	if err != nil {
		return ""
	}
	docs := f.Docs()

	type row struct {
		name, doc, value string
	}
	var rows []row
	var walk func(s *section, n *Options, path string)
	walk = func(s *section, n *Options, path string) {
		for _, name := range s.orderedNames() {
			full := name
			if path != "" {
				full = path + "." + name
			}
			if child, ok := s.sections[name]; ok {
				sub, _ := n.Section(name)
				walk(child, sub, full)
				continue
			}
			value := "*Required*"
			if v, err := n.Get(name); err == nil {
				value = fmt.Sprintf("%v", v)
			}
			rows = append(rows, row{name: full, doc: docs[full], value: value})
		}
	}
	walk(f.root, probe, "")
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })

	h1, h2, h3 := "Option", "Description", "Default"
	w1, w2, w3 := len(h1), len(h2), len(h3)
	for _, r := range rows {
		w1 = max(w1, len(r.name))
		w2 = max(w2, len(r.doc))
		w3 = max(w3, len(r.value))
	}

	line := func(fill string) string {
		return prefix + "+" + strings.Repeat(fill, w1) + "+" +
			strings.Repeat(fill, w2) + "+" + strings.Repeat(fill, w3) + "+\n"
	}
	cells := func(a, b, c string) string {
		return prefix + "|" + pad(a, w1) + "|" + pad(b, w2) + "|" + pad(c, w3) + "|\n"
	}

	var sb strings.Builder
	sb.WriteString(line("-"))
	sb.WriteString(cells(h1, h2, h3))
	sb.WriteString(line("="))
	for _, r := range rows {
		sb.WriteString(cells(r.name, r.doc, r.value))
		sb.WriteString(line("-"))
	}
	return sb.String()
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
