package factory

// Decl is one declaration applied while building a section tree: an option,
// an inline section, a section imported from another factory, or a merge of
// another factory's whole declaration set.
type Decl struct {
	apply func(b *sectionBuilder) error
}

// Opt declares a named option. The value may be a bare literal, an ExprFunc,
// a Rule, or a WithMeta carrying constraints and documentation. Under Add,
// a bare value replaces only the default of an existing option while a
// WithMeta replaces all of its metadata.
func Opt(name string, value any) Decl {
	return Decl{apply: func(b *sectionBuilder) error {
		if err := b.checkName(name); err != nil {
			return err
		}
		return b.putOption(name, value)
	}}
}

// Sec declares an inline subsection. Under Add, Sec on an existing section
// applies its declarations as a recursive extension.
func Sec(name string, decls ...Decl) Decl {
	return Decl{apply: func(b *sectionBuilder) error {
		if err := b.checkName(name); err != nil {
			return err
		}
		return b.putSection(name, decls)
	}}
}

// Sub mounts an existing factory's declarations as a subsection. Mounting
// over an existing name is forbidden: options from the mounted factory could
// silently overwrite metadata in the existing section. Use Sec to extend.
func Sub(name string, f *Factory) Decl {
	return Decl{apply: func(b *sectionBuilder) error {
		if err := b.checkName(name); err != nil {
			return err
		}
		return b.putSub(name, f)
	}}
}

// Include merges every entry of another factory into the section being
// declared. On a name collision the later source wins; this is the documented
// multi-source composition policy, not an error.
func Include(f *Factory) Decl {
	return Decl{apply: func(b *sectionBuilder) error {
		return b.include(f)
	}}
}

type sectionBuilder struct {
	sec      *section
	path     string
	adding   bool
	declared map[string]struct{}
}

func newSectionBuilder(name, path string) *sectionBuilder {
	return &sectionBuilder{
		sec:      newSection(name),
		path:     path,
		declared: make(map[string]struct{}),
	}
}

func (b *sectionBuilder) childPath(name string) string {
	if b.path == "" {
		return name
	}
	return b.path + "." + name
}

func (b *sectionBuilder) checkName(name string) error {
	if name == "" {
		return definitionErrorf(b.path, "empty option or section name")
	}
	return nil
}

// markDeclared guards against the same name being explicitly declared twice
// in one New or Add call. Include collisions bypass this: later sources win.
func (b *sectionBuilder) markDeclared(name string) error {
	if _, dup := b.declared[name]; dup {
		return definitionErrorf(b.childPath(name), "declared more than once")
	}
	b.declared[name] = struct{}{}
	return nil
}

func (b *sectionBuilder) putOption(name string, value any) error {
	if err := b.markDeclared(name); err != nil {
		return err
	}
	path := b.childPath(name)

	if _, isSection := b.sec.sections[name]; isSection {
		if b.adding {
			return definitionErrorf(path, "cannot replace a section with an option; use Sec to extend it")
		}
		return definitionErrorf(path, "name collides with a section")
	}

	existing, exists := b.sec.options[name]
	if exists && !b.adding {
		return definitionErrorf(path, "duplicate option name")
	}

	meta, isMeta := value.(WithMeta)
	if exists && !isMeta {
		// Bare value on an existing option: new default, metadata kept.
		replacement, err := existing.withDefault(path, value)
		if err != nil {
			return err
		}
		b.sec.replace(name, replacement)
		return nil
	}
	if !isMeta {
		meta = WithMeta{Default: value}
	}
	spec, err := buildOptionSpec(path, name, meta)
	if err != nil {
		return err
	}
	if exists {
		b.sec.replace(name, spec)
		return nil
	}
	b.sec.addOption(spec)
	return nil
}

func (b *sectionBuilder) putSection(name string, decls []Decl) error {
	if err := b.markDeclared(name); err != nil {
		return err
	}
	path := b.childPath(name)

	if _, isOption := b.sec.options[name]; isOption {
		return definitionErrorf(path, "name collides with an option")
	}
	existing, exists := b.sec.sections[name]
	if exists && !b.adding {
		return definitionErrorf(path, "duplicate section name")
	}

	child := newSectionBuilder(name, path)
	child.adding = b.adding && exists
	if exists {
		child.sec = existing.clone()
	}
	for _, decl := range decls {
		if decl.apply == nil {
			continue
		}
		if err := decl.apply(child); err != nil {
			return err
		}
	}
	if exists {
		b.sec.replaceSection(name, child.sec)
		return nil
	}
	b.sec.addSection(child.sec)
	return nil
}

func (b *sectionBuilder) putSub(name string, f *Factory) error {
	if err := b.markDeclared(name); err != nil {
		return err
	}
	path := b.childPath(name)
	if f == nil {
		return definitionErrorf(path, "nil factory")
	}
	if _, isOption := b.sec.options[name]; isOption {
		return definitionErrorf(path, "name collides with an option")
	}
	if _, isSection := b.sec.sections[name]; isSection {
		return definitionErrorf(path, "section already exists; use Sec to extend it")
	}
	mounted := f.root.clone()
	mounted.name = name
	b.sec.addSection(mounted)
	return nil
}

func (b *sectionBuilder) include(f *Factory) error {
	if f == nil {
		return definitionErrorf(b.path, "nil factory in Include")
	}
	src := f.root
	for _, name := range src.keys {
		if opt, ok := src.options[name]; ok {
			if _, isSection := b.sec.sections[name]; isSection {
				b.sec.removeSection(name)
			}
			if _, exists := b.sec.options[name]; exists {
				b.sec.replace(name, opt.clone())
			} else {
				b.sec.addOption(opt.clone())
			}
			continue
		}
		sub := src.sections[name].clone()
		if _, isOption := b.sec.options[name]; isOption {
			b.sec.removeOption(name)
		}
		if _, exists := b.sec.sections[name]; exists {
			b.sec.replaceSection(name, sub)
		} else {
			b.sec.addSection(sub)
		}
	}
	return nil
}
