package factory

// section is a built composite declaration: an ordered tree of option specs
// and nested sections. Sections are immutable once their factory is built;
// Add and Include work on clones.
type section struct {
	name     string
	keys     []string
	options  map[string]*optionSpec
	sections map[string]*section
}

func newSection(name string) *section {
	return &section{
		name:     name,
		options:  make(map[string]*optionSpec),
		sections: make(map[string]*section),
	}
}

func (s *section) addOption(o *optionSpec) {
	s.keys = append(s.keys, o.name)
	s.options[o.name] = o
}

func (s *section) addSection(child *section) {
	s.keys = append(s.keys, child.name)
	s.sections[child.name] = child
}

// replace swaps an option in place, keeping its declaration-order slot.
func (s *section) replace(name string, o *optionSpec) {
	s.options[name] = o
}

func (s *section) replaceSection(name string, child *section) {
	s.sections[name] = child
}

func (s *section) removeOption(name string) {
	delete(s.options, name)
	s.removeKey(name)
}

func (s *section) removeSection(name string) {
	delete(s.sections, name)
	s.removeKey(name)
}

func (s *section) removeKey(name string) {
	for i, key := range s.keys {
		if key == name {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			return
		}
	}
}

func (s *section) has(name string) bool {
	if _, ok := s.options[name]; ok {
		return true
	}
	_, ok := s.sections[name]
	return ok
}

func (s *section) clone() *section {
	dup := newSection(s.name)
	dup.keys = append([]string(nil), s.keys...)
	for name, opt := range s.options {
		dup.options[name] = opt.clone()
	}
	for name, child := range s.sections {
		dup.sections[name] = child.clone()
	}
	return dup
}

// Include collisions can delete then re-add keys, so keys may contain names
// dropped from both maps; iterate defensively.
func (s *section) orderedNames() []string {
	names := make([]string, 0, len(s.keys))
	for _, name := range s.keys {
		if s.has(name) {
			names = append(names, name)
		}
	}
	return names
}
