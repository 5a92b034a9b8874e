package factory

// SchemaFormatDescriptors identifies the built-in flat descriptor format.
const SchemaFormatDescriptors = "descriptors"

// SchemaDocument is a serializable view of a factory's declarations.
type SchemaDocument struct {
	Format string            `json:"format"`
	Fields []FieldDescriptor `json:"fields"`
}

// FieldDescriptor describes one declared option at its dotted path.
type FieldDescriptor struct {
	Path       string   `json:"path"`
	Doc        string   `json:"doc,omitempty"`
	Types      []string `json:"types,omitempty"`
	Allowed    []any    `json:"allowed,omitempty"`
	Required   bool     `json:"required,omitempty"`
	HasDefault bool     `json:"has_default,omitempty"`
	Default    any      `json:"default,omitempty"`
}

// Describe flattens the factory's declarations into a descriptor document,
// leaves in declaration order. Literal defaults are carried verbatim;
// expression and rule defaults report HasDefault without a value since they
// depend on the resolved tree.
func Describe(f *Factory) SchemaDocument {
	doc := SchemaDocument{
		Format: SchemaFormatDescriptors,
		Fields: []FieldDescriptor{},
	}
	describeSection(f.root, "", &doc)
	return doc
}

func describeSection(s *section, prefix string, doc *SchemaDocument) {
	for _, name := range s.orderedNames() {
		path := joinPath(prefix, name)
		if child, ok := s.sections[name]; ok {
			describeSection(child, path, doc)
			continue
		}
		opt := s.options[name]
		field := FieldDescriptor{
			Path:    path,
			Doc:     opt.meta.Doc,
			Allowed: append([]any(nil), opt.meta.Allowed...),
		}
		for _, t := range opt.meta.Types {
			field.Types = append(field.Types, t.String())
		}
		if opt.def == nil {
			field.Required = true
		} else {
			field.HasDefault = true
			if lit, ok := opt.def.(Literal); ok {
				field.Default = lit.Value
			}
		}
		doc.Fields = append(doc.Fields, field)
	}
}
