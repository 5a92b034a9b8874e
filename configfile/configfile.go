// Package configfile loads and saves override mappings in YAML and TOML,
// bridging files to factories: a loaded mapping feeds Factory.Create, and a
// resolved tree's explicit values round-trip back to a file.
package configfile

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	factory "github.com/goliatone/go-factory"
)

// Exporter is the subset of a resolved tree consumed by the writers. Both
// *factory.Options and *factory.MutableOptions satisfy it.
type Exporter interface {
	ToMap(withDefaults bool) (map[string]any, error)
}

// LoadYAML decodes a YAML document into an override mapping. An empty
// document yields an empty mapping.
func LoadYAML(r io.Reader) (map[string]any, error) {
	var raw any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("configfile: yaml decode: %w", err)
	}
	values, err := normalize(raw)
	if err != nil {
		return nil, err
	}
	mapping, ok := values.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("configfile: yaml document must be a mapping, got %T", values)
	}
	return mapping, nil
}

// LoadTOML decodes a TOML document into an override mapping.
func LoadTOML(r io.Reader) (map[string]any, error) {
	values := map[string]any{}
	if _, err := toml.NewDecoder(r).Decode(&values); err != nil {
		return nil, fmt.Errorf("configfile: toml decode: %w", err)
	}
	return values, nil
}

// WriteYAML exports the tree as a YAML document. With withDefaults false
// only explicitly-set values are written, the shape LoadYAML hands back to
// Factory.Create.
func WriteYAML(w io.Writer, tree Exporter, withDefaults bool) error {
	values, err := tree.ToMap(withDefaults)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(values); err != nil {
		return fmt.Errorf("configfile: yaml encode: %w", err)
	}
	return nil
}

// WriteTOML exports the tree as a TOML document.
func WriteTOML(w io.Writer, tree Exporter, withDefaults bool) error {
	values, err := tree.ToMap(withDefaults)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(w).Encode(values); err != nil {
		return fmt.Errorf("configfile: toml encode: %w", err)
	}
	return nil
}

// CreateYAML loads a YAML document and resolves it through f.
func CreateYAML(f *factory.Factory, r io.Reader, opts ...factory.CreateOption) (*factory.Options, error) {
	values, err := LoadYAML(r)
	if err != nil {
		return nil, err
	}
	return f.Create(values, opts...)
}

// CreateMutableYAML loads a YAML document and resolves it through f into a
// mutable tree.
func CreateMutableYAML(f *factory.Factory, r io.Reader, opts ...factory.CreateOption) (*factory.MutableOptions, error) {
	values, err := LoadYAML(r)
	if err != nil {
		return nil, err
	}
	return f.CreateMutable(values, opts...)
}

// CreateTOML loads a TOML document and resolves it through f.
func CreateTOML(f *factory.Factory, r io.Reader, opts ...factory.CreateOption) (*factory.Options, error) {
	values, err := LoadTOML(r)
	if err != nil {
		return nil, err
	}
	return f.Create(values, opts...)
}

// CreateMutableTOML loads a TOML document and resolves it through f into a
// mutable tree.
func CreateMutableTOML(f *factory.Factory, r io.Reader, opts ...factory.CreateOption) (*factory.MutableOptions, error) {
	values, err := LoadTOML(r)
	if err != nil {
		return nil, err
	}
	return f.CreateMutable(values, opts...)
}

// normalize rewrites decoded YAML so that every nested mapping is a
// map[string]any, the shape Factory.Create expects.
func normalize(value any) (any, error) {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, v := range typed {
			nv, err := normalize(v)
			if err != nil {
				return nil, err
			}
			out[key] = nv
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, v := range typed {
			ks, ok := key.(string)
			if !ok {
				return nil, fmt.Errorf("configfile: mapping key %v is %T, want string", key, key)
			}
			nv, err := normalize(v)
			if err != nil {
				return nil, err
			}
			out[ks] = nv
		}
		return out, nil
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			nv, err := normalize(v)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	default:
		return value, nil
	}
}
