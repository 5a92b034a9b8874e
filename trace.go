package factory

import (
	"encoding/json"
	"sort"
)

// Value provenance reported by Trace.
const (
	SourceExplicit   = "explicit"
	SourceLiteral    = "literal"
	SourceExpression = "expression"
	SourceRule       = "rule"
)

// Trace captures provenance for one resolved option: where its effective
// value came from and which other options its evaluation read.
type Trace struct {
	Path         string   `json:"path"`
	SnapshotID   string   `json:"snapshot_id,omitempty"`
	Source       string   `json:"source"`
	Value        any      `json:"value,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Trace resolves name and reports its provenance. Dependencies lists the
// dotted paths the option's expression read, sorted; it is empty for
// explicit and literal values.
func (n *Options) Trace(name string) (Trace, error) {
	value, err := n.resolve(name)
	if err != nil {
		return Trace{}, err
	}

	key := depKey{node: n, name: name}
	trace := Trace{
		Path:       key.path(),
		SnapshotID: n.SnapshotID(),
		Source:     n.traceSource(name),
		Value:      value,
	}
	for _, dep := range n.tree.depsOf[key] {
		trace.Dependencies = append(trace.Dependencies, dep.path())
	}
	sort.Strings(trace.Dependencies)
	return trace, nil
}

func (n *Options) traceSource(name string) string {
	if raw, explicit := n.raw[name]; explicit {
		if _, evaluatable := asEvaluatable(raw); !evaluatable {
			return SourceExplicit
		}
		return sourceOfDefault(raw)
	}
	return sourceOfDefault(n.spec.options[name].def)
}

func sourceOfDefault(def any) string {
	switch def.(type) {
	case Rule:
		return SourceRule
	case ExprFunc, func(scope *Options) (any, error):
		return SourceExpression
	default:
		return SourceLiteral
	}
}

// ToJSON serialises the trace for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload previously generated via ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
