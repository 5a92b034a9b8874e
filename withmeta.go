package factory

import (
	"fmt"
	"reflect"
)

// Default is the tagged variant behind an option's default value. Exactly one
// of the three implementations is stored per option: a Literal value, a Go
// closure over the resolution scope, or a Rule string compiled by the tree's
// configured Evaluator.
type Default interface {
	isDefault()
}

// Literal wraps a plain default value. Declaring a bare value through Opt is
// shorthand for Literal; the explicit form exists so nil can be a default
// (an absent default marks the option as required).
type Literal struct {
	Value any
}

func (Literal) isDefault() {}

// ExprFunc is a default computed from the resolved-tree node the option lives
// on. The scope is the option's position in the current tree, not where the
// spec was declared, so a spec reused in several positions resolves relative
// to each position.
type ExprFunc func(scope *Options) (any, error)

func (ExprFunc) isDefault() {}

// Rule is a string default expression evaluated by the tree's Evaluator.
// Identifiers resolve against sibling options and subsections of the owning
// node; use an ExprFunc for parent navigation.
type Rule string

func (Rule) isDefault() {}

// Check is a single-argument predicate applied to candidate values.
type Check func(value any) bool

// WithMeta bundles an option default with its constraints and documentation.
// Allowed and CheckAll/CheckAny are mutually exclusive; declaring both is a
// definition-time failure.
type WithMeta struct {
	// Default is a literal value, a Default variant, or nil for a required
	// option. Use Literal{nil} for an explicit nil default.
	Default any
	// Doc documents the option.
	Doc string
	// Types is the set of permitted runtime types; empty means unconstrained.
	Types []reflect.Type
	// Allowed is the fixed set of permitted values.
	Allowed []any
	// CheckAll predicates must all accept the value.
	CheckAll []Check
	// CheckAny predicates must include at least one that accepts the value.
	CheckAny []Check
}

// TypeOf returns the reflect.Type of T for use in WithMeta.Types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// optionSpec is the built leaf declaration. def is nil when the option is
// required, i.e. it has no usable default.
type optionSpec struct {
	name string
	meta WithMeta
	def  Default
}

func buildOptionSpec(path, name string, meta WithMeta) (*optionSpec, error) {
	if len(meta.Allowed) > 0 && (len(meta.CheckAll) > 0 || len(meta.CheckAny) > 0) {
		return nil, definitionErrorf(path, "cannot set both allowed values and check predicates")
	}
	for _, check := range meta.CheckAll {
		if check == nil {
			return nil, definitionErrorf(path, "nil check_all predicate")
		}
	}
	for _, check := range meta.CheckAny {
		if check == nil {
			return nil, definitionErrorf(path, "nil check_any predicate")
		}
	}
	if _, ok := meta.Default.(WithMeta); ok {
		return nil, definitionErrorf(path, "WithMeta default cannot nest another WithMeta")
	}
	def, err := normalizeDefault(path, meta.Default)
	if err != nil {
		return nil, err
	}
	return &optionSpec{name: name, meta: meta, def: def}, nil
}

func normalizeDefault(path string, value any) (Default, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case Literal:
		return v, nil
	case ExprFunc:
		if v == nil {
			return nil, definitionErrorf(path, "nil expression default")
		}
		return v, nil
	case func(scope *Options) (any, error):
		if v == nil {
			return nil, definitionErrorf(path, "nil expression default")
		}
		return ExprFunc(v), nil
	case Rule:
		if v == "" {
			return nil, definitionErrorf(path, "empty rule default")
		}
		return v, nil
	default:
		return Literal{Value: value}, nil
	}
}

// asEvaluatable reports whether a raw user-supplied value is itself a default
// variant needing evaluation: expressions are usable as explicit values, with
// the same dependency tracking and invalidation as defaults.
func asEvaluatable(value any) (Default, bool) {
	switch v := value.(type) {
	case ExprFunc:
		return v, v != nil
	case func(scope *Options) (any, error):
		return ExprFunc(v), v != nil
	case Rule:
		return v, v != ""
	default:
		return nil, false
	}
}

func (o *optionSpec) clone() *optionSpec {
	dup := *o
	dup.meta.Types = append([]reflect.Type(nil), o.meta.Types...)
	dup.meta.Allowed = append([]any(nil), o.meta.Allowed...)
	dup.meta.CheckAll = append([]Check(nil), o.meta.CheckAll...)
	dup.meta.CheckAny = append([]Check(nil), o.meta.CheckAny...)
	return &dup
}

// withDefault returns a copy keeping constraints and doc but swapping the
// default, implementing bare-value extension semantics.
func (o *optionSpec) withDefault(path string, value any) (*optionSpec, error) {
	dup := o.clone()
	def, err := normalizeDefault(path, value)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, definitionErrorf(path, "replacement default must not be nil; use Literal{nil} or WithMeta")
	}
	dup.def = def
	dup.meta.Default = value
	return dup, nil
}

func typeNames(types []reflect.Type) string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.String())
	}
	return fmt.Sprintf("%v", names)
}
