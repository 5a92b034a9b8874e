// Package factory resolves hierarchical configuration trees from declared
// options with defaults, constraints, and documentation.
//
// A Factory is built once from declarations (Opt, Sec, Sub, Include) and
// turns raw override mappings into resolved trees via Create or
// CreateMutable. Defaults can be literal values, Go expressions over the
// resolved tree (ExprFunc), or string rules evaluated by a pluggable engine:
// expr-lang by default, cel-go via NewCELEvaluator, and goja behind the
// js_eval build tag. Values resolve lazily, are cached per tree, and caches
// invalidate dependency-aware on mutable Set and Delete.
package factory
