package factory

import "fmt"

// RuleContext carries the scope bindings available to a rule expression.
// Engines pull referenced identifiers through Lookup so resolution stays
// lazy: only names the expression actually reads are resolved, and cycle
// detection sees every read.
type RuleContext struct {
	// Path is the dotted path of the option being resolved, for errors.
	Path string
	// Names lists the identifiers Lookup can serve: the owning node's
	// options and subsections.
	Names []string
	// Lookup resolves one identifier. found is false when the name is not
	// declared on the owning node; engines then fall back to registered
	// functions before failing.
	Lookup func(name string) (value any, found bool, err error)
}

// Evaluator executes rule expressions against a scope context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expression string) (any, error)
	Compile(expression string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// namedEvaluator is implemented by the built-in engines; custom evaluators
// may implement it to surface their own name in log events and errors.
type namedEvaluator interface {
	Name() string
}

func engineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(namedEvaluator); ok {
		return named.Name()
	}
	return "custom"
}

func unknownReferenceError(name string) error {
	return fmt.Errorf("factory: rule references unknown name %q", name)
}
