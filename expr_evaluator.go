package factory

import (
	"fmt"
	"sort"

	exprlang "github.com/expr-lang/expr"
	exprast "github.com/expr-lang/expr/ast"
	exprparser "github.com/expr-lang/expr/parser"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry wires a FunctionRegistry into the expr evaluator.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// exprEvaluator executes rule expressions using github.com/expr-lang/expr.
// Identifiers are extracted from the parsed AST so only the names a rule
// actually reads are pulled through the scope Lookup.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr. It is
// the default engine for Rule defaults.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Name identifies the engine in log events and wrapped errors.
func (e *exprEvaluator) Name() string { return "expr" }

// Evaluate compiles and runs expression against ctx.
func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	program, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return program.Evaluate(ctx)
}

// Compile returns a compiled rule that binds referenced identifiers lazily
// per evaluation.
func (e *exprEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("expression must not be empty"))
	}
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*exprCompiledRule); ok {
				return program, nil
			}
		}
	}

	refs, err := exprIdentifiers(expression)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, "", err)
	}

	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if e.registry != nil {
		options = append(options, exprlang.Function("call", func(arguments ...any) (any, error) {
			if len(arguments) == 0 {
				return nil, fmt.Errorf("factory: call requires function name")
			}
			name, ok := arguments[0].(string)
			if !ok {
				return nil, fmt.Errorf("factory: call name must be string")
			}
			return e.registry.Call(name, arguments[1:]...)
		}))
		for _, name := range e.registry.Names() {
			fn := name
			options = append(options, exprlang.Function(fn, func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			}))
		}
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, "", err)
	}

	compiled := &exprCompiledRule{
		evaluator:  e,
		program:    program,
		expression: expression,
		refs:       refs,
	}
	if e.cache != nil {
		e.cache.Set(expression, compiled)
	}
	return compiled, nil
}

type exprCompiledRule struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
	refs       []string
}

func (r *exprCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	env, err := r.evaluator.environment(ctx, r.refs)
	if err != nil {
		return nil, err
	}
	result, err := exprvm.Run(r.program, env)
	if err != nil {
		return nil, wrapEvaluationError("expr", r.expression, ctx.Path, err)
	}
	return result, nil
}

func (e *exprEvaluator) environment(ctx RuleContext, refs []string) (map[string]any, error) {
	env := make(map[string]any, len(refs))
	for _, ref := range refs {
		if ctx.Lookup != nil {
			value, found, err := ctx.Lookup(ref)
			if err != nil {
				return nil, err
			}
			if found {
				env[ref] = value
				continue
			}
		}
		if ref == "call" && e.registry != nil {
			continue
		}
		if e.registry.Has(ref) {
			continue
		}
		return nil, unknownReferenceError(ref)
	}
	return env, nil
}

// exprIdentifiers parses expression and returns the identifiers it reads,
// sorted for deterministic binding.
func exprIdentifiers(expression string) ([]string, error) {
	tree, err := exprparser.Parse(expression)
	if err != nil {
		return nil, err
	}
	collector := &identCollector{names: make(map[string]struct{})}
	exprast.Walk(&tree.Node, collector)
	names := make([]string, 0, len(collector.names))
	for name := range collector.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

type identCollector struct {
	names map[string]struct{}
}

func (c *identCollector) Visit(node *exprast.Node) {
	if ident, ok := (*node).(*exprast.IdentifierNode); ok {
		c.names[ident.Value] = struct{}{}
	}
}
