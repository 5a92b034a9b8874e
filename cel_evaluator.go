package factory

import (
	"fmt"
	"sort"

	celgo "github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
// Registered functions are reachable through call("name", args...).
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Referenced
// identifiers are discovered from the parsed AST and declared as dyn
// variables on a per-expression environment.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Name identifies the engine in log events and wrapped errors.
func (e *celEvaluator) Name() string { return "cel" }

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	program, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return program.Evaluate(ctx)
}

func (e *celEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*celCompiledRule); ok {
				return program, nil
			}
		}
	}

	base, err := e.buildEnv(nil)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, "", err)
	}
	parsed, issues := base.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError("cel", expression, "", issues.Err())
	}
	refs := celIdentifiers(parsed.NativeRep().Expr())

	env, err := e.buildEnv(refs)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, "", err)
	}
	checked, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError("cel", expression, "", issues.Err())
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, "", err)
	}

	compiled := &celCompiledRule{
		evaluator:  e,
		program:    prg,
		expression: expression,
		refs:       refs,
	}
	if e.cache != nil {
		e.cache.Set(expression, compiled)
	}
	return compiled, nil
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	program    celgo.Program
	expression string
	refs       []string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	activation := make(map[string]any, len(r.refs)+1)
	for _, name := range r.refs {
		if ctx.Lookup != nil {
			value, found, err := ctx.Lookup(name)
			if err != nil {
				return nil, err
			}
			if found {
				activation[name] = value
				continue
			}
		}
		return nil, unknownReferenceError(name)
	}
	out, _, err := r.program.Eval(activation)
	if err != nil {
		return nil, wrapEvaluationError("cel", r.expression, ctx.Path, err)
	}
	return out.Value(), nil
}

func (e *celEvaluator) buildEnv(refs []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{}
	if e.registry != nil {
		// CEL overloads have fixed arity; registered functions accept up to
		// three arguments through call("name", ...).
		binding := celgo.FunctionBinding(e.callBinding())
		argTypes := []*celgo.Type{celgo.StringType}
		overloads := make([]celgo.FunctionOpt, 0, 4)
		for i := 0; i <= 3; i++ {
			overloads = append(overloads, celgo.Overload(
				fmt.Sprintf("call_dyn_%d", i),
				append([]*celgo.Type(nil), argTypes...),
				celgo.DynType,
				binding,
			))
			argTypes = append(argTypes, celgo.DynType)
		}
		opts = append(opts, celgo.Function("call", overloads...))
	}
	for _, name := range refs {
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) callBinding() func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		if e.registry == nil {
			return types.NewErr("factory: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("factory: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("factory: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.WrapErr(err)
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

// celIdentifiers walks the parsed AST collecting free identifiers, skipping
// comprehension-bound iteration and accumulation variables.
func celIdentifiers(root celast.Expr) []string {
	names := make(map[string]struct{})
	collectCELIdents(root, map[string]struct{}{}, names)
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func collectCELIdents(e celast.Expr, bound map[string]struct{}, out map[string]struct{}) {
	if e == nil {
		return
	}
	switch e.Kind() {
	case celast.IdentKind:
		name := e.AsIdent()
		if _, isBound := bound[name]; !isBound {
			out[name] = struct{}{}
		}
	case celast.SelectKind:
		collectCELIdents(e.AsSelect().Operand(), bound, out)
	case celast.CallKind:
		call := e.AsCall()
		if call.IsMemberFunction() {
			collectCELIdents(call.Target(), bound, out)
		}
		for _, arg := range call.Args() {
			collectCELIdents(arg, bound, out)
		}
	case celast.ListKind:
		for _, elem := range e.AsList().Elements() {
			collectCELIdents(elem, bound, out)
		}
	case celast.MapKind:
		for _, entry := range e.AsMap().Entries() {
			pair := entry.AsMapEntry()
			collectCELIdents(pair.Key(), bound, out)
			collectCELIdents(pair.Value(), bound, out)
		}
	case celast.StructKind:
		for _, field := range e.AsStruct().Fields() {
			collectCELIdents(field.AsStructField().Value(), bound, out)
		}
	case celast.ComprehensionKind:
		comp := e.AsComprehension()
		collectCELIdents(comp.IterRange(), bound, out)
		inner := make(map[string]struct{}, len(bound)+2)
		for name := range bound {
			inner[name] = struct{}{}
		}
		inner[comp.IterVar()] = struct{}{}
		inner[comp.AccuVar()] = struct{}{}
		collectCELIdents(comp.AccuInit(), inner, out)
		collectCELIdents(comp.LoopCondition(), inner, out)
		collectCELIdents(comp.LoopStep(), inner, out)
		collectCELIdents(comp.Result(), inner, out)
	}
}
