//go:build js_eval

package factory

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSEvaluator constructs an Evaluator backed by goja. Option names are
// resolved lazily through the rule context, so only the identifiers a rule
// actually touches are pulled from the scope.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	cfg := applyJSEvaluatorOptions(opts)
	return &jsEvaluator{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

// Name identifies the engine in log events and wrapped errors.
func (e *jsEvaluator) Name() string { return "js" }

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("js", fmt.Errorf("expression must not be empty"))
	}
	if e.cache == nil {
		return e.run(ctx, expression, nil)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, program)
}

func (e *jsEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("js", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsCompiledRule{
		evaluator:  e,
		expression: expression,
		program:    program,
	}, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", e.wrapExpression(expression), false)
	if err != nil {
		return nil, wrapEvaluatorError("js", err)
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *jsEvaluator) run(ctx RuleContext, expression string, program *goja.Program) (result any, err error) {
	vm := goja.New()
	e.injectContext(vm, ctx)
	defer func() {
		if recovered := recover(); recovered != nil {
			lookupErr, ok := recovered.(jsLookupError)
			if !ok {
				panic(recovered)
			}
			result = nil
			err = lookupErr.err
		}
	}()
	if program != nil {
		value, runErr := vm.RunProgram(program)
		if runErr != nil {
			return nil, wrapEvaluationError("js", expression, ctx.Path, runErr)
		}
		return value.Export(), nil
	}
	value, runErr := vm.RunString(e.wrapExpression(expression))
	if runErr != nil {
		return nil, wrapEvaluationError("js", expression, ctx.Path, runErr)
	}
	return value.Export(), nil
}

func (e *jsEvaluator) injectContext(vm *goja.Runtime, ctx RuleContext) {
	vm.Set("$scope", vm.NewDynamicObject(&jsScope{vm: vm, ctx: ctx}))
	if e.registry != nil {
		vm.Set("call", func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		})
		for _, name := range e.registry.Names() {
			fn := name
			vm.Set(fn, func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			})
		}
	}
}

func (e *jsEvaluator) wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ with($scope){ return (%s); } })()", expression)
}

// jsScope exposes the rule context as a lazy object. Lookup failures cannot
// surface through the goja property protocol, so they panic with a
// jsLookupError that run recovers.
type jsScope struct {
	vm  *goja.Runtime
	ctx RuleContext
}

type jsLookupError struct {
	err error
}

func (s *jsScope) Get(key string) goja.Value {
	if s.ctx.Lookup == nil {
		return goja.Undefined()
	}
	value, found, err := s.ctx.Lookup(key)
	if err != nil {
		panic(jsLookupError{err: err})
	}
	if !found {
		return goja.Undefined()
	}
	return s.vm.ToValue(value)
}

func (s *jsScope) Set(key string, value goja.Value) bool {
	return false
}

func (s *jsScope) Has(key string) bool {
	for _, name := range s.ctx.Names {
		if name == key {
			return true
		}
	}
	return false
}

func (s *jsScope) Delete(key string) bool {
	return false
}

func (s *jsScope) Keys() []string {
	return append([]string(nil), s.ctx.Names...)
}

type jsCompiledRule struct {
	evaluator  *jsEvaluator
	expression string
	program    *goja.Program
}

func (r *jsCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, fmt.Errorf("js compiled rule missing evaluator")
	}
	return r.evaluator.run(ctx, r.expression, r.program)
}

func jsEvaluatorAvailable() bool {
	return true
}
