package factory

import (
	"errors"
	"strings"
	"testing"
)

var evaluatorFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Evaluator
}{
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []ExprEvaluatorOption{}
			if cache != nil {
				opts = append(opts, ExprWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, ExprWithFunctionRegistry(registry))
			}
			return NewExprEvaluator(opts...)
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []CELEvaluatorOption{}
			if cache != nil {
				opts = append(opts, CELWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, CELWithFunctionRegistry(registry))
			}
			return NewCELEvaluator(opts...)
		},
	},
	{
		name: "js",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []JSEvaluatorOption{}
			if cache != nil {
				opts = append(opts, JSWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, JSWithFunctionRegistry(registry))
			}
			return NewJSEvaluator(opts...)
		},
	},
}

func numericValue(t *testing.T, v any) float64 {
	t.Helper()
	f, ok := asFloat(v)
	if !ok {
		t.Fatalf("expected numeric result, got %T (%v)", v, v)
	}
	return f
}

func TestEvaluatorsResolveRules(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			evaluator := factory.new(nil, nil)
			if evaluator == nil {
				t.Skip("evaluator unavailable in this build")
			}

			f := MustNew(
				Opt("a", 2),
				Opt("b", Rule("a + 5")),
				Opt("c", Rule("b * 2")),
			)
			tree, err := f.Create(nil, WithEvaluator(evaluator))
			if err != nil {
				t.Fatalf("unexpected error from Create: %v", err)
			}

			c, err := tree.Get("c")
			if err != nil {
				t.Fatalf("unexpected error resolving c: %v", err)
			}
			if got := numericValue(t, c); got != 14 {
				t.Fatalf("expected c = 14, got %v", got)
			}
		})
	}
}

func TestEvaluatorsReportUnknownReferences(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			evaluator := factory.new(nil, nil)
			if evaluator == nil {
				t.Skip("evaluator unavailable in this build")
			}

			f := MustNew(Opt("a", Rule("nope + 1")))
			tree, err := f.Create(nil, WithEvaluator(evaluator))
			if err != nil {
				t.Fatalf("unexpected error from Create: %v", err)
			}
			if _, err := tree.Get("a"); err == nil {
				t.Fatalf("expected unknown reference to fail")
			}
		})
	}
}

func TestEvaluatorsCallRegisteredFunctions(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			registry := NewFunctionRegistry()
			if err := registry.Register("double", func(args ...any) (any, error) {
				if len(args) != 1 {
					return nil, errors.New("double takes one argument")
				}
				f, ok := asFloat(args[0])
				if !ok {
					return nil, errors.New("double takes a number")
				}
				return f * 2, nil
			}); err != nil {
				t.Fatalf("unexpected error from Register: %v", err)
			}

			evaluator := factory.new(nil, registry)
			if evaluator == nil {
				t.Skip("evaluator unavailable in this build")
			}

			f := MustNew(
				Opt("a", 3),
				Opt("b", Rule(`call("double", a)`)),
			)
			tree, err := f.Create(nil, WithEvaluator(evaluator))
			if err != nil {
				t.Fatalf("unexpected error from Create: %v", err)
			}
			b, err := tree.Get("b")
			if err != nil {
				t.Fatalf("unexpected error resolving b: %v", err)
			}
			if got := numericValue(t, b); got != 6 {
				t.Fatalf("expected b = 6, got %v", got)
			}
		})
	}
}

func TestWithCustomFunctionUsesDefaultEngine(t *testing.T) {
	f := MustNew(Opt("greeting", Rule(`call("shout", "hi")`)))
	tree, err := f.Create(nil, WithCustomFunction("shout", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errors.New("shout takes one argument")
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, errors.New("shout takes a string")
		}
		return strings.ToUpper(s), nil
	}))
	if err != nil {
		t.Fatalf("unexpected error from Create: %v", err)
	}
	v, err := tree.GetString("greeting")
	if err != nil {
		t.Fatalf("unexpected error resolving greeting: %v", err)
	}
	if v != "HI" {
		t.Fatalf("expected HI, got %q", v)
	}
}

func TestProgramCacheSharedAcrossTrees(t *testing.T) {
	cache := NewMemoryProgramCache()
	f := MustNew(Opt("a", 1), Opt("b", Rule("a + 1")))

	for i := 0; i < 2; i++ {
		tree, err := f.Create(nil, WithProgramCache(cache))
		if err != nil {
			t.Fatalf("unexpected error from Create: %v", err)
		}
		if _, err := tree.Get("b"); err != nil {
			t.Fatalf("unexpected error resolving b: %v", err)
		}
	}
	if _, ok := cache.Get("a + 1"); !ok {
		t.Fatalf("expected compiled rule in shared cache")
	}
}

func TestEvaluatorLoggerObservesRuleRuns(t *testing.T) {
	var events []EvaluatorLogEvent
	logger := EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		events = append(events, event)
	})

	f := MustNew(Opt("a", 1), Opt("b", Rule("a + 1")))
	tree, err := f.Create(nil, WithEvaluatorLogger(logger))
	if err != nil {
		t.Fatalf("unexpected error from Create: %v", err)
	}
	if _, err := tree.Get("b"); err != nil {
		t.Fatalf("unexpected error resolving b: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("expected one logged evaluation, got %d", len(events))
	}
	event := events[0]
	if event.Engine != "expr" {
		t.Fatalf("expected expr engine, got %q", event.Engine)
	}
	if event.Expr != "a + 1" || event.Path != "b" {
		t.Fatalf("unexpected event fields: %+v", event)
	}
	if event.Err != nil {
		t.Fatalf("unexpected event error: %v", event.Err)
	}
}

func TestRuleReferencingSection(t *testing.T) {
	f := MustNew(
		Sec("server", Opt("port", 8080)),
		Opt("address", Rule(`"host:" + string(server.port)`)),
	)
	tree, err := f.Create(nil)
	if err != nil {
		t.Fatalf("unexpected error from Create: %v", err)
	}
	addr, err := tree.GetString("address")
	if err != nil {
		t.Fatalf("unexpected error resolving address: %v", err)
	}
	if addr != "host:8080" {
		t.Fatalf("expected host:8080, got %q", addr)
	}
}

func TestFunctionRegistryIsCaseInsensitive(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("Double", func(args ...any) (any, error) {
		return 2, nil
	}); err != nil {
		t.Fatalf("unexpected error from Register: %v", err)
	}
	if !registry.Has("double") || !registry.Has("DOUBLE") {
		t.Fatalf("expected case-insensitive lookup")
	}
	if _, err := registry.Call("dOuBlE"); err != nil {
		t.Fatalf("unexpected error from Call: %v", err)
	}

	clone := registry.Clone()
	if err := clone.Register("extra", func(args ...any) (any, error) { return nil, nil }); err != nil {
		t.Fatalf("unexpected error registering on clone: %v", err)
	}
	if registry.Has("extra") {
		t.Fatalf("expected clone registration to not leak into original")
	}
}

func TestCELRegistryErrorTextIsPreservedVerbatim(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("explode", func(args ...any) (any, error) {
		return nil, errors.New("bad percent value 100%s of %d")
	}); err != nil {
		t.Fatalf("unexpected error from Register: %v", err)
	}
	evaluator := NewCELEvaluator(CELWithFunctionRegistry(registry))

	_, err := evaluator.Evaluate(RuleContext{Path: "boom"}, `call("explode")`)
	if err == nil {
		t.Fatal("expected error from failing registry function")
	}
	if !strings.Contains(err.Error(), "bad percent value 100%s of %d") {
		t.Fatalf("registry error text was rewritten: %v", err)
	}
}

type unnamedEvaluator struct{}

func (unnamedEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	return nil, nil
}

func (unnamedEvaluator) Compile(expression string, opts ...CompileOption) (CompiledRule, error) {
	return nil, nil
}

func TestEngineName(t *testing.T) {
	for _, factory := range evaluatorFactories {
		evaluator := factory.new(nil, nil)
		if evaluator == nil {
			continue
		}
		if got := engineName(evaluator); got != factory.name {
			t.Fatalf("expected engine name %q, got %q", factory.name, got)
		}
	}
	if got := engineName(unnamedEvaluator{}); got != "custom" {
		t.Fatalf("expected custom for evaluators without a name, got %q", got)
	}
	if got := engineName(nil); got != "unknown" {
		t.Fatalf("expected unknown for nil evaluator, got %q", got)
	}
}
