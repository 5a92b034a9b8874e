package factory

import (
	"errors"
	"time"
)

// depKey identifies one option in one node of a resolved tree.
type depKey struct {
	node *Options
	name string
}

func (k depKey) path() string {
	return joinPath(k.node.path, k.name)
}

// treeState is owned by the root of a resolved tree and threads the
// evaluation context through every expression call: the in-progress stack
// for cycle detection and the (consumer, dependency) edge graph driving
// mutable-tree invalidation. No ambient or global evaluation state exists.
type treeState struct {
	cfg createConfig

	// stack holds the (node, option) pairs currently mid-evaluation.
	stack []depKey

	// consumers maps a dependency to the cached entries computed by reading
	// it; depsOf is the reverse view used to retire a consumer's edges when
	// its cache entry is cleared.
	consumers map[depKey]map[depKey]struct{}
	depsOf    map[depKey][]depKey

	// rules memoizes compiled rule programs when no ProgramCache is set.
	rules map[string]CompiledRule
}

func newTreeState(cfg createConfig) *treeState {
	return &treeState{
		cfg:       cfg,
		consumers: make(map[depKey]map[depKey]struct{}),
		depsOf:    make(map[depKey][]depKey),
		rules:     make(map[string]CompiledRule),
	}
}

func (t *treeState) recordEdge(dep depKey) {
	if len(t.stack) == 0 {
		return
	}
	consumer := t.stack[len(t.stack)-1]
	if consumer == dep {
		return
	}
	set, ok := t.consumers[dep]
	if !ok {
		set = make(map[depKey]struct{})
		t.consumers[dep] = set
	}
	if _, seen := set[consumer]; seen {
		return
	}
	set[consumer] = struct{}{}
	t.depsOf[consumer] = append(t.depsOf[consumer], dep)
}

func (t *treeState) cycleFrom(key depKey) []string {
	for i, k := range t.stack {
		if k == key {
			chain := make([]string, 0, len(t.stack)-i+1)
			for _, c := range t.stack[i:] {
				chain = append(chain, c.path())
			}
			return append(chain, key.path())
		}
	}
	return nil
}

// invalidate clears the cached value for key and, transitively, every cached
// value anywhere in the tree computed by reading it. Entries are cleared, not
// recomputed; the next read re-runs resolution.
func (t *treeState) invalidate(key depKey) {
	t.invalidateVisit(key, make(map[depKey]struct{}))
}

func (t *treeState) invalidateVisit(key depKey, seen map[depKey]struct{}) {
	if _, done := seen[key]; done {
		return
	}
	seen[key] = struct{}{}

	waiting := make([]depKey, 0, len(t.consumers[key]))
	for consumer := range t.consumers[key] {
		waiting = append(waiting, consumer)
	}
	t.clearEntry(key)
	for _, consumer := range waiting {
		t.invalidateVisit(consumer, seen)
	}
}

func (t *treeState) clearEntry(key depKey) {
	delete(key.node.cache, key.name)
	for _, dep := range t.depsOf[key] {
		delete(t.consumers[dep], key)
	}
	delete(t.depsOf, key)
}

// resolve implements the lazy, memoized resolution algorithm: explicit value
// first, then literal default, then expression or rule evaluated with this
// node as scope. Validation runs on every resolution; a failing value is
// never cached, so the failure is re-raised deterministically on re-reads.
func (n *Options) resolve(name string) (any, error) {
	if child, ok := n.children[name]; ok {
		return child, nil
	}
	opt, ok := n.spec.options[name]
	if !ok {
		return nil, &ResolutionError{Path: joinPath(n.path, name), Err: ErrUnknownOption}
	}

	key := depKey{node: n, name: name}
	n.tree.recordEdge(key)

	if v, cached := n.cache[name]; cached {
		return v, nil
	}

	var (
		value any
		err   error
	)
	if raw, explicit := n.raw[name]; explicit {
		if def, evaluatable := asEvaluatable(raw); evaluatable {
			value, err = n.evaluateDefault(key, def)
		} else {
			value = raw
		}
	} else if opt.def == nil {
		return nil, &ResolutionError{Path: key.path(), Err: ErrRequired}
	} else {
		value, err = n.evaluateDefault(key, opt.def)
	}
	if err != nil {
		return nil, err
	}
	if err := checkValue(value, opt, key.path()); err != nil {
		return nil, err
	}
	n.cache[name] = value
	return value, nil
}

// evaluateDefault runs one default variant with cycle detection around it.
func (n *Options) evaluateDefault(key depKey, def Default) (any, error) {
	if chain := n.tree.cycleFrom(key); chain != nil {
		return nil, &ResolutionError{Path: key.path(), Cycle: chain, Err: ErrCycle}
	}
	n.tree.stack = append(n.tree.stack, key)
	defer func() {
		n.tree.stack = n.tree.stack[:len(n.tree.stack)-1]
	}()

	switch d := def.(type) {
	case Literal:
		return d.Value, nil
	case ExprFunc:
		value, err := d(n)
		if err != nil {
			return nil, wrapEvaluationError("func", "", key.path(), err)
		}
		return value, nil
	case Rule:
		return n.evaluateRule(key, string(d))
	default:
		return nil, &ResolutionError{Path: key.path(), Err: errors.New("factory: unsupported default variant")}
	}
}

func (n *Options) evaluateRule(key depKey, expression string) (any, error) {
	evaluator := n.tree.resolveEvaluator()
	program, err := n.tree.loadOrCompile(evaluator, expression)
	if err != nil {
		return nil, wrapEvaluationError(engineName(evaluator), expression, key.path(), err)
	}

	ctx := RuleContext{
		Path:  key.path(),
		Names: n.spec.orderedNames(),
		Lookup: func(ref string) (any, bool, error) {
			if _, ok := n.spec.options[ref]; ok {
				v, err := n.resolve(ref)
				return v, true, err
			}
			if child, ok := n.children[ref]; ok {
				m, err := child.ToMap(true)
				return m, true, err
			}
			return nil, false, nil
		},
	}

	start := time.Now()
	value, evalErr := program.Evaluate(ctx)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engineName(evaluator), expression, key.path(), evalErr)
	n.tree.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:   engineName(evaluator),
		Expr:     expression,
		Path:     key.path(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

func (t *treeState) resolveEvaluator() Evaluator {
	if t.cfg.evaluator != nil {
		return t.cfg.evaluator
	}
	var exprOpts []ExprEvaluatorOption
	if t.cfg.cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(t.cfg.cache))
	}
	if t.cfg.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(t.cfg.functions))
	}
	t.cfg.evaluator = NewExprEvaluator(exprOpts...)
	return t.cfg.evaluator
}

func (t *treeState) loadOrCompile(evaluator Evaluator, expression string) (CompiledRule, error) {
	if t.cfg.cache != nil {
		if cached, ok := t.cfg.cache.Get(expression); ok {
			if program, ok := cached.(CompiledRule); ok {
				return program, nil
			}
		}
		program, err := evaluator.Compile(expression)
		if err != nil {
			return nil, err
		}
		t.cfg.cache.Set(expression, program)
		return program, nil
	}
	if program, ok := t.rules[expression]; ok {
		return program, nil
	}
	program, err := evaluator.Compile(expression)
	if err != nil {
		return nil, err
	}
	t.rules[expression] = program
	return program, nil
}

func (t *treeState) evaluatorLogger() EvaluatorLogger {
	if t.cfg.logger != nil {
		return t.cfg.logger
	}
	return noopEvaluatorLogger{}
}

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}
