package factory

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/goliatone/go-factory/pkg/activity"
)

// CreateOption configures one Create or CreateMutable call.
type CreateOption func(*createConfig)

type createConfig struct {
	embedded   bool
	evaluator  Evaluator
	cache      ProgramCache
	functions  *FunctionRegistry
	logger     EvaluatorLogger
	hooks      activity.Hooks
	snapshotID string
}

func applyCreateOptions(opts []CreateOption) createConfig {
	cfg := createConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Embedded makes unknown override keys silently ignored instead of failing.
func Embedded() CreateOption {
	return func(cfg *createConfig) {
		cfg.embedded = true
	}
}

// WithEvaluator configures the rule engine used for string default
// expressions. Without it, an expr-lang evaluator is constructed on first
// use.
func WithEvaluator(e Evaluator) CreateOption {
	return func(cfg *createConfig) {
		cfg.evaluator = e
	}
}

// WithProgramCache shares a compiled-rule cache across trees.
func WithProgramCache(cache ProgramCache) CreateOption {
	return func(cfg *createConfig) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry exposes registry's functions to rule expressions.
func WithFunctionRegistry(registry *FunctionRegistry) CreateOption {
	return func(cfg *createConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for rule expressions.
func WithCustomFunction(name string, fn Function) CreateOption {
	return func(cfg *createConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithEvaluatorLogger records every rule evaluation performed by the tree.
func WithEvaluatorLogger(logger EvaluatorLogger) CreateOption {
	return func(cfg *createConfig) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithActivityHooks attaches lifecycle hooks notified on tree creation and,
// for mutable trees, on Set and Delete.
func WithActivityHooks(hooks activity.Hooks) CreateOption {
	normalized := hooks.Compact()
	return func(cfg *createConfig) {
		cfg.hooks = normalized
	}
}

// WithSnapshotID overrides the generated snapshot identifier.
func WithSnapshotID(id string) CreateOption {
	return func(cfg *createConfig) {
		cfg.snapshotID = id
	}
}

func (f *Factory) create(values map[string]any, opts []CreateOption) (*Options, error) {
	cfg := applyCreateOptions(opts)
	if cfg.snapshotID == "" {
		cfg.snapshotID = uuid.NewString()
	}
	tree := newTreeState(cfg)

	// The whole node skeleton exists, parent back-references included,
	// before any value is stored or evaluated: expressions can navigate
	// the full tree from the first read.
	root := buildNode(f.root, nil, tree, "")
	if err := root.applyValues(values, cfg.embedded); err != nil {
		return nil, err
	}

	if cfg.hooks.Enabled() {
		cfg.hooks.Notify(activity.NewCreatedEvent(cfg.snapshotID))
	}
	return root, nil
}

func buildNode(spec *section, parent *Options, tree *treeState, path string) *Options {
	n := &Options{
		spec:     spec,
		parent:   parent,
		tree:     tree,
		path:     path,
		raw:      make(map[string]any),
		cache:    make(map[string]any),
		children: make(map[string]*Options),
	}
	for name, child := range spec.sections {
		n.children[name] = buildNode(child, n, tree, joinPath(path, name))
	}
	return n
}

// applyValues partitions override keys against declared names and stores raw
// leaf overrides without evaluating anything.
func (n *Options) applyValues(values map[string]any, embedded bool) error {
	for key, value := range values {
		if child, ok := n.children[key]; ok {
			sub, err := asOverrideMap(value)
			if err != nil {
				return &ResolutionError{Path: joinPath(n.path, key), Err: fmt.Errorf("factory: section override must be a mapping: %w", err)}
			}
			if err := child.applyValues(sub, embedded); err != nil {
				return err
			}
			continue
		}
		if _, ok := n.spec.options[key]; ok {
			n.raw[key] = value
			continue
		}
		if embedded {
			continue
		}
		return &ResolutionError{Path: joinPath(n.path, key), Err: ErrUnknownKey}
	}
	return nil
}

func asOverrideMap(value any) (map[string]any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("got %T", value)
	}
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
