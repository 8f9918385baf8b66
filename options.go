package reactive

import (
	"strings"

	"github.com/goliatone/go-reactive/pkg/activity"
	"github.com/goliatone/go-reactive/pkg/state"
	"go.uber.org/zap"
)

// Option configures a Hub.
type Option func(*hubConfig)

type hubConfig struct {
	name         string
	eventName    string
	dispatch     state.DispatchFunc
	target       state.Target
	initialState map[string]any
	mutations    Mutations
	logger       *zap.Logger

	evaluator       Evaluator
	engine          string
	programCache    ProgramCache
	functions       *FunctionRegistry
	evaluatorLogger EvaluatorLogger

	activityHooks  activity.Hooks
	activityConfig *activity.Config

	errs []error
}

func applyOptions(opts []Option) hubConfig {
	cfg := hubConfig{
		eventName: state.DefaultEventName,
		engine:    EngineExpr,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Guard engines accepted by WithEngine.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// WithName labels the hub in logs and activity metadata.
func WithName(name string) Option {
	return func(cfg *hubConfig) {
		cfg.name = strings.TrimSpace(name)
	}
}

// WithEventName sets the channel state events are published under. It
// defaults to state.DefaultEventName.
func WithEventName(name string) Option {
	return func(cfg *hubConfig) {
		if name = strings.TrimSpace(name); name != "" {
			cfg.eventName = name
		}
	}
}

// WithDispatch replaces the function publishing events on the target. It
// must deliver them under the hub event name for watchers to fire.
func WithDispatch(fn state.DispatchFunc) Option {
	return func(cfg *hubConfig) {
		cfg.dispatch = fn
	}
}

// WithTarget shares target with other hubs. Each hub ignores events produced
// by the others.
func WithTarget(target state.Target) Option {
	return func(cfg *hubConfig) {
		cfg.target = target
	}
}

// WithInitialState installs tree when the hub is built.
func WithInitialState(tree map[string]any) Option {
	return func(cfg *hubConfig) {
		cfg.initialState = tree
	}
}

// WithMutations registers mutations when the hub is built.
func WithMutations(mutations Mutations) Option {
	return func(cfg *hubConfig) {
		if cfg.mutations == nil {
			cfg.mutations = Mutations{}
		}
		for name, fn := range mutations {
			cfg.mutations[name] = fn
		}
	}
}

// WithLogger sets the hub logger. The state manager logs through a named
// child.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *hubConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithEvaluator replaces the guard evaluator. It takes precedence over
// WithEngine.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *hubConfig) {
		cfg.evaluator = e
	}
}

// WithEngine selects the builtin guard evaluator: expr, cel or js.
func WithEngine(engine string) Option {
	return func(cfg *hubConfig) {
		if engine = strings.ToLower(strings.TrimSpace(engine)); engine != "" {
			cfg.engine = engine
		}
	}
}

// WithProgramCache shares compiled guard programs between hubs.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *hubConfig) {
		cfg.programCache = cache
	}
}

// WithActivityHooks forwards every published state event to hooks. Nil
// hooks are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *hubConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig overrides the activity defaults. Without it emission is
// enabled whenever hooks are set.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *hubConfig) {
		cfg.activityConfig = &config
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make(activity.Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}
