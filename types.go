package reactive

import (
	"strings"
	"time"
)

// RuleContext carries inputs needed when evaluating a guard expression.
// Snapshot is usually the state tree as map[string]any.
type RuleContext struct {
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	// Watch is the watcher event name the guard belongs to.
	Watch string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct {
	variables  []string
	expectBool bool
}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// WithVariables declares names the expression may reference besides the
// builtin bindings. CEL needs them at compile time to type check.
func WithVariables(names ...string) CompileOption {
	return compileOptionFunc(func(cfg *compileConfig) {
		cfg.variables = append(cfg.variables, names...)
	})
}

// ExpectBool makes compilation fail unless the expression yields a boolean.
// Watcher guards are compiled with it.
func ExpectBool() CompileOption {
	return compileOptionFunc(func(cfg *compileConfig) {
		cfg.expectBool = true
	})
}

// cacheKey namespaces cached programs by engine, compile options and the
// registry version they were built against, so hubs sharing a cache never
// run each other's functions.
func (cfg compileConfig) cacheKey(engine, expression string, registry *FunctionRegistry) string {
	var b strings.Builder
	b.WriteString(engine)
	if cfg.expectBool {
		b.WriteString(":bool")
	}
	if version := registry.Version(); version != "" {
		b.WriteString("@")
		b.WriteString(version)
	}
	b.WriteString(":")
	b.WriteString(expression)
	return b.String()
}

func applyCompileOptions(opts []CompileOption) compileConfig {
	cfg := compileConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyCompileOption(&cfg)
		}
	}
	return cfg
}

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}
