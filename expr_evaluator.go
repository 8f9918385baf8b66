package reactive

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
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

// exprEvaluator runs guard expressions with github.com/expr-lang/expr. It is
// the default engine.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate compiles expression, through the cache when one is set, and runs
// it with the snapshot keys as variables.
func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, engineError("expr", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.program(expression, compileConfig{})
	if err != nil {
		return nil, err
	}
	return e.run(program, expression, ctx.withDefaults())
}

// Compile checks expression once and returns a reusable rule.
func (e *exprEvaluator) Compile(expression string, opts ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, engineError("expr", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.program(expression, applyCompileOptions(opts))
	if err != nil {
		return nil, err
	}
	return &exprCompiledRule{evaluator: e, program: program, expression: expression}, nil
}

func (e *exprEvaluator) program(expression string, cfg compileConfig) (*exprvm.Program, error) {
	key := cfg.cacheKey("expr", expression, e.registry)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if cfg.expectBool {
		options = append(options, exprlang.AsBool())
	}
	if e.registry != nil {
		options = append(options, exprlang.Function("call", e.call))
		for name, fn := range e.registry.globals() {
			options = append(options, exprlang.Function(name, fn))
		}
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, compileError("expr", expression, err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func (e *exprEvaluator) run(program *exprvm.Program, expression string, ctx RuleContext) (any, error) {
	result, err := exprlang.Run(program, e.environment(ctx))
	if err != nil {
		return nil, evaluationError("expr", expression, ctx, err)
	}
	return result, nil
}

// environment exposes the snapshot keys at the top level next to the now,
// args, metadata and watch bindings. Snapshot keys win on collisions.
func (e *exprEvaluator) environment(ctx RuleContext) map[string]any {
	env := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
		"watch":    ctx.Watch,
	}
	if snapshot, ok := ctx.Snapshot.(map[string]any); ok {
		for key, value := range snapshot {
			env[key] = value
		}
	}
	return env
}

// call backs call(name, args...), the form shared by every engine.
func (e *exprEvaluator) call(params ...any) (any, error) {
	name, args, err := callArgs(params)
	if err != nil {
		return nil, err
	}
	return e.registry.Call(name, args...)
}

type exprCompiledRule struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (r *exprCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil || r.program == nil {
		return nil, engineError("expr", fmt.Errorf("compiled rule missing program"))
	}
	return r.evaluator.run(r.program, r.expression, ctx.withDefaults())
}
