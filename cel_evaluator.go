package reactive

import (
	"fmt"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
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
// Registered functions are reachable through call(name, ...) with up to
// three arguments.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// celMaxCallArgs bounds the call overloads; CEL has no variadic functions.
const celMaxCallArgs = 3

var celBuiltins = []string{"now", "args", "metadata", "watch"}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. CEL declares its
// variables up front, so programs are built per set of snapshot keys.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, engineError("cel", fmt.Errorf("expression must not be empty"))
	}
	return e.run(ctx.withDefaults(), expression, compileConfig{})
}

// Compile parses expression right away so syntax errors surface at
// registration. Type checking happens per snapshot shape on evaluation,
// or immediately for the variables declared with WithVariables.
func (e *celEvaluator) Compile(expression string, opts ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, engineError("cel", fmt.Errorf("expression must not be empty"))
	}
	cfg := applyCompileOptions(opts)
	env, err := e.buildEnv(cfg.variables)
	if err != nil {
		return nil, engineError("cel", err)
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, compileError("cel", expression, issues.Err())
	}
	if len(cfg.variables) > 0 {
		if _, err := e.program(expression, cfg.variables, cfg); err != nil {
			return nil, err
		}
	}
	return &celCompiledRule{evaluator: e, expression: expression, cfg: cfg}, nil
}

func (e *celEvaluator) run(ctx RuleContext, expression string, cfg compileConfig) (any, error) {
	snapshot := snapshotAsMap(ctx.Snapshot)
	program, err := e.program(expression, variableNames(snapshot, cfg.variables), cfg)
	if err != nil {
		return nil, err
	}
	out, _, err := program.Eval(e.activation(ctx, snapshot))
	if err != nil {
		return nil, evaluationError("cel", expression, ctx, err)
	}
	return out.Value(), nil
}

func (e *celEvaluator) program(expression string, variables []string, cfg compileConfig) (celgo.Program, error) {
	key := cfg.cacheKey("cel", expression, e.registry) + "|" + strings.Join(variables, ",")
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(variables)
	if err != nil {
		return nil, engineError("cel", err)
	}
	checked, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, compileError("cel", expression, issues.Err())
	}
	if cfg.expectBool {
		output := checked.OutputType()
		if !output.IsExactType(celgo.BoolType) && !output.IsExactType(celgo.DynType) {
			return nil, compileError("cel", expression, fmt.Errorf("expected bool result, got %s", output))
		}
	}
	program, err := env.Program(checked)
	if err != nil {
		return nil, compileError("cel", expression, err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func (e *celEvaluator) buildEnv(variables []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
		celgo.Variable("watch", celgo.StringType),
	}
	for _, name := range variables {
		if isCELBuiltin(name) {
			continue
		}
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", e.callOverloads()...))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) callOverloads() []celgo.FunctionOpt {
	overloads := make([]celgo.FunctionOpt, 0, celMaxCallArgs+1)
	for arity := 0; arity <= celMaxCallArgs; arity++ {
		args := []*celgo.Type{celgo.StringType}
		for i := 0; i < arity; i++ {
			args = append(args, celgo.DynType)
		}
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("call_string_dyn_%d", arity),
			args,
			celgo.DynType,
			celgo.FunctionBinding(e.callBinding),
		))
	}
	return overloads
}

func (e *celEvaluator) callBinding(values ...ref.Val) ref.Val {
	if e.registry == nil {
		return types.NewErr("reactive: function registry not configured")
	}
	params := make([]any, len(values))
	for i, value := range values {
		params[i] = value.Value()
	}
	name, arguments, err := callArgs(params)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	result, err := e.registry.Call(name, arguments...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

func (e *celEvaluator) activation(ctx RuleContext, snapshot map[string]any) map[string]any {
	activation := make(map[string]any, len(snapshot)+len(celBuiltins))
	for key, value := range snapshot {
		activation[key] = value
	}
	activation["now"] = ctx.timestamp()
	activation["args"] = ctx.Args
	activation["metadata"] = ctx.Metadata
	activation["watch"] = ctx.Watch
	return activation
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
	cfg        compileConfig
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, engineError("cel", fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.run(ctx.withDefaults(), r.expression, r.cfg)
}

func snapshotAsMap(value any) map[string]any {
	if m, ok := value.(map[string]any); ok && m != nil {
		return m
	}
	return map[string]any{}
}

// variableNames returns the sorted union of the snapshot keys and declared
// variables, without the builtin bindings.
func variableNames(snapshot map[string]any, declared []string) []string {
	seen := make(map[string]struct{}, len(snapshot)+len(declared))
	names := make([]string, 0, len(snapshot)+len(declared))
	add := func(name string) {
		if isCELBuiltin(name) {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for key := range snapshot {
		add(key)
	}
	for _, name := range declared {
		add(name)
	}
	sort.Strings(names)
	return names
}

func isCELBuiltin(name string) bool {
	for _, builtin := range celBuiltins {
		if builtin == name {
			return true
		}
	}
	return false
}
