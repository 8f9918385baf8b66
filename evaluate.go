package reactive

import (
	"fmt"
	"time"
)

// Evaluate runs expression with the configured guard evaluator against the
// current state.
func (h *Hub) Evaluate(expression string) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("reactive: expression must not be empty")
	}
	ctx := RuleContext{
		Snapshot: h.manager.State().Map(),
		Metadata: map[string]any{"hub": h.name},
	}.withDefaults()
	start := time.Now()
	value, err := h.evaluator.Evaluate(ctx, expression)
	h.logEvaluation(expression, "", time.Since(start), value, err)
	if err != nil {
		return nil, evaluationError(h.engine, expression, ctx, err)
	}
	return value, nil
}

func (h *Hub) logEvaluation(expression, watch string, duration time.Duration, result any, err error) {
	h.evaluatorLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   h.engine,
		Expr:     expression,
		Watch:    watch,
		Duration: duration,
		Result:   result,
		Err:      err,
	})
}

// resolveEvaluator returns the evaluator set with WithEvaluator or builds the
// one named by the engine, sharing the cache and function registry.
func resolveEvaluator(cfg hubConfig) (Evaluator, error) {
	if cfg.evaluator != nil {
		return cfg.evaluator, nil
	}
	switch cfg.engine {
	case "", EngineExpr:
		var opts []ExprEvaluatorOption
		if cfg.programCache != nil {
			opts = append(opts, ExprWithProgramCache(cfg.programCache))
		}
		if cfg.functions != nil {
			opts = append(opts, ExprWithFunctionRegistry(cfg.functions))
		}
		return NewExprEvaluator(opts...), nil
	case EngineCEL:
		var opts []CELEvaluatorOption
		if cfg.programCache != nil {
			opts = append(opts, CELWithProgramCache(cfg.programCache))
		}
		if cfg.functions != nil {
			opts = append(opts, CELWithFunctionRegistry(cfg.functions))
		}
		return NewCELEvaluator(opts...), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: js engine requires the js_eval build tag", ErrNoEvaluator)
		}
		var opts []JSEvaluatorOption
		if cfg.programCache != nil {
			opts = append(opts, JSWithProgramCache(cfg.programCache))
		}
		if cfg.functions != nil {
			opts = append(opts, JSWithFunctionRegistry(cfg.functions))
		}
		return NewJSEvaluator(opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, cfg.engine)
	}
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return EngineExpr
	case *celEvaluator:
		return EngineCEL
	case *jsEvaluator:
		return EngineJS
	default:
		return "custom"
	}
}
