//go:build !js_eval

package reactive

import "fmt"

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	return nil, evaluationError(EngineJS, expression, ctx, errJSUnavailable)
}

func (e *jsEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	return nil, compileError(EngineJS, expression, errJSUnavailable)
}

var errJSUnavailable = fmt.Errorf("%w: js engine requires the js_eval build tag", ErrNoEvaluator)

func jsEvaluatorAvailable() bool {
	return false
}
