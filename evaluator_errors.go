package reactive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-reactive/pkg/state"
)

// Phases of an expression failure.
const (
	PhaseCompile  = "compile"
	PhaseEvaluate = "evaluate"
)

// EvaluationError reports a watcher guard or Hub.Evaluate expression that
// failed to compile or run.
type EvaluationError struct {
	Engine string
	Expr   string
	Phase  string
	// Watch is the watched event name. Path and Kind describe the change
	// being guarded. All three are empty outside of guard evaluation.
	Watch string
	Path  string
	Kind  state.Kind
	Err   error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("reactive: ")
	b.WriteString(e.Engine)
	if e.Watch != "" {
		b.WriteString(" guard for ")
		b.WriteString(e.Watch)
	} else {
		b.WriteString(" expression")
	}
	if e.Kind != "" && e.Path != "" {
		fmt.Fprintf(&b, " on %s %s", e.Kind, e.Path)
	}
	phase := e.Phase
	if phase == "" {
		phase = PhaseEvaluate
	}
	fmt.Fprintf(&b, " failed to %s expr=%q: %v", phase, e.Expr, e.Err)
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Guard reports whether the failure belongs to a watcher guard.
func (e *EvaluationError) Guard() bool {
	return e != nil && e.Watch != ""
}

// engineError reports a misuse of an evaluator that is not tied to one
// expression, such as an empty expression.
func engineError(engine string, err error) error {
	if err == nil || strings.HasPrefix(err.Error(), "reactive:") {
		return err
	}
	return fmt.Errorf("reactive: %s evaluator: %w", engine, err)
}

func compileError(engine, expression string, err error) error {
	if err == nil {
		return nil
	}
	if existing := asEvaluationError(err); existing != nil {
		existing.fill(engine, expression)
		return err
	}
	return &EvaluationError{Engine: engine, Expr: expression, Phase: PhaseCompile, Err: err}
}

// evaluationError describes a failed run. The guarded change is read from
// the watch name and the kind and path args the hub passes to guards.
func evaluationError(engine, expression string, ctx RuleContext, err error) error {
	if err == nil {
		return nil
	}
	evalErr := asEvaluationError(err)
	if evalErr == nil {
		evalErr = &EvaluationError{Phase: PhaseEvaluate, Err: err}
		err = evalErr
	}
	evalErr.fill(engine, expression)
	if evalErr.Watch == "" {
		evalErr.Watch = ctx.Watch
	}
	if evalErr.Path == "" {
		evalErr.Path, _ = ctx.Args["path"].(string)
	}
	if evalErr.Kind == "" {
		kind, _ := ctx.Args["kind"].(string)
		evalErr.Kind = state.Kind(kind)
	}
	return err
}

func asEvaluationError(err error) *EvaluationError {
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return evalErr
	}
	return nil
}

func (e *EvaluationError) fill(engine, expression string) {
	if e.Engine == "" {
		e.Engine = engine
	}
	if e.Expr == "" {
		e.Expr = expression
	}
}
