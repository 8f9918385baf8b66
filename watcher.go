package reactive

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-reactive/pkg/state"
	"go.uber.org/zap"
)

// Watcher binds a handler to a state event name such as
// "course.title:updated".
type Watcher struct {
	Watch   string
	Handler func(WatchArgs) error
	// When is an optional guard expression. The handler only runs when it
	// evaluates to true. Guards see the state keys as variables plus args
	// (kind, path, name, element), metadata (hub) and watch.
	When string
}

// WatchArgs is passed to watcher handlers. State and Element are read-only.
type WatchArgs struct {
	State   *state.State
	Element state.Node
	Kind    state.Kind
	Event   state.Event
}

type binding struct {
	owner   *registration
	watcher Watcher
	guard   CompiledRule
}

func (h *Hub) compileWatcher(w Watcher) (*binding, error) {
	w.Watch = strings.TrimSpace(w.Watch)
	if w.Watch == "" {
		return nil, fmt.Errorf("%w: watch name is required", ErrInvalidWatcher)
	}
	if w.Handler == nil {
		return nil, fmt.Errorf("%w: %q has no handler", ErrInvalidWatcher, w.Watch)
	}
	b := &binding{watcher: w}
	if w.When = strings.TrimSpace(w.When); w.When != "" {
		guard, err := h.evaluator.Compile(w.When, ExpectBool())
		if err != nil {
			return nil, fmt.Errorf("%w: %q guard: %w", ErrInvalidWatcher, w.Watch, err)
		}
		b.guard = guard
		b.watcher.When = w.When
	}
	b.watcher.Watch = w.Watch
	return b, nil
}

// allows evaluates the guard. Failures and non boolean results skip the
// handler.
func (h *Hub) allows(b *binding, event state.Event) bool {
	if b.guard == nil {
		return true
	}
	var element any
	if event.Element != nil {
		element = event.Element.Snapshot()
	}
	var snapshot map[string]any
	if event.State != nil {
		snapshot = event.State.Map()
	}
	ctx := RuleContext{
		Snapshot: snapshot,
		Args: map[string]any{
			"kind":    string(event.Kind),
			"path":    event.Path,
			"name":    event.Name,
			"element": element,
		},
		Metadata: map[string]any{"hub": h.name},
		Watch:    b.watcher.Watch,
	}.withDefaults()
	start := time.Now()
	result, err := b.guard.Evaluate(ctx)
	if err == nil {
		if _, ok := result.(bool); !ok {
			err = fmt.Errorf("guard returned %T, want bool", result)
		}
	}
	err = evaluationError(h.engine, b.watcher.When, ctx, err)
	h.logEvaluation(b.watcher.When, b.watcher.Watch, time.Since(start), result, err)
	if err != nil {
		return false
	}
	return result.(bool)
}

// run calls the handler, isolating its errors and panics from the flush.
func (h *Hub) run(b *binding, event state.Event) {
	defer func() {
		if recovered := recover(); recovered != nil {
			h.logger.Error("reactive: watcher panicked",
				zap.String("watch", b.watcher.Watch),
				zap.String("event", event.Name),
				zap.Any("panic", recovered),
			)
		}
	}()
	err := b.watcher.Handler(WatchArgs{
		State:   event.State,
		Element: event.Element,
		Kind:    event.Kind,
		Event:   event,
	})
	if err != nil {
		h.logger.Error("reactive: watcher failed",
			zap.String("watch", b.watcher.Watch),
			zap.String("event", event.Name),
			zap.Error(err),
		)
	}
}
