package reactive

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Function is a helper callable from watcher guards, either by name or
// through call(name, ...).
type Function func(args ...any) (any, error)

// FunctionRegistry holds the guard helpers of a hub. Names are case
// insensitive. Every registration stamps a new version; compiled guards are
// cached per version because they capture the functions they were built
// with.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
	version   string
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]Function)}
}

// Register adds fn under name. Names are unique regardless of case.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := strings.ToLower(strings.TrimSpace(name))
	switch {
	case key == "":
		return fmt.Errorf("reactive: function name must not be empty")
	case fn == nil:
		return fmt.Errorf("reactive: function %q is nil", name)
	case isCELBuiltin(key) || key == "call":
		return fmt.Errorf("reactive: function name %q is reserved", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("reactive: function %q already registered", name)
	}
	r.functions[key] = fn
	r.version = uuid.NewString()
	return nil
}

// Version identifies the current set of functions. Clones share the version
// of their source until either side registers something new. An empty
// registry has no version.
func (r *FunctionRegistry) Version() string {
	if r == nil {
		return ""
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Clone returns an independent copy with the same functions and version.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &FunctionRegistry{
		functions: maps.Clone(r.functions),
		version:   r.version,
	}
}

// Call runs the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	fn, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("reactive: function %q not registered", name)
	}
	return fn(args...)
}

// Names lists the registered names, lowercased and sorted.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.functions))
}

func (r *FunctionRegistry) lookup(name string) (Function, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[strings.ToLower(name)]
	return fn, ok
}

// globals returns the functions as plain Go funcs keyed by name, the shape
// expr and goja expose to expressions.
func (r *FunctionRegistry) globals() map[string]func(...any) (any, error) {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]func(...any) (any, error), len(r.functions))
	for name, fn := range r.functions {
		out[name] = fn
	}
	return out
}

// callArgs splits call(name, args...) arguments.
func callArgs(params []any) (string, []any, error) {
	if len(params) == 0 {
		return "", nil, fmt.Errorf("reactive: call requires function name")
	}
	name, ok := params[0].(string)
	if !ok {
		return "", nil, fmt.Errorf("reactive: call name must be string, got %T", params[0])
	}
	return name, params[1:], nil
}

// WithFunctionRegistry makes the functions of registry available to watcher
// guards. The registry is copied, so later registrations on it do not reach
// the hub.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *hubConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for watcher guards. Registration
// errors are reported by New.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *hubConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		if err := cfg.functions.Register(name, fn); err != nil {
			cfg.errs = append(cfg.errs, err)
		}
	}
}
