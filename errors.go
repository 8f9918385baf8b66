package reactive

import "errors"

var (
	// ErrPrivateMutation is returned when a dispatched name does not start
	// with a letter.
	ErrPrivateMutation = errors.New("reactive: mutation is private")
	// ErrUnknownMutation is returned when no mutation is registered for a name.
	ErrUnknownMutation = errors.New("reactive: unknown mutation")
	// ErrReentrantDispatch is returned when Dispatch runs while another
	// mutation still holds the manager unlocked.
	ErrReentrantDispatch = errors.New("reactive: dispatch while state is unlocked")
	// ErrInvalidMutationName is returned when a mutation map holds a private
	// name or a nil function.
	ErrInvalidMutationName = errors.New("reactive: invalid mutation")
	// ErrInvalidWatcher is returned when a watcher lacks a name or handler, or
	// its guard does not compile.
	ErrInvalidWatcher = errors.New("reactive: invalid watcher")
	// ErrInvalidComponent is returned for nil or non comparable components.
	ErrInvalidComponent = errors.New("reactive: invalid component")
	// ErrInvalidDescriptor is returned by Init when the descriptor has no
	// element or no hub.
	ErrInvalidDescriptor = errors.New("reactive: invalid descriptor")
	// ErrInvalidEvent is returned when a component event has no name or uses
	// the channel reserved for state events.
	ErrInvalidEvent = errors.New("reactive: invalid component event")
	// ErrNoEvaluator is returned when the configured guard engine is not
	// available in this build.
	ErrNoEvaluator = errors.New("reactive: evaluator not configured")
)
