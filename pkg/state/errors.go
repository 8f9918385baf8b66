package state

import "errors"

var (
	// ErrStateAlreadySet is returned when the initial state is supplied twice.
	ErrStateAlreadySet = errors.New("state: initial state already set")
	// ErrStateNotLoaded is returned when writes or updates happen before the
	// initial state exists.
	ErrStateNotLoaded = errors.New("state: initial state not loaded")
	// ErrInvalidState is returned for malformed state trees.
	ErrInvalidState = errors.New("state: invalid state")
	// ErrLocked is returned for writes attempted while the manager is locked.
	ErrLocked = errors.New("state: state is read only")
	// ErrReadOnlyView is returned for writes through a read-only view.
	ErrReadOnlyView = errors.New("state: read-only view cannot be modified")
	// ErrDetached is returned for writes through a view whose node was removed
	// from the tree.
	ErrDetached = errors.New("state: node is no longer part of the state")
	// ErrMissingID is returned when a list element has no id.
	ErrMissingID = errors.New("state: list element id is missing")
	// ErrIDMismatch is returned when an element id does not match its key.
	ErrIDMismatch = errors.New("state: list element id mismatch")
	// ErrUnsupportedValue is returned when a value cannot be stored.
	ErrUnsupportedValue = errors.New("state: unsupported value")

	// ErrInvalidUpdate is returned for malformed update descriptors.
	ErrInvalidUpdate = errors.New("state: invalid update")
	// ErrUnknownAction is returned when an update action is not registered.
	ErrUnknownAction = errors.New("state: unknown update action")
	// ErrUnknownElement is returned when an update targets a missing element.
	ErrUnknownElement = errors.New("state: unknown element")
	// ErrDuplicateElement is returned when a create update collides with an
	// existing element.
	ErrDuplicateElement = errors.New("state: element already exists")
	// ErrInvalidUpdateType is returned when an update type cannot be registered.
	ErrInvalidUpdateType = errors.New("state: invalid update type")
)
