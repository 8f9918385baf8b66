package state

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used by the manager.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithID overrides the generated manager id reported as Event.Source.
func WithID(id string) Option {
	return func(m *Manager) {
		if id != "" {
			m.id = id
		}
	}
}

// WithUpdateTypes registers extra update actions at construction.
func WithUpdateTypes(types UpdateTypes) Option {
	return func(m *Manager) {
		for name, fn := range types {
			if IsPublicName(name) && fn != nil {
				m.updateTypes[name] = fn
			}
		}
	}
}

// Manager owns the state tree, the lock and the pending change queue. Writes
// are only accepted while the manager is unlocked and every change recorded
// in that window is published when it is locked again.
//
// A Manager is not safe for concurrent use; callers serialize access the same
// way a single event loop would.
type Manager struct {
	id       string
	dispatch DispatchFunc
	target   Target
	logger   *zap.Logger

	root    *rootNode
	loaded  bool
	locked  bool
	pending []Change

	updateTypes UpdateTypes
}

// New constructs a locked Manager without state. Events are delivered by
// calling dispatch with target; a nil dispatch publishes every event under
// DefaultEventName and a nil target is replaced by a private EventTarget.
func New(dispatch DispatchFunc, target Target, opts ...Option) *Manager {
	if dispatch == nil {
		dispatch = DispatchTo(DefaultEventName)
	}
	if target == nil {
		target = NewEventTarget()
	}
	m := &Manager{
		id:          uuid.NewString(),
		dispatch:    dispatch,
		target:      target,
		logger:      zap.NewNop(),
		root:        newRootNode(),
		locked:      true,
		updateTypes: UpdateTypes{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// ID returns the manager id reported as Event.Source.
func (m *Manager) ID() string {
	return m.id
}

// Target returns the target events are dispatched to.
func (m *Manager) Target() Target {
	return m.target
}

// Loaded reports whether the initial state was installed.
func (m *Manager) Loaded() bool {
	return m.loaded
}

// Locked reports whether writes are currently rejected.
func (m *Manager) Locked() bool {
	return m.locked
}

// State returns the root view. Writes through it follow the lock.
func (m *Manager) State() *State {
	return &State{m: m}
}

// SetInitialState installs tree as the state. Every value must be a record
// (a mapping) or a list (a sequence of mappings carrying an id). The shape is
// validated before anything is installed. On success one "state:loaded"
// event is dispatched synchronously.
func (m *Manager) SetInitialState(tree map[string]any) error {
	if m.loaded {
		return ErrStateAlreadySet
	}
	if tree == nil {
		return fmt.Errorf("%w: initial state must be a mapping", ErrInvalidState)
	}
	root := newRootNode()
	for _, key := range sortedKeys(tree) {
		built, err := buildNode(key, tree[key])
		if err != nil {
			return err
		}
		root.set(key, built)
	}
	m.root = root
	m.loaded = true
	m.logger.Debug("state: initial state loaded",
		zap.String("manager", m.id),
		zap.Strings("keys", root.keys),
	)

	readOnly := m.State().ReadOnly()
	m.emit(Event{
		Name:        LoadedEvent,
		Path:        RootName,
		Kind:        KindLoaded,
		State:       readOnly,
		Element:     readOnly,
		Transaction: uuid.NewString(),
		Source:      m.id,
	})
	return nil
}

// SetLocked toggles the lock. Locking an unlocked manager flushes the pending
// changes.
func (m *Manager) SetLocked(locked bool) {
	if m.locked == locked {
		return
	}
	m.locked = locked
	if locked {
		m.flush()
	}
}

// SetReadOnly is an alias of SetLocked.
func (m *Manager) SetReadOnly(readOnly bool) {
	m.SetLocked(readOnly)
}

// Pending returns a copy of the changes captured in the current window.
func (m *Manager) Pending() []Change {
	if len(m.pending) == 0 {
		return nil
	}
	return append([]Change(nil), m.pending...)
}

func (m *Manager) flush() {
	pending := m.pending
	m.pending = nil
	changes := dedupeChanges(pending)
	if len(changes) == 0 {
		return
	}
	transaction := uuid.NewString()
	m.logger.Debug("state: flushing changes",
		zap.String("manager", m.id),
		zap.String("transaction", transaction),
		zap.Int("recorded", len(pending)),
		zap.Int("events", len(changes)),
	)
	readOnly := m.State().ReadOnly()
	for _, change := range changes {
		m.emit(Event{
			Name:        change.Name,
			Path:        change.Path,
			Kind:        change.Kind,
			State:       readOnly,
			Element:     change.element(m),
			Transaction: transaction,
			Source:      m.id,
		})
	}
}

func (m *Manager) emit(event Event) {
	m.dispatch(event, m.target)
}

func (m *Manager) checkWritable() error {
	if !m.loaded {
		return ErrStateNotLoaded
	}
	if m.locked {
		return ErrLocked
	}
	return nil
}
