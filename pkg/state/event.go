package state

import (
	"sort"
	"strings"
)

// Kind describes the type of change an event reports.
type Kind string

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
	KindLoaded  Kind = "loaded"
)

// RootName is the path segment used for the state root.
const RootName = "state"

// DefaultEventName is the channel name used when no dispatch function is
// configured.
const DefaultEventName = "reactive:statechanged"

// LoadedEvent is emitted once the initial state is installed.
const LoadedEvent = RootName + ":" + string(KindLoaded)

// Node is implemented by the read and write views over the state tree.
type Node interface {
	Path() string
	IsReadOnly() bool
	Snapshot() any
}

// Event is the payload delivered for every flushed change.
type Event struct {
	// Name is "<path>:<kind>", for example "samples[4].value:updated".
	Name string
	Path string
	Kind Kind
	// State is a read-only view of the whole tree.
	State *State
	// Element is a read-only view of the most specific node affected.
	Element Node
	// Transaction groups the events flushed by one relock.
	Transaction string
	// Source is the id of the manager that produced the event.
	Source string
	// Detail is the payload of a component event. State changes leave it nil.
	Detail any
}

// Record returns the element as a record view when it is one.
func (e Event) Record() (*Record, bool) {
	record, ok := e.Element.(*Record)
	return record, ok && record != nil
}

// List returns the element as a list view when it is one.
func (e Event) List() (*List, bool) {
	list, ok := e.Element.(*List)
	return list, ok && list != nil
}

// Listener receives events delivered through a Target.
type Listener func(name string, event Event)

// Target delivers named events to listeners.
type Target interface {
	AddListener(name string, listener Listener) (remove func())
	Dispatch(name string, event Event)
}

// DispatchFunc delivers a state event through target.
type DispatchFunc func(event Event, target Target)

// DispatchTo returns a DispatchFunc that publishes every event under the
// single channel name.
func DispatchTo(name string) DispatchFunc {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultEventName
	}
	return func(event Event, target Target) {
		if target == nil {
			return
		}
		target.Dispatch(name, event)
	}
}

type listenerEntry struct {
	id       uint64
	listener Listener
}

// EventTarget is an in-process Target. Listeners run synchronously in
// registration order. It is not safe for concurrent use.
type EventTarget struct {
	listeners map[string][]listenerEntry
	nextID    uint64
}

// NewEventTarget constructs an empty EventTarget.
func NewEventTarget() *EventTarget {
	return &EventTarget{listeners: map[string][]listenerEntry{}}
}

// AddListener registers listener for name and returns a function removing it.
func (t *EventTarget) AddListener(name string, listener Listener) func() {
	if listener == nil {
		return func() {}
	}
	if t.listeners == nil {
		t.listeners = map[string][]listenerEntry{}
	}
	t.nextID++
	id := t.nextID
	t.listeners[name] = append(t.listeners[name], listenerEntry{id: id, listener: listener})
	return func() {
		entries := t.listeners[name]
		for i, entry := range entries {
			if entry.id == id {
				next := make([]listenerEntry, 0, len(entries)-1)
				next = append(next, entries[:i]...)
				next = append(next, entries[i+1:]...)
				t.listeners[name] = next
				return
			}
		}
	}
}

// Dispatch calls every listener registered for name.
func (t *EventTarget) Dispatch(name string, event Event) {
	if t == nil {
		return
	}
	entries := t.listeners[name]
	for _, entry := range entries {
		entry.listener(name, event)
	}
}

// Names returns the event names with at least one listener.
func (t *EventTarget) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.listeners))
	for name, entries := range t.listeners {
		if len(entries) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
