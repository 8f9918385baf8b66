package reactive

import (
	"fmt"
	"maps"

	"github.com/goliatone/go-reactive/pkg/state"
)

// Component is anything registered with a Hub. It opts into behaviour by
// implementing Creator, StateReadyHandler, WatcherProvider, EventProvider,
// Destroyer or RegistrationNotifier. Components are tracked by identity,
// so they must be comparable; pointers are the usual choice.
type Component any

// Descriptor is handed to Creator.Create by Init.
type Descriptor struct {
	// Element is whatever the component renders or drives.
	Element any
	// Reactive is the hub the component registers with.
	Reactive *Hub
	// Selectors are merged into the Base selectors.
	Selectors map[string]string
	// Extra carries caller specific values.
	Extra map[string]any
}

// Creator is called once by Init before registration.
type Creator interface {
	Create(Descriptor)
}

// StateReadyHandler receives the read-only state once it is loaded.
type StateReadyHandler interface {
	StateReady(*state.State)
}

// WatcherProvider lists the state events a component reacts to.
type WatcherProvider interface {
	Watchers() []Watcher
}

// EventProvider declares the custom events a component dispatches, keyed by
// a stable alias. Parents read the names from it instead of hard coding
// them. Init copies them into Base.
type EventProvider interface {
	Events() map[string]string
}

// Destroyer is called when the component is unregistered.
type Destroyer interface {
	Destroy()
}

// RegistrationNotifier is told how registration went.
type RegistrationNotifier interface {
	RegistrationSucceeded()
	RegistrationFailed(error)
}

type baseHolder interface {
	base() *Base
}

// Init prepares c from descriptor and registers it with descriptor.Reactive.
// Components embedding Base get the element, hub and selectors attached
// before Create runs.
func Init(c Component, descriptor Descriptor) error {
	if descriptor.Element == nil || descriptor.Reactive == nil {
		return fmt.Errorf("%w: element and reactive are required", ErrInvalidDescriptor)
	}
	if holder, ok := c.(baseHolder); ok {
		holder.base().attach(c, descriptor)
	}
	if creator, ok := c.(Creator); ok {
		creator.Create(descriptor)
	}
	return descriptor.Reactive.RegisterComponent(c)
}

// Base is embedded by components to get selectors and shortcuts to the hub.
type Base struct {
	Element  any
	Reactive *Hub

	self      Component
	selectors map[string]string
	events    map[string]string
	listeners []func()
}

func (b *Base) base() *Base {
	return b
}

func (b *Base) attach(self Component, descriptor Descriptor) {
	b.self = self
	b.Element = descriptor.Element
	b.Reactive = descriptor.Reactive
	b.AddSelectors(descriptor.Selectors)
	if provider, ok := self.(EventProvider); ok {
		b.AddEvents(provider.Events())
	}
}

// Selector returns the selector registered under name, or "".
func (b *Base) Selector(name string) string {
	return b.selectors[name]
}

// AddSelectors merges selectors, overriding existing names.
func (b *Base) AddSelectors(selectors map[string]string) {
	if len(selectors) == 0 {
		return
	}
	if b.selectors == nil {
		b.selectors = make(map[string]string, len(selectors))
	}
	maps.Copy(b.selectors, selectors)
}

// Dispatch runs the named mutation on the component's hub.
func (b *Base) Dispatch(name string, args ...any) error {
	if b.Reactive == nil {
		return fmt.Errorf("%w: component is not attached to a hub", ErrInvalidComponent)
	}
	return b.Reactive.Dispatch(name, args...)
}

// Unregister removes the component from its hub.
func (b *Base) Unregister() {
	if b.Reactive == nil || b.self == nil {
		return
	}
	b.Reactive.UnregisterComponent(b.self)
}

// Event returns the event name declared under alias, or "".
func (b *Base) Event(alias string) string {
	return b.events[alias]
}

// AddEvents merges event names, overriding existing aliases.
func (b *Base) AddEvents(events map[string]string) {
	if len(events) == 0 {
		return
	}
	if b.events == nil {
		b.events = make(map[string]string, len(events))
	}
	maps.Copy(b.events, events)
}

// DispatchEvent publishes a custom event with detail on the hub target.
func (b *Base) DispatchEvent(name string, detail any) error {
	if b.Reactive == nil {
		return fmt.Errorf("%w: component is not attached to a hub", ErrInvalidComponent)
	}
	return b.Reactive.DispatchEvent(name, detail)
}

// AddEventListener listens for a custom event on the hub target until the
// component is unregistered.
func (b *Base) AddEventListener(name string, listener func(state.Event)) error {
	if b.Reactive == nil {
		return fmt.Errorf("%w: component is not attached to a hub", ErrInvalidComponent)
	}
	if listener == nil {
		return fmt.Errorf("%w: listener for %q is nil", ErrInvalidEvent, name)
	}
	if name == "" || name == b.Reactive.EventName() {
		return fmt.Errorf("%w: cannot listen on %q", ErrInvalidEvent, name)
	}
	remove := b.Reactive.Target().AddListener(name, func(_ string, event state.Event) {
		listener(event)
	})
	b.listeners = append(b.listeners, remove)
	return nil
}

func (b *Base) removeListeners() {
	for _, remove := range b.listeners {
		remove()
	}
	b.listeners = nil
}
