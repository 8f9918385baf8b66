package reactive

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/goliatone/go-reactive/pkg/activity"
	"github.com/goliatone/go-reactive/pkg/state"
	"go.uber.org/zap"
)

// Hub owns a state Manager, runs mutations against it and routes the events
// it publishes to registered components.
//
// A Hub is not safe for concurrent use.
type Hub struct {
	name      string
	eventName string
	manager   *state.Manager
	target    state.Target
	logger    *zap.Logger

	mutations Mutations

	evaluator       Evaluator
	engine          string
	evaluatorLogger EvaluatorLogger

	emitter *activity.Emitter

	registrations map[Component]*registration
	order         []*registration
	watchers      map[string][]*binding
	removeListen  func()
}

type registration struct {
	component Component
	active    bool
	ready     bool
	bindings  []*binding
}

// New builds a Hub. Mutations and initial state given as options are
// installed before it returns.
func New(opts ...Option) (*Hub, error) {
	cfg := applyOptions(opts)
	if err := errors.Join(cfg.errs...); err != nil {
		return nil, err
	}
	evaluator, err := resolveEvaluator(cfg)
	if err != nil {
		return nil, err
	}

	logger := cfg.logger
	if cfg.name != "" {
		logger = logger.With(zap.String("hub", cfg.name))
	}
	dispatch := cfg.dispatch
	if dispatch == nil {
		dispatch = state.DispatchTo(cfg.eventName)
	}
	target := cfg.target
	if target == nil {
		target = state.NewEventTarget()
	}
	evaluatorLogger := cfg.evaluatorLogger
	if evaluatorLogger == nil {
		evaluatorLogger = ZapEvaluatorLogger(logger)
	}
	activityConfig := activity.Config{Enabled: len(cfg.activityHooks) > 0}
	if cfg.activityConfig != nil {
		activityConfig = *cfg.activityConfig
	}

	h := &Hub{
		name:            cfg.name,
		eventName:       cfg.eventName,
		target:          target,
		logger:          logger,
		mutations:       Mutations{},
		evaluator:       evaluator,
		engine:          evaluatorEngineName(evaluator),
		evaluatorLogger: evaluatorLogger,
		emitter:         activity.NewEmitter(cfg.activityHooks, activityConfig),
		registrations:   map[Component]*registration{},
		watchers:        map[string][]*binding{},
	}
	h.manager = state.New(dispatch, target, state.WithLogger(logger.Named("state")))
	h.removeListen = target.AddListener(cfg.eventName, h.handleEvent)

	if err := h.AddMutations(cfg.mutations); err != nil {
		h.Close()
		return nil, err
	}
	if cfg.initialState != nil {
		if err := h.SetInitialState(cfg.initialState); err != nil {
			h.Close()
			return nil, err
		}
	}
	return h, nil
}

// Name returns the hub name.
func (h *Hub) Name() string {
	return h.name
}

// EventName returns the channel state events are published under.
func (h *Hub) EventName() string {
	return h.eventName
}

// Target returns the target the hub publishes to.
func (h *Hub) Target() state.Target {
	return h.target
}

// DispatchEvent publishes a component event on the hub target. Listeners
// receive detail in Event.Detail next to a read-only view of the state.
func (h *Hub) DispatchEvent(name string, detail any) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return fmt.Errorf("%w: name must not be empty", ErrInvalidEvent)
	case name == h.eventName:
		return fmt.Errorf("%w: %q is reserved for state events", ErrInvalidEvent, name)
	}
	event := state.Event{Name: name, Source: h.manager.ID(), Detail: detail}
	if h.manager.Loaded() {
		event.State = h.State()
	}
	h.logger.Debug("reactive: component event", zap.String("event", name))
	h.target.Dispatch(name, event)
	return nil
}

// State returns a read-only view of the state. Changes go through Dispatch.
func (h *Hub) State() *state.State {
	return h.manager.State().ReadOnly()
}

// IsReady reports whether the initial state is loaded.
func (h *Hub) IsReady() bool {
	return h.manager.Loaded()
}

// SetInitialState installs tree. Components already registered receive
// StateReady before it returns.
func (h *Hub) SetInitialState(tree map[string]any) error {
	return h.manager.SetInitialState(tree)
}

// LoadInitialState decodes data ("json" or "yaml") and installs it.
func (h *Hub) LoadInitialState(data []byte, format string) error {
	return h.manager.LoadInitialState(data, format)
}

// ProcessUpdates applies a batch of external updates as one transaction.
func (h *Hub) ProcessUpdates(updates []state.Update, overrides ...state.UpdateTypes) error {
	return h.manager.ProcessUpdates(updates, overrides...)
}

// ProcessUpdatesData decodes a batch ("json" or "yaml") and applies it.
func (h *Hub) ProcessUpdatesData(data []byte, format string, overrides ...state.UpdateTypes) error {
	return h.manager.ProcessUpdatesData(data, format, overrides...)
}

// AddUpdateTypes registers extra update actions on the manager.
func (h *Hub) AddUpdateTypes(types state.UpdateTypes) error {
	return h.manager.AddUpdateTypes(types)
}

// Dispatch runs the mutation registered under name with args. The
// mutation's own error is returned unchanged. When a mutation leaves the
// manager unlocked it is locked again, which publishes whatever changed.
func (h *Hub) Dispatch(name string, args ...any) (err error) {
	if !state.IsPublicName(name) {
		return fmt.Errorf("%w: %q", ErrPrivateMutation, name)
	}
	mutation := h.mutations[name]
	if mutation == nil {
		return fmt.Errorf("%w: %q", ErrUnknownMutation, name)
	}
	if !h.manager.Locked() {
		return fmt.Errorf("%w: %q", ErrReentrantDispatch, name)
	}

	h.logger.Debug("reactive: dispatch", zap.String("mutation", name), zap.Int("args", len(args)))
	defer func() {
		if h.manager.Locked() {
			return
		}
		h.logger.Warn("reactive: mutation left state unlocked", zap.String("mutation", name))
		h.manager.SetLocked(true)
	}()

	err = mutation(h.manager, args...)
	if err != nil {
		h.logger.Warn("reactive: mutation failed", zap.String("mutation", name), zap.Error(err))
	}
	return err
}

// RegisterComponent binds the component's watchers and schedules its
// StateReady call. Registering a component twice binds nothing new.
func (h *Hub) RegisterComponent(c Component) error {
	if err := validComponent(c); err != nil {
		notifyFailed(c, err)
		return err
	}
	if _, ok := h.registrations[c]; ok {
		notifySucceeded(c)
		return nil
	}

	reg := &registration{component: c, active: true}
	if provider, ok := c.(WatcherProvider); ok {
		for _, w := range provider.Watchers() {
			b, err := h.compileWatcher(w)
			if err != nil {
				h.logger.Warn("reactive: component registration failed", zap.Error(err))
				notifyFailed(c, err)
				return err
			}
			b.owner = reg
			reg.bindings = append(reg.bindings, b)
		}
	}

	loaded := h.manager.Loaded()
	for _, b := range reg.bindings {
		h.watchers[b.watcher.Watch] = append(h.watchers[b.watcher.Watch], b)
		if loaded && !h.manager.State().HasPath(b.watcher.Watch) {
			h.logger.Warn("reactive: watcher targets unknown path", zap.String("watch", b.watcher.Watch))
		}
	}
	h.registrations[c] = reg
	h.order = append(h.order, reg)
	h.logger.Debug("reactive: component registered",
		zap.String("component", fmt.Sprintf("%T", c)),
		zap.Int("watchers", len(reg.bindings)),
	)
	notifySucceeded(c)

	if loaded {
		h.markReady(reg)
	}
	return nil
}

// UnregisterComponent drops every binding of c, including those pending in
// the current flush, and calls Destroy when c implements Destroyer.
func (h *Hub) UnregisterComponent(c Component) {
	if validComponent(c) != nil {
		return
	}
	reg, ok := h.registrations[c]
	if !ok {
		return
	}
	reg.active = false
	delete(h.registrations, c)
	h.order = removeRegistration(h.order, reg)
	for _, b := range reg.bindings {
		h.watchers[b.watcher.Watch] = removeBinding(h.watchers[b.watcher.Watch], b)
		if len(h.watchers[b.watcher.Watch]) == 0 {
			delete(h.watchers, b.watcher.Watch)
		}
	}
	h.logger.Debug("reactive: component unregistered", zap.String("component", fmt.Sprintf("%T", c)))
	if holder, ok := c.(baseHolder); ok {
		holder.base().removeListeners()
	}
	if destroyer, ok := c.(Destroyer); ok {
		destroyer.Destroy()
	}
}

// Close unregisters every component and stops listening on the target.
func (h *Hub) Close() {
	for _, reg := range append([]*registration(nil), h.order...) {
		h.UnregisterComponent(reg.component)
	}
	if h.removeListen != nil {
		h.removeListen()
		h.removeListen = nil
	}
}

func (h *Hub) handleEvent(_ string, event state.Event) {
	if event.Source != h.manager.ID() {
		return
	}
	h.forwardActivity(event)
	if event.Name == state.LoadedEvent {
		for _, reg := range append([]*registration(nil), h.order...) {
			h.markReady(reg)
		}
	}
	bindings := append([]*binding(nil), h.watchers[event.Name]...)
	for _, b := range bindings {
		if !b.owner.active {
			continue
		}
		if !h.allows(b, event) {
			continue
		}
		h.run(b, event)
	}
}

func (h *Hub) markReady(reg *registration) {
	if !reg.active || reg.ready {
		return
	}
	reg.ready = true
	handler, ok := reg.component.(StateReadyHandler)
	if !ok {
		return
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			h.logger.Error("reactive: state ready panicked",
				zap.String("component", fmt.Sprintf("%T", reg.component)),
				zap.Any("panic", recovered),
			)
		}
	}()
	handler.StateReady(h.State())
}

func (h *Hub) forwardActivity(event state.Event) {
	if !h.emitter.Enabled() {
		return
	}
	input := activity.StateEventInput{
		Path:        event.Path,
		EventName:   event.Name,
		Hub:         h.name,
		Source:      event.Source,
		Transaction: event.Transaction,
	}
	if event.Element != nil && event.Kind != state.KindLoaded {
		input.Value = event.Element.Snapshot()
	}
	if err := h.emitter.Emit(context.Background(), activity.BuildStateEvent(string(event.Kind), input)); err != nil {
		h.logger.Warn("reactive: activity hook failed", zap.String("event", event.Name), zap.Error(err))
	}
}

func validComponent(c Component) error {
	if c == nil {
		return fmt.Errorf("%w: nil component", ErrInvalidComponent)
	}
	if !reflect.TypeOf(c).Comparable() {
		return fmt.Errorf("%w: %T is not comparable", ErrInvalidComponent, c)
	}
	return nil
}

func notifySucceeded(c Component) {
	if notifier, ok := c.(RegistrationNotifier); ok {
		notifier.RegistrationSucceeded()
	}
}

func notifyFailed(c Component, err error) {
	if notifier, ok := c.(RegistrationNotifier); ok {
		notifier.RegistrationFailed(err)
	}
}

func removeRegistration(list []*registration, target *registration) []*registration {
	out := make([]*registration, 0, len(list))
	for _, reg := range list {
		if reg != target {
			out = append(out, reg)
		}
	}
	return out
}

func removeBinding(list []*binding, target *binding) []*binding {
	out := make([]*binding, 0, len(list))
	for _, b := range list {
		if b != target {
			out = append(out, b)
		}
	}
	return out
}
