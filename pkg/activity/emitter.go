package activity

import (
	"context"
	"strings"
)

// DefaultChannel is applied to events emitted without a channel.
const DefaultChannel = "reactive"

// Config controls how a hub forwards its state events.
type Config struct {
	Enabled bool
	// Channel is set on events that carry none.
	Channel string
	// Actor is set on events that carry no actor.
	Actor string
	// Kinds limits emission to the listed change kinds. Empty emits all.
	Kinds []string
}

// Emitter applies Config to events before handing them to hooks.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
	actor   string
	kinds   map[string]struct{}
}

// NewEmitter builds an emitter. Nil hooks are dropped and an emitter without
// hooks is never enabled.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	e := &Emitter{
		channel: strings.TrimSpace(cfg.Channel),
		actor:   strings.TrimSpace(cfg.Actor),
	}
	if e.channel == "" {
		e.channel = DefaultChannel
	}
	for _, hook := range hooks {
		if hook != nil {
			e.hooks = append(e.hooks, hook)
		}
	}
	for _, kind := range cfg.Kinds {
		kind = strings.ToLower(strings.TrimSpace(kind))
		if kind == "" {
			continue
		}
		if e.kinds == nil {
			e.kinds = make(map[string]struct{}, len(cfg.Kinds))
		}
		e.kinds[kind] = struct{}{}
	}
	e.enabled = cfg.Enabled && len(e.hooks) > 0
	return e
}

// Enabled reports whether Emit reaches any hook.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Accepts reports whether events of kind pass the kind filter.
func (e *Emitter) Accepts(kind string) bool {
	if e == nil || len(e.kinds) == 0 {
		return true
	}
	_, ok := e.kinds[strings.ToLower(kind)]
	return ok
}

// Emit fills the default channel and actor and notifies the hooks.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() || !e.Accepts(event.Kind()) {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if strings.TrimSpace(event.ActorID) == "" {
		event.ActorID = e.actor
	}
	return e.hooks.Notify(ctx, event)
}
