package activity

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"
)

// Event is one state change as seen by audit and activity sinks. IDs are
// plain strings so callers are not tied to a UUID type.
type Event struct {
	Verb        string
	ActorID     string
	UserID      string
	TenantID    string
	ObjectType  string
	ObjectID    string
	Channel     string
	Transaction string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// Kind returns the change kind encoded in the verb, "updated" for
// "state.updated". Verbs without a dot are returned as is.
func (e Event) Kind() string {
	verb := strings.TrimSpace(e.Verb)
	if i := strings.LastIndexByte(verb, '.'); i >= 0 {
		return verb[i+1:]
	}
	return verb
}

// Complete reports whether the event names a verb and an object.
func (e Event) Complete() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// Hook receives normalized events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify calls fn.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans events out to several hooks.
type Hooks []Hook

// Enabled reports whether there is at least one hook.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify normalizes event and hands it to every hook. Incomplete events are
// dropped. Hook failures do not stop delivery and come back joined.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	event = Normalize(event)
	if !event.Complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		errs = append(errs, hook.Notify(ctx, event))
	}
	return errors.Join(errs...)
}

// Normalize trims the string fields, copies the metadata and stamps
// OccurredAt when it is zero.
func Normalize(event Event) Event {
	out := Event{
		Verb:        strings.TrimSpace(event.Verb),
		ActorID:     strings.TrimSpace(event.ActorID),
		UserID:      strings.TrimSpace(event.UserID),
		TenantID:    strings.TrimSpace(event.TenantID),
		ObjectType:  strings.TrimSpace(event.ObjectType),
		ObjectID:    strings.TrimSpace(event.ObjectID),
		Channel:     strings.TrimSpace(event.Channel),
		Transaction: strings.TrimSpace(event.Transaction),
		Metadata:    cloneMetadata(event.Metadata),
		OccurredAt:  event.OccurredAt,
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now()
	}
	return out
}

func cloneMetadata(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}
