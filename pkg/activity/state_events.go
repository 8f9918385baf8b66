package activity

import (
	"strings"
	"time"
)

// ObjectTypeState is the object type of every state activity event.
const ObjectTypeState = "state"

// StateEventInput carries a flushed state change into BuildStateEvent.
type StateEventInput struct {
	ActorID  string
	UserID   string
	TenantID string
	ObjectID string
	Channel  string
	Metadata map[string]any
	// Path is the changed path, "course.title" or "sections[4]".
	Path string
	// EventName is the full state event name, "course.title:updated".
	EventName   string
	Hub         string
	Source      string
	Transaction string
	Value       any
	OccurredAt  time.Time
}

// BuildStateCreatedEvent builds the event for a created path.
func BuildStateCreatedEvent(input StateEventInput) Event {
	return BuildStateEvent("created", input)
}

// BuildStateUpdatedEvent builds the event for an updated path.
func BuildStateUpdatedEvent(input StateEventInput) Event {
	return BuildStateEvent("updated", input)
}

// BuildStateDeletedEvent builds the event for a deleted path.
func BuildStateDeletedEvent(input StateEventInput) Event {
	return BuildStateEvent("deleted", input)
}

// BuildStateLoadedEvent builds the event for an installed initial state.
func BuildStateLoadedEvent(input StateEventInput) Event {
	return BuildStateEvent("loaded", input)
}

// BuildStateEvent builds an event with verb "state.<kind>". The object id is
// the path unless ObjectID is set; the bare root falls back to "state".
// Path, event name, hub, source and value land in the metadata.
func BuildStateEvent(kind string, input StateEventInput) Event {
	metadata := cloneMetadata(input.Metadata)
	for key, value := range map[string]string{
		"path":   input.Path,
		"event":  input.EventName,
		"hub":    input.Hub,
		"source": input.Source,
	} {
		if value = strings.TrimSpace(value); value == "" {
			continue
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	if input.Value != nil {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata["value"] = input.Value
	}

	objectID := firstNonEmpty(input.ObjectID, input.Path, ObjectTypeState)
	return Event{
		Verb:        ObjectTypeState + "." + strings.TrimSpace(kind),
		ActorID:     strings.TrimSpace(input.ActorID),
		UserID:      strings.TrimSpace(input.UserID),
		TenantID:    strings.TrimSpace(input.TenantID),
		ObjectType:  ObjectTypeState,
		ObjectID:    objectID,
		Channel:     strings.TrimSpace(input.Channel),
		Transaction: strings.TrimSpace(input.Transaction),
		Metadata:    metadata,
		OccurredAt:  input.OccurredAt,
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
