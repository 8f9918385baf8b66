// Package usersink forwards state activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/goliatone/go-reactive/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook is an activity.Hook writing ActivityRecords to Sink.
type Hook struct {
	Sink usertypes.ActivitySink
	// Actor is recorded when an event has no parseable actor, usually the
	// user driving the hub.
	Actor uuid.UUID
	// Tenant is recorded when an event has no parseable tenant.
	Tenant uuid.UUID
}

var _ activity.Hook = Hook{}

// Notify converts event into an ActivityRecord and logs it. Incomplete
// events are ignored.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = activity.Normalize(event)
	if !event.Complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, h.record(event))
}

func (h Hook) record(event activity.Event) usertypes.ActivityRecord {
	record := usertypes.ActivityRecord{
		ActorID:    parseUUID(event.ActorID, h.Actor),
		UserID:     parseUUID(event.UserID, uuid.Nil),
		TenantID:   parseUUID(event.TenantID, h.Tenant),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		OccurredAt: event.OccurredAt,
	}
	if len(event.Metadata) > 0 {
		record.Data = maps.Clone(event.Metadata)
	}
	if event.Transaction != "" {
		if record.Data == nil {
			record.Data = map[string]any{}
		}
		record.Data["transaction"] = event.Transaction
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	return record
}

func parseUUID(input string, fallback uuid.UUID) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil || id == uuid.Nil {
		return fallback
	}
	return id
}
