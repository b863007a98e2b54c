package notify

import (
	"strings"
	"time"
)

// Lifecycle verbs emitted by root settings objects.
const (
	VerbChanged    = "settings.changed"
	VerbSaveFailed = "settings.save_failed"
	VerbDeleted    = "settings.deleted"
)

// EventInput describes the common fields for settings lifecycle events.
type EventInput struct {
	ActorID    string
	UserID     string
	Section    string
	ObjectType string
	ObjectID   string
	Channel    string
	Modified   map[string]Change
	Metadata   map[string]any
	Err        error
	OccurredAt time.Time
}

// BuildChangedEvent constructs the event announcing that modified settings
// were committed (whether or not persistence succeeded).
func BuildChangedEvent(input EventInput) Event {
	return buildEvent(VerbChanged, input)
}

// BuildSaveFailedEvent constructs the event announcing a persistence failure.
// The failure cause lands in the metadata under "error".
func BuildSaveFailedEvent(input EventInput) Event {
	return buildEvent(VerbSaveFailed, input)
}

// BuildDeletedEvent constructs the event announcing a persistent record
// removal.
func BuildDeletedEvent(input EventInput) Event {
	return buildEvent(VerbDeleted, input)
}

func buildEvent(verb string, input EventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Section != "" {
		metadata = ensureMetadata(metadata)
		metadata["section"] = input.Section
	}
	if input.Err != nil {
		metadata = ensureMetadata(metadata)
		metadata["error"] = input.Err.Error()
	}

	objectType := strings.TrimSpace(input.ObjectType)
	if objectType == "" {
		objectType = "settings"
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		Section:    strings.TrimSpace(input.Section),
		ObjectType: objectType,
		ObjectID:   strings.TrimSpace(input.ObjectID),
		Channel:    strings.TrimSpace(input.Channel),
		Modified:   cloneChanges(input.Modified),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
