// Package notify delivers settings-change events to registered hooks. It is
// the process-local replacement for a global notification center: whoever
// owns the manager decides which hooks observe saves, failures and deletions.
package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Change carries the committed and pending value of one modified setting.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Event describes a settings lifecycle occurrence fanned out to hooks.
type Event struct {
	ID         string
	Verb       string
	ActorID    string
	UserID     string
	Section    string
	ObjectType string
	ObjectID   string
	Channel    string
	Modified   map[string]Change
	Metadata   map[string]any
	OccurredAt time.Time
}

// Hook receives normalized settings events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any
// fail. The event is normalized first and dropped when required fields are
// missing.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectID == "" {
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
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims whitespace, clones the mutable maps, and fills in the
// event ID and timestamp when absent.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.ID = strings.TrimSpace(event.ID)
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.ActorID = strings.TrimSpace(event.ActorID)
	normalized.UserID = strings.TrimSpace(event.UserID)
	normalized.Section = strings.TrimSpace(event.Section)
	normalized.ObjectType = strings.TrimSpace(event.ObjectType)
	normalized.ObjectID = strings.TrimSpace(event.ObjectID)
	normalized.Channel = strings.TrimSpace(event.Channel)
	normalized.Modified = cloneChanges(event.Modified)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.ID == "" {
		normalized.ID = uuid.NewString()
	}
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneChanges(src map[string]Change) map[string]Change {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]Change, len(src))
	for path, change := range src {
		dst[path] = change
	}
	return dst
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
