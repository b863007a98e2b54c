package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrETagMismatch = errors.New("history: etag mismatch")

// Ref identifies one archived snapshot for one settings object.
type Ref struct {
	Section  string
	ObjectID string
}

// Identifier returns the canonical storage key for the reference.
func (r Ref) Identifier() (string, error) {
	if r.ObjectID == "" {
		return "", fmt.Errorf("history: object id is required")
	}
	if r.Section == "" {
		return r.ObjectID, nil
	}
	return fmt.Sprintf("%s/%s", r.Section, r.ObjectID), nil
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one snapshot for a single reference.
type Store interface {
	Load(ctx context.Context, ref Ref) (snapshot map[string]any, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot map[string]any, meta Meta) (Meta, error)
}

// Mutator edits a snapshot in place before it is written back.
type Mutator func(map[string]any) error

// Archive records and retrieves snapshots through a Store.
type Archive struct {
	Store Store
}

// Record writes snapshot under ref. A missing Meta.SnapshotID is filled with
// a fresh UUID and UpdatedAt is stamped with the current time. When meta.ETag
// is set it must match the stored ETag or the write is refused.
func (a Archive) Record(ctx context.Context, ref Ref, snapshot map[string]any, meta Meta) (Meta, error) {
	if a.Store == nil {
		return Meta{}, fmt.Errorf("history: store is required")
	}
	if snapshot == nil {
		return Meta{}, fmt.Errorf("history: snapshot is required")
	}

	_, stored, ok, err := a.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("history: load %q: %w", ref.ObjectID, err)
	}
	if ok && meta.ETag != "" && stored.ETag != "" && meta.ETag != stored.ETag {
		return stored, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, stored.ETag)
	}

	if meta.SnapshotID == "" {
		meta.SnapshotID = uuid.NewString()
	}
	meta.UpdatedAt = time.Now()
	saved, err := a.Store.Save(ctx, ref, snapshot, meta)
	if err != nil {
		return Meta{}, fmt.Errorf("history: save %q: %w", ref.ObjectID, err)
	}
	return saved, nil
}

// Load retrieves the snapshot stored under ref. The boolean reports whether a
// snapshot exists.
func (a Archive) Load(ctx context.Context, ref Ref) (map[string]any, Meta, bool, error) {
	if a.Store == nil {
		return nil, Meta{}, false, fmt.Errorf("history: store is required")
	}
	snapshot, meta, ok, err := a.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, false, fmt.Errorf("history: load %q: %w", ref.ObjectID, err)
	}
	return snapshot, meta, ok, nil
}

// Mutate loads the snapshot under ref, applies fn, then writes it back with a
// new snapshot identifier. A missing snapshot starts fn from an empty map.
func (a Archive) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator) (map[string]any, Meta, error) {
	if a.Store == nil {
		return nil, Meta{}, fmt.Errorf("history: store is required")
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("history: mutator is required")
	}

	snapshot, stored, ok, err := a.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("history: load %q: %w", ref.ObjectID, err)
	}
	if !ok {
		snapshot = map[string]any{}
		stored = Meta{}
	}

	if meta.ETag != "" && stored.ETag != "" && meta.ETag != stored.ETag {
		return nil, stored, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, stored.ETag)
	}

	if err := fn(snapshot); err != nil {
		return nil, stored, err
	}

	saveMeta := mergeMeta(stored, meta)
	saveMeta.SnapshotID = uuid.NewString()
	saveMeta.UpdatedAt = time.Now()
	saved, err := a.Store.Save(ctx, ref, snapshot, saveMeta)
	if err != nil {
		return nil, stored, fmt.Errorf("history: save %q: %w", ref.ObjectID, err)
	}
	return snapshot, saved, nil
}

func mergeMeta(stored, requested Meta) Meta {
	out := stored
	if requested.ETag != "" {
		out.ETag = requested.ETag
	}
	if len(requested.Extra) > 0 {
		if out.Extra == nil {
			out.Extra = make(map[string]string, len(requested.Extra))
		}
		for k, v := range requested.Extra {
			out.Extra[k] = v
		}
	}
	return out
}
