package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-settings/backend"
	"github.com/goliatone/go-settings/pkg/notify"
)

// ObjectType is the static definition of a root settings entity: its schema,
// the backend section its records live in, an optional fixed id, and any
// validation rules checked before persistence.
type ObjectType struct {
	name      string
	section   string
	defaultID string
	schema    *Schema
	rules     rulesConfig
}

// ObjectTypeOption configures an ObjectType at declaration time.
type ObjectTypeOption func(*ObjectType)

// WithSection assigns the backend section records of this type are stored
// in. Types without a section live purely in memory.
func WithSection(section string) ObjectTypeOption {
	return func(t *ObjectType) {
		t.section = section
	}
}

// WithDefaultID fixes the id used when Instance is called without one. The
// instance carrying this id cannot be deleted.
func WithDefaultID(id string) ObjectTypeOption {
	return func(t *ObjectType) {
		t.defaultID = id
	}
}

// NewObjectType declares a root settings type. The name tags persisted
// records so rehydration can reject records written by a different type.
func NewObjectType(name string, opts ...ObjectTypeOption) *ObjectType {
	t := &ObjectType{
		name:   name,
		schema: NewSchema(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Name returns the type tag used in persisted records.
func (t *ObjectType) Name() string {
	return t.name
}

// Section returns the backend section, or "" for in-memory types.
func (t *ObjectType) Section() string {
	return t.section
}

// DefaultID returns the fixed id, or "" when instances always need an
// explicit id.
func (t *ObjectType) DefaultID() string {
	return t.defaultID
}

// Schema returns the type's schema for field declaration.
func (t *ObjectType) Schema() *Schema {
	return t.schema
}

// Instance returns the live object for id, enforcing one instance per
// distinct id: while an instance is live, every construction with the same
// id aliases it. On first construction the object is rehydrated from the
// backend when a compatible record exists, otherwise it starts fresh with
// every setting at its default. An empty id falls back to the type's default
// id and fails with ErrMissingID when none is declared.
func (t *ObjectType) Instance(m *Manager, id string) (*Object, error) {
	if id == "" {
		id = t.defaultID
	}
	if id == "" {
		return nil, fmt.Errorf("%w to instantiate %s", ErrMissingID, t.name)
	}
	if m == nil {
		return nil, fmt.Errorf("%w to instantiate %s", ErrNoManager, t.name)
	}
	if existing := m.lookup(t, id); existing != nil {
		return existing, nil
	}

	obj := &Object{
		typ:  t,
		id:   id,
		mgr:  m,
		node: newNode(t.schema),
	}
	if t.section != "" {
		env, err := m.Get(t.section, id)
		switch {
		case isAbsent(err):
			// Fresh instance.
		case err != nil:
			return nil, err
		case env.Type != t.name:
			// A record written by another type is treated as absent.
		default:
			if err := obj.node.Restore(env.Fields); err != nil {
				return nil, fmt.Errorf("settings: rehydrate %s %q: %w", t.name, id, err)
			}
		}
	}
	m.register(t, id, obj)
	return obj, nil
}

func isAbsent(err error) bool {
	var unknownSection *backend.UnknownSectionError
	var unknownName *backend.UnknownNameError
	return errors.As(err, &unknownSection) || errors.As(err, &unknownName)
}

// Object is a root persisted settings entity identified by (section, id).
type Object struct {
	typ  *ObjectType
	id   string
	mgr  *Manager
	node *Node
}

func (o *Object) instanceNode() *Node {
	return o.node
}

// Type returns the declaring ObjectType.
func (o *Object) Type() *ObjectType {
	return o.typ
}

// ID returns the identity assigned at construction. It never changes.
func (o *Object) ID() string {
	return o.id
}

// Modified returns every dirty setting in the tree keyed by dotted path.
func (o *Object) Modified() map[string]ModifiedValue {
	return o.node.Modified()
}

// IsDirty reports whether any setting in the tree is dirty.
func (o *Object) IsDirty() bool {
	return o.node.IsDirty()
}

// ClearDirty recursively commits and clears dirty state.
func (o *Object) ClearDirty() {
	o.node.ClearDirty()
}

// Snapshot projects the tree into its persisted shape.
func (o *Object) Snapshot() map[string]any {
	return o.node.Snapshot()
}

// Restore applies a snapshot through normal set semantics, clearing dirty
// state as it goes.
func (o *Object) Restore(state map[string]any) error {
	return o.node.Restore(state)
}

// Effective returns the default-resolved value tree.
func (o *Object) Effective() map[string]any {
	return o.node.Effective()
}

// Release tears down the per-owner state of the whole tree. The object must
// not be used afterwards.
func (o *Object) Release() {
	o.node.Release()
}

// Save persists the tree when it carries modifications. With nothing
// modified it is a no-op: no I/O, no notification. Validation rules run
// before any I/O and abort the save with a RuleViolationError. Once
// modifications existed, the changed notification is emitted whether or not
// persistence succeeded; a persistence failure additionally emits a
// save-failed notification first and is not returned as an error. Dirty
// state is always cleared at the end.
func (o *Object) Save(ctx context.Context) error {
	modified := o.node.Modified()
	if len(modified) == 0 {
		return nil
	}
	if err := o.typ.checkRules(o); err != nil {
		return err
	}

	var saveErr error
	if o.typ.section != "" {
		saveErr = o.mgr.Set(o.typ.section, o.id, o)
		if saveErr == nil {
			saveErr = o.mgr.Flush()
		}
	}

	changes := modifiedChanges(modified)
	if saveErr != nil {
		o.mgr.emit(ctx, notify.BuildSaveFailedEvent(notify.EventInput{
			Section:    o.typ.section,
			ObjectType: o.typ.name,
			ObjectID:   o.id,
			Modified:   changes,
			Err:        saveErr,
		}))
	}
	o.mgr.emit(ctx, notify.BuildChangedEvent(notify.EventInput{
		Section:    o.typ.section,
		ObjectType: o.typ.name,
		ObjectID:   o.id,
		Modified:   changes,
	}))
	o.node.ClearDirty()
	return nil
}

// Delete removes the object from the identity map and, for persisted types,
// from the backend. Deleting the instance carrying the type's default id
// fails with ErrIllegalDelete. A missing section counts as already deleted.
func (o *Object) Delete(ctx context.Context) error {
	if o.typ.defaultID != "" && o.id == o.typ.defaultID {
		return fmt.Errorf("%w: %s %q", ErrIllegalDelete, o.typ.name, o.id)
	}
	o.mgr.unregister(o.typ, o.id)
	if o.typ.section == "" {
		return nil
	}

	err := o.mgr.Delete(o.typ.section, o.id)
	var unknownSection *backend.UnknownSectionError
	if errors.As(err, &unknownSection) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := o.mgr.Flush(); err != nil {
		return err
	}
	o.mgr.emit(ctx, notify.BuildDeletedEvent(notify.EventInput{
		Section:    o.typ.section,
		ObjectType: o.typ.name,
		ObjectID:   o.id,
	}))
	return nil
}

// Clone deep-copies the tree under a new identity. The clone is not
// registered in the identity map; the caller decides whether and when to
// persist it.
func (o *Object) Clone(newID string) (*Object, error) {
	if newID == "" {
		return nil, fmt.Errorf("%w to clone %s", ErrMissingID, o.typ.name)
	}
	return &Object{
		typ:  o.typ,
		id:   newID,
		mgr:  o.mgr,
		node: o.node.Clone(),
	}, nil
}

// Merge copies every explicitly set value from other into this object.
func (o *Object) Merge(other *Object) error {
	if other == nil {
		return ErrSchemaMismatch
	}
	return o.node.Merge(other.node)
}

func modifiedChanges(modified map[string]ModifiedValue) map[string]notify.Change {
	if len(modified) == 0 {
		return nil
	}
	changes := make(map[string]notify.Change, len(modified))
	for path, value := range modified {
		changes[path] = notify.Change{Old: value.Old, New: value.New}
	}
	return changes
}
