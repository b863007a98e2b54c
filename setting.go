package settings

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/goliatone/go-settings/internal/deepclone"
)

// ResetMarker is the distinguished value accepted by SetAny meaning "revert
// this field to its default". It is never a legal field value.
var ResetMarker resetMarker

type resetMarker struct{}

// entry is one stored value; null distinguishes an explicit nil from a value.
type entry[T any] struct {
	value T
	null  bool
}

// Setting is a typed per-value accessor registered on a Schema. One Setting
// serves every instance of the declaring type: per-owner state (current
// value, prior committed value, dirty flag) lives in side tables keyed by the
// owning node's identity and is released through Forget. The tables are plain
// maps; callers serialize access per the package concurrency contract.
type Setting[T any] struct {
	name     string
	def      entry[T]
	nillable bool
	convert  func(any) (T, error)

	values map[*Node]entry[T]
	prior  map[*Node]entry[T]
	dirty  map[*Node]bool
}

// SettingOption configures a Setting at declaration time.
type SettingOption[T any] func(*Setting[T])

// Nillable allows the setting to hold an explicit null.
func Nillable[T any]() SettingOption[T] {
	return func(s *Setting[T]) {
		s.nillable = true
	}
}

// NullDefault declares the default value to be null instead of the zero
// value passed to NewSetting. Resetting a non-nillable setting with a null
// default fails.
func NullDefault[T any]() SettingOption[T] {
	return func(s *Setting[T]) {
		s.def = entry[T]{null: true}
	}
}

// WithConverter replaces the built-in coercion applied by SetAny.
func WithConverter[T any](convert func(any) (T, error)) SettingOption[T] {
	return func(s *Setting[T]) {
		s.convert = convert
	}
}

// NewSetting declares a setting on schema with the given name and default.
func NewSetting[T any](schema *Schema, name string, def T, opts ...SettingOption[T]) *Setting[T] {
	s := &Setting[T]{
		name:   name,
		def:    entry[T]{value: def},
		values: make(map[*Node]entry[T]),
		prior:  make(map[*Node]entry[T]),
		dirty:  make(map[*Node]bool),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	schema.register(s)
	return s
}

// Name returns the field name within its schema.
func (s *Setting[T]) Name() string {
	return s.name
}

// Default returns the declared default value (the zero value when the
// default is null).
func (s *Setting[T]) Default() T {
	if s.def.null {
		var zero T
		return zero
	}
	return s.def.value
}

// Nillable reports whether the setting accepts explicit null.
func (s *Setting[T]) Nillable() bool {
	return s.nillable
}

// Get returns the current value for owner, falling back to the default when
// no explicit value is stored. An explicit null reads as the zero value;
// IsNull distinguishes it.
func (s *Setting[T]) Get(owner Instance) T {
	n := owner.instanceNode()
	e, ok := s.values[n]
	if !ok {
		e = s.def
	}
	if e.null {
		var zero T
		return zero
	}
	return e.value
}

// IsNull reports whether the effective value for owner is null.
func (s *Setting[T]) IsNull(owner Instance) bool {
	n := owner.instanceNode()
	if e, ok := s.values[n]; ok {
		return e.null
	}
	return s.def.null
}

// IsSet reports whether an explicit value (including null) is stored for
// owner.
func (s *Setting[T]) IsSet(owner Instance) bool {
	_, ok := s.values[owner.instanceNode()]
	return ok
}

// Set stores value for owner and marks the setting dirty, even when the
// stored value is unchanged.
func (s *Setting[T]) Set(owner Instance, value T) {
	n := owner.instanceNode()
	s.values[n] = entry[T]{value: value}
	s.dirty[n] = true
}

// SetNull stores an explicit null for owner. Fails with ErrNotNillable when
// the setting was not declared nillable; state is unchanged on failure.
func (s *Setting[T]) SetNull(owner Instance) error {
	if !s.nillable {
		return fmt.Errorf("%w: field %q", ErrNotNillable, s.name)
	}
	n := owner.instanceNode()
	s.values[n] = entry[T]{null: true}
	s.dirty[n] = true
	return nil
}

// Reset clears any explicit value for owner so reads fall back to the
// default, and marks the setting dirty. Fails with ErrNotNillable when the
// default is null and the setting is not nillable.
func (s *Setting[T]) Reset(owner Instance) error {
	if s.def.null && !s.nillable {
		return fmt.Errorf("%w: field %q has a null default", ErrNotNillable, s.name)
	}
	n := owner.instanceNode()
	delete(s.values, n)
	s.dirty[n] = true
	return nil
}

// SetAny assigns a dynamically typed value: nil stores null, ResetMarker
// reverts to the default, and anything else is coerced to the declared type.
func (s *Setting[T]) SetAny(owner Instance, value any) error {
	switch value.(type) {
	case nil:
		return s.SetNull(owner)
	case resetMarker:
		return s.Reset(owner)
	}
	v, err := s.coerce(value)
	if err != nil {
		return err
	}
	s.Set(owner, v)
	return nil
}

// IsDirty reports whether the setting was assigned for owner since the last
// ClearDirty.
func (s *Setting[T]) IsDirty(owner Instance) bool {
	return s.dirty[owner.instanceNode()]
}

// ClearDirty commits the current value as the prior committed value and
// clears the dirty flag.
func (s *Setting[T]) ClearDirty(owner Instance) {
	n := owner.instanceNode()
	delete(s.dirty, n)
	if e, ok := s.values[n]; ok {
		s.prior[n] = e
	} else {
		delete(s.prior, n)
	}
}

// Prior returns the value as of the last ClearDirty, or the default when the
// setting was never committed.
func (s *Setting[T]) Prior(owner Instance) T {
	n := owner.instanceNode()
	e, ok := s.prior[n]
	if !ok {
		e = s.def
	}
	if e.null {
		var zero T
		return zero
	}
	return e.value
}

// Undo reverts the current value to the prior committed value (or the
// default when none) and clears the dirty flag.
func (s *Setting[T]) Undo(owner Instance) {
	n := owner.instanceNode()
	delete(s.dirty, n)
	if e, ok := s.prior[n]; ok {
		s.values[n] = e
	} else {
		delete(s.values, n)
	}
}

// Forget releases all per-owner state held for owner. Idempotent.
func (s *Setting[T]) Forget(owner Instance) {
	s.forgetOwner(owner.instanceNode())
}

func (s *Setting[T]) coerce(value any) (T, error) {
	var zero T
	if s.convert != nil {
		v, err := s.convert(value)
		if err != nil {
			return zero, &TypeMismatchError{Field: s.name, Want: typeNameOf[T](), Got: fmt.Sprintf("%T", value), Err: err}
		}
		return v, nil
	}
	if v, ok := value.(T); ok {
		return v, nil
	}
	if number, ok := value.(json.Number); ok {
		if v, ok := numberTo[T](number); ok {
			return v, nil
		}
	}
	target := reflect.TypeOf(&zero).Elem()
	rv := reflect.ValueOf(value)
	if numericKind(rv.Kind()) && numericKind(target.Kind()) && rv.Type().ConvertibleTo(target) {
		return rv.Convert(target).Interface().(T), nil
	}
	// Structured values (maps, slices, nested structs) coerce through a JSON
	// round trip, the same path deserialized snapshots take.
	if data, err := json.Marshal(value); err == nil {
		var out T
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
	}
	return zero, &TypeMismatchError{Field: s.name, Want: typeNameOf[T](), Got: fmt.Sprintf("%T", value)}
}

// Field implementation.

func (s *Setting[T]) collectModified(n *Node, out map[string]ModifiedValue) {
	if !s.dirty[n] {
		return
	}
	out[s.name] = ModifiedValue{Old: s.priorAsAny(n), New: s.currentAsAny(n)}
}

func (s *Setting[T]) anyDirty(n *Node) bool {
	return s.dirty[n]
}

func (s *Setting[T]) clearDirtyTree(n *Node) {
	s.ClearDirty(n)
}

func (s *Setting[T]) snapshotValue(n *Node) (any, bool) {
	e, ok := s.values[n]
	if !ok {
		return nil, false
	}
	if e.null {
		return nil, true
	}
	return deepclone.Clone(e.value), true
}

func (s *Setting[T]) restoreValue(n *Node, value any) error {
	if err := s.SetAny(n, value); err != nil {
		return err
	}
	s.ClearDirty(n)
	return nil
}

func (s *Setting[T]) forgetOwner(n *Node) {
	delete(s.values, n)
	delete(s.prior, n)
	delete(s.dirty, n)
}

func (s *Setting[T]) releaseTree(n *Node) {
	s.forgetOwner(n)
}

func (s *Setting[T]) cloneState(src, dst *Node) {
	if e, ok := s.values[src]; ok {
		s.values[dst] = cloneEntry(e)
	}
	if e, ok := s.prior[src]; ok {
		s.prior[dst] = cloneEntry(e)
	}
	if s.dirty[src] {
		s.dirty[dst] = true
	}
}

func (s *Setting[T]) mergeState(src, dst *Node) error {
	e, ok := s.values[src]
	if !ok {
		return nil
	}
	if e.null {
		return s.SetNull(dst)
	}
	s.Set(dst, cloneEntry(e).value)
	return nil
}

func (s *Setting[T]) effectiveValue(n *Node) any {
	return deepclone.Clone(s.currentAsAny(n))
}

func (s *Setting[T]) describe(prefix string) []FieldDescriptor {
	return []FieldDescriptor{{
		Path:     joinPath(prefix, s.name),
		Type:     typeNameOf[T](),
		Default:  entryAsAny(s.def),
		Nillable: s.nillable,
	}}
}

func (s *Setting[T]) resolveTrace(n *Node, full string, rest []string) (Trace, error) {
	if len(rest) > 0 {
		return Trace{}, &UnknownPathError{Path: full}
	}
	origin := OriginDefault
	if e, ok := s.values[n]; ok {
		origin = OriginExplicit
		if e.null {
			origin = OriginNull
		}
	} else if s.def.null {
		origin = OriginNull
	}
	return Trace{
		Path:    full,
		Value:   s.currentAsAny(n),
		Default: entryAsAny(s.def),
		Prior:   s.priorAsAny(n),
		Origin:  origin,
		Dirty:   s.dirty[n],
	}, nil
}

func (s *Setting[T]) currentAsAny(n *Node) any {
	e, ok := s.values[n]
	if !ok {
		e = s.def
	}
	return entryAsAny(e)
}

func (s *Setting[T]) priorAsAny(n *Node) any {
	e, ok := s.prior[n]
	if !ok {
		e = s.def
	}
	return entryAsAny(e)
}

func cloneEntry[T any](e entry[T]) entry[T] {
	if e.null {
		return e
	}
	cloned, ok := deepclone.Clone(e.value).(T)
	if !ok {
		return e
	}
	return entry[T]{value: cloned}
}

func entryAsAny[T any](e entry[T]) any {
	if e.null {
		return nil
	}
	return e.value
}

func typeNameOf[T any]() string {
	var zero T
	t := reflect.TypeOf(&zero).Elem()
	return t.String()
}

func numericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func numberTo[T any](number json.Number) (T, bool) {
	var zero T
	target := reflect.TypeOf(&zero).Elem()
	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := number.Int64()
		if err != nil {
			return zero, false
		}
		return reflect.ValueOf(i).Convert(target).Interface().(T), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(number.String(), 10, 64)
		if err != nil {
			return zero, false
		}
		return reflect.ValueOf(u).Convert(target).Interface().(T), true
	case reflect.Float32, reflect.Float64:
		f, err := number.Float64()
		if err != nil {
			return zero, false
		}
		return reflect.ValueOf(f).Convert(target).Interface().(T), true
	}
	return zero, false
}
