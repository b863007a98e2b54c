package settings

import (
	"fmt"
	"strings"
)

// presenceKey marks a snapshot that exists but carries no explicit fields,
// keeping "present with all defaults" distinguishable from "record absent".
const presenceKey = "__present__"

// Field is the common surface of Setting and Group descriptors registered on
// a Schema. Only descriptors created through this package implement it.
type Field interface {
	// Name returns the field name within its schema.
	Name() string

	collectModified(n *Node, out map[string]ModifiedValue)
	anyDirty(n *Node) bool
	clearDirtyTree(n *Node)
	snapshotValue(n *Node) (any, bool)
	restoreValue(n *Node, value any) error
	forgetOwner(n *Node)
	releaseTree(n *Node)
	cloneState(src, dst *Node)
	mergeState(src, dst *Node) error
	effectiveValue(n *Node) any
	describe(prefix string) []FieldDescriptor
	resolveTrace(n *Node, full string, rest []string) (Trace, error)
}

// Schema is the static definition of a settings subtree: an ordered list of
// Setting and Group fields shared by every instance of the declaring type.
// Schemas are built once, before any instance exists, and are immutable
// afterwards by convention.
type Schema struct {
	fields []Field
	byName map[string]Field
}

// NewSchema constructs an empty schema.
func NewSchema() *Schema {
	return &Schema{byName: make(map[string]Field)}
}

// Fields returns the registered fields in declaration order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Field returns the field registered under name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// register panics on duplicate names: schema definitions are program
// structure, and a clash is a programming error caught at startup.
func (s *Schema) register(f Field) {
	name := f.Name()
	if name == "" {
		panic("settings: field name must not be empty")
	}
	if strings.Contains(name, ".") {
		panic(fmt.Sprintf("settings: field name %q must not contain a path separator", name))
	}
	if _, exists := s.byName[name]; exists {
		panic(fmt.Sprintf("settings: field %q already registered", name))
	}
	if s.byName == nil {
		s.byName = make(map[string]Field)
	}
	s.byName[name] = f
	s.fields = append(s.fields, f)
}

// joinPath prefixes a nested key with its group name; an empty key collapses
// to just the group name.
func joinPath(prefix, key string) string {
	if key == "" {
		return prefix
	}
	if prefix == "" {
		return key
	}
	return strings.Join([]string{prefix, key}, ".")
}
