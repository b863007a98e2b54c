package settings

import "fmt"

// Group is a composite schema field: a named subtree declared on a parent
// schema. Exactly one child node exists per owning instance, created lazily
// on first access and cached for the owner's lifetime. The child cache is a
// plain map; callers serialize access per the package concurrency contract.
type Group struct {
	name     string
	schema   *Schema
	children map[*Node]*Node
}

// NewGroup declares a group field on parent whose children follow group. The
// same group schema may back group fields on several parents.
func NewGroup(parent *Schema, name string, group *Schema) *Group {
	g := &Group{
		name:     name,
		schema:   group,
		children: make(map[*Node]*Node),
	}
	parent.register(g)
	return g
}

// Name returns the field name within its schema.
func (g *Group) Name() string {
	return g.name
}

// Schema returns the schema the group's children follow.
func (g *Group) Schema() *Schema {
	return g.schema
}

// Of returns the child node for owner, materializing and caching it on first
// access.
func (g *Group) Of(owner Instance) *Node {
	n := owner.instanceNode()
	child, ok := g.children[n]
	if !ok {
		child = newNode(g.schema)
		g.children[n] = child
	}
	return child
}

// Assign replaces the child node for owner. The node must follow this
// group's schema.
func (g *Group) Assign(owner Instance, child *Node) error {
	if child == nil || child.schema != g.schema {
		return &TypeMismatchError{Field: g.name, Want: "group node", Got: fmt.Sprintf("%T", child)}
	}
	g.children[owner.instanceNode()] = child
	return nil
}

// Forget drops the cached child for owner without tearing down the child's
// own subtree; use Release on the owner for a full teardown.
func (g *Group) Forget(owner Instance) {
	g.forgetOwner(owner.instanceNode())
}

// Field implementation.

func (g *Group) collectModified(n *Node, out map[string]ModifiedValue) {
	for key, value := range g.Of(n).Modified() {
		out[joinPath(g.name, key)] = value
	}
}

func (g *Group) anyDirty(n *Node) bool {
	return g.Of(n).IsDirty()
}

func (g *Group) clearDirtyTree(n *Node) {
	g.Of(n).ClearDirty()
}

func (g *Group) snapshotValue(n *Node) (any, bool) {
	return g.Of(n).Snapshot(), true
}

func (g *Group) restoreValue(n *Node, value any) error {
	state, ok := value.(map[string]any)
	if !ok {
		return &TypeMismatchError{Field: g.name, Want: "map[string]any", Got: fmt.Sprintf("%T", value)}
	}
	return g.Of(n).Restore(state)
}

func (g *Group) forgetOwner(n *Node) {
	delete(g.children, n)
}

func (g *Group) releaseTree(n *Node) {
	if child, ok := g.children[n]; ok {
		child.Release()
	}
	g.forgetOwner(n)
}

func (g *Group) cloneState(src, dst *Node) {
	if child, ok := g.children[src]; ok {
		g.children[dst] = child.Clone()
	}
}

func (g *Group) mergeState(src, dst *Node) error {
	child, ok := g.children[src]
	if !ok {
		return nil
	}
	return g.Of(dst).Merge(child)
}

func (g *Group) effectiveValue(n *Node) any {
	return g.Of(n).Effective()
}

func (g *Group) describe(prefix string) []FieldDescriptor {
	path := joinPath(prefix, g.name)
	var fields []FieldDescriptor
	for _, field := range g.schema.fields {
		fields = append(fields, field.describe(path)...)
	}
	return fields
}

func (g *Group) resolveTrace(n *Node, full string, rest []string) (Trace, error) {
	if len(rest) == 0 {
		return Trace{}, &UnknownPathError{Path: full}
	}
	field, ok := g.schema.Field(rest[0])
	if !ok {
		return Trace{}, &UnknownPathError{Path: full}
	}
	return field.resolveTrace(g.Of(n), full, rest[1:])
}
