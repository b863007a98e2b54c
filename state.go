package settings

// ModifiedValue holds the committed and pending value of a dirty setting.
type ModifiedValue struct {
	Old any
	New any
}

// Instance is an owner handle accepted by Setting and Group accessors. Both
// group nodes and root objects are instances.
type Instance interface {
	instanceNode() *Node
}

// Node is one materialized instance of a schema subtree. The node itself
// carries no field values; its pointer identity keys the per-owner state
// tables inside the schema's descriptors.
type Node struct {
	schema *Schema
}

func newNode(schema *Schema) *Node {
	return &Node{schema: schema}
}

// NewNode constructs a detached instance of schema, useful for building a
// subtree before assigning it to a group field.
func NewNode(schema *Schema) *Node {
	return newNode(schema)
}

func (n *Node) instanceNode() *Node {
	return n
}

// Schema returns the static schema this node follows.
func (n *Node) Schema() *Schema {
	return n.schema
}

// Modified returns every dirty setting in the subtree, keyed by dotted path
// from this node, with the committed and pending values.
func (n *Node) Modified() map[string]ModifiedValue {
	out := make(map[string]ModifiedValue)
	for _, field := range n.schema.fields {
		field.collectModified(n, out)
	}
	return out
}

// IsDirty reports whether any setting in the subtree is dirty.
func (n *Node) IsDirty() bool {
	for _, field := range n.schema.fields {
		if field.anyDirty(n) {
			return true
		}
	}
	return false
}

// ClearDirty recursively commits current values and clears dirty flags
// across the subtree.
func (n *Node) ClearDirty() {
	for _, field := range n.schema.fields {
		field.clearDirtyTree(n)
	}
}

// Snapshot projects the subtree into its persisted shape: every group field
// recursively, plus every setting with an explicit value. Defaults are never
// included. An otherwise empty snapshot carries a presence marker so it stays
// distinguishable from a missing record.
func (n *Node) Snapshot() map[string]any {
	state := make(map[string]any)
	for _, field := range n.schema.fields {
		if value, ok := field.snapshotValue(n); ok {
			state[field.Name()] = value
		}
	}
	if len(state) == 0 {
		state[presenceKey] = true
	}
	return state
}

// Restore assigns every snapshot entry through normal field-set semantics
// and immediately clears the dirty flag per field, so restored state never
// reads as pending changes. Keys that no longer resolve to a schema field
// are skipped.
func (n *Node) Restore(state map[string]any) error {
	for _, field := range n.schema.fields {
		value, ok := state[field.Name()]
		if !ok {
			continue
		}
		if err := field.restoreValue(n, value); err != nil {
			return err
		}
	}
	return nil
}

// Effective returns the whole subtree as nested maps with every setting
// resolved to its effective value, defaults included.
func (n *Node) Effective() map[string]any {
	out := make(map[string]any, len(n.schema.fields))
	for _, field := range n.schema.fields {
		out[field.Name()] = field.effectiveValue(n)
	}
	return out
}

// Release tears down all per-owner state the subtree holds in the schema's
// descriptors. Group children are released recursively before being dropped.
// Call it when removing a tree from use; the side tables are not cleaned up
// by garbage collection.
func (n *Node) Release() {
	for _, field := range n.schema.fields {
		field.releaseTree(n)
	}
}

// Clone returns an independent copy of the subtree carrying equivalent
// values, prior values and dirty flags, sharing no mutable state with the
// source.
func (n *Node) Clone() *Node {
	clone := newNode(n.schema)
	for _, field := range n.schema.fields {
		field.cloneState(n, clone)
	}
	return clone
}

// Merge copies every explicitly set value from other into this subtree via
// normal set semantics, leaving unset fields untouched. Both nodes must
// follow the same schema.
func (n *Node) Merge(other *Node) error {
	if other == nil || other.schema != n.schema {
		return ErrSchemaMismatch
	}
	for _, field := range n.schema.fields {
		if err := field.mergeState(other, n); err != nil {
			return err
		}
	}
	return nil
}
