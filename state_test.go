package settings

import (
	"errors"
	"reflect"
	"testing"
)

// accountFields bundles a small account-shaped schema used across the state
// tests: two root settings plus an smtp group with two nested settings.
type accountFields struct {
	schema      *Schema
	displayName *Setting[string]
	enabled     *Setting[bool]
	smtp        *Group
	smtpHost    *Setting[string]
	smtpPort    *Setting[int]
}

func newAccountFields() accountFields {
	root := NewSchema()
	smtpSchema := NewSchema()
	f := accountFields{
		schema:      root,
		displayName: NewSetting(root, "display_name", ""),
		enabled:     NewSetting(root, "enabled", true),
		smtpHost:    NewSetting(smtpSchema, "host", "localhost"),
		smtpPort:    NewSetting(smtpSchema, "port", 25),
	}
	f.smtp = NewGroup(root, "smtp", smtpSchema)
	return f
}

func TestSchemaRegisterRejectsBadNames(t *testing.T) {
	cases := []struct {
		name     string
		register func(*Schema)
	}{
		{name: "empty", register: func(s *Schema) { NewSetting(s, "", 0) }},
		{name: "dotted", register: func(s *Schema) { NewSetting(s, "a.b", 0) }},
		{name: "duplicate", register: func(s *Schema) {
			NewSetting(s, "port", 0)
			NewSetting(s, "port", 0)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected registration to panic")
				}
			}()
			tc.register(NewSchema())
		})
	}
}

func TestNodeModifiedUsesDottedPaths(t *testing.T) {
	f := newAccountFields()
	node := NewNode(f.schema)

	f.displayName.Set(node, "Alice")
	f.smtpHost.Set(f.smtp.Of(node), "mail.example.com")

	modified := node.Modified()
	if len(modified) != 2 {
		t.Fatalf("expected two modified entries, got %d: %v", len(modified), modified)
	}
	if change, ok := modified["display_name"]; !ok || change.New != "Alice" || change.Old != "" {
		t.Fatalf("unexpected display_name change: %+v", change)
	}
	if change, ok := modified["smtp.host"]; !ok || change.New != "mail.example.com" || change.Old != "localhost" {
		t.Fatalf("unexpected smtp.host change: %+v", change)
	}
}

func TestNodeClearDirtyRecurses(t *testing.T) {
	f := newAccountFields()
	node := NewNode(f.schema)

	f.smtpPort.Set(f.smtp.Of(node), 587)
	if !node.IsDirty() {
		t.Fatal("expected nested assignment to dirty the tree")
	}
	node.ClearDirty()
	if node.IsDirty() {
		t.Fatal("expected ClearDirty to reach nested settings")
	}
	if got := f.smtpPort.Prior(f.smtp.Of(node)); got != 587 {
		t.Fatalf("expected nested commit, got prior %d", got)
	}
}

func TestNodeSnapshotPresenceMarker(t *testing.T) {
	schema := NewSchema()
	NewSetting(schema, "host", "localhost")
	node := NewNode(schema)

	state := node.Snapshot()
	if !reflect.DeepEqual(state, map[string]any{presenceKey: true}) {
		t.Fatalf("expected presence marker only, got %v", state)
	}
}

func TestNodeSnapshotSkipsDefaults(t *testing.T) {
	f := newAccountFields()
	node := NewNode(f.schema)
	f.displayName.Set(node, "Alice")

	state := node.Snapshot()
	if _, ok := state["enabled"]; ok {
		t.Fatal("expected defaulted setting to be absent from snapshot")
	}
	if state["display_name"] != "Alice" {
		t.Fatalf("expected explicit value in snapshot, got %v", state["display_name"])
	}
	smtp, ok := state["smtp"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested group snapshot, got %T", state["smtp"])
	}
	if !reflect.DeepEqual(smtp, map[string]any{presenceKey: true}) {
		t.Fatalf("expected empty group to carry the presence marker, got %v", smtp)
	}
}

func TestNodeSnapshotRestoreRoundTrip(t *testing.T) {
	root := NewSchema()
	displayName := NewSetting(root, "display_name", "")
	proxy := NewSetting(root, "outbound_proxy", "", Nillable[string]())
	smtpSchema := NewSchema()
	host := NewSetting(smtpSchema, "host", "localhost")
	smtp := NewGroup(root, "smtp", smtpSchema)

	src := NewNode(root)
	displayName.Set(src, "Alice")
	if err := proxy.SetNull(src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	host.Set(smtp.Of(src), "mail.example.com")

	dst := NewNode(root)
	if err := dst.Restore(src.Snapshot()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := displayName.Get(dst); got != "Alice" {
		t.Fatalf("expected restored value, got %q", got)
	}
	if !proxy.IsNull(dst) {
		t.Fatal("expected restored null")
	}
	if got := host.Get(smtp.Of(dst)); got != "mail.example.com" {
		t.Fatalf("expected restored nested value, got %q", got)
	}
	if dst.IsDirty() {
		t.Fatal("expected restored tree to read as clean")
	}
}

func TestNodeRestoreSkipsUnknownKeys(t *testing.T) {
	f := newAccountFields()
	node := NewNode(f.schema)

	err := node.Restore(map[string]any{
		"display_name": "Alice",
		"legacy_field": "ignored",
		presenceKey:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.displayName.Get(node); got != "Alice" {
		t.Fatalf("expected known key restored, got %q", got)
	}
}

func TestNodeEffectiveIncludesDefaults(t *testing.T) {
	f := newAccountFields()
	node := NewNode(f.schema)
	f.displayName.Set(node, "Alice")

	effective := node.Effective()
	want := map[string]any{
		"display_name": "Alice",
		"enabled":      true,
		"smtp": map[string]any{
			"host": "localhost",
			"port": 25,
		},
	}
	if !reflect.DeepEqual(effective, want) {
		t.Fatalf("unexpected effective tree:\n got %v\nwant %v", effective, want)
	}
}

func TestNodeCloneIsIndependent(t *testing.T) {
	f := newAccountFields()
	src := NewNode(f.schema)
	f.displayName.Set(src, "Alice")
	f.smtpHost.Set(f.smtp.Of(src), "mail.example.com")
	src.ClearDirty()
	f.enabled.Set(src, false)

	clone := src.Clone()
	if got := f.displayName.Get(clone); got != "Alice" {
		t.Fatalf("expected cloned value, got %q", got)
	}
	if got := f.smtpHost.Get(f.smtp.Of(clone)); got != "mail.example.com" {
		t.Fatalf("expected cloned nested value, got %q", got)
	}
	if !f.enabled.IsDirty(clone) {
		t.Fatal("expected dirty flags to carry over to the clone")
	}

	f.displayName.Set(src, "Bob")
	f.smtpHost.Set(f.smtp.Of(src), "other.example.com")
	if got := f.displayName.Get(clone); got != "Alice" {
		t.Fatalf("expected clone isolated from source edits, got %q", got)
	}
	if got := f.smtpHost.Get(f.smtp.Of(clone)); got != "mail.example.com" {
		t.Fatalf("expected nested clone isolated from source edits, got %q", got)
	}
}

func TestNodeMergeCopiesExplicitValuesOnly(t *testing.T) {
	f := newAccountFields()
	src := NewNode(f.schema)
	dst := NewNode(f.schema)

	f.displayName.Set(src, "Alice")
	f.smtpPort.Set(f.smtp.Of(src), 587)
	f.enabled.Set(dst, false)

	if err := dst.Merge(src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.displayName.Get(dst); got != "Alice" {
		t.Fatalf("expected merged value, got %q", got)
	}
	if got := f.smtpPort.Get(f.smtp.Of(dst)); got != 587 {
		t.Fatalf("expected merged nested value, got %d", got)
	}
	if got := f.enabled.Get(dst); got {
		t.Fatal("expected merge to leave unset source fields untouched")
	}
	if f.smtpHost.IsSet(f.smtp.Of(dst)) {
		t.Fatal("expected unset nested source field to stay unset")
	}
}

func TestNodeMergeRejectsSchemaMismatch(t *testing.T) {
	f := newAccountFields()
	other := NewSchema()
	NewSetting(other, "display_name", "")

	node := NewNode(f.schema)
	if err := node.Merge(NewNode(other)); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if err := node.Merge(nil); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch for nil, got %v", err)
	}
}

func TestNodeReleaseTearsDownSubtree(t *testing.T) {
	f := newAccountFields()
	node := NewNode(f.schema)
	child := f.smtp.Of(node)

	f.displayName.Set(node, "Alice")
	f.smtpHost.Set(child, "mail.example.com")
	node.Release()

	if f.displayName.IsSet(node) {
		t.Fatal("expected release to drop root state")
	}
	if f.smtpHost.IsSet(child) {
		t.Fatal("expected release to drop nested state")
	}
	if f.smtp.Of(node) == child {
		t.Fatal("expected release to drop the cached group child")
	}
}

func TestGroupAssignReplacesChild(t *testing.T) {
	f := newAccountFields()
	node := NewNode(f.schema)

	replacement := NewNode(f.smtp.Schema())
	f.smtpHost.Set(replacement, "mail.example.com")
	if err := f.smtp.Assign(node, replacement); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.smtpHost.Get(f.smtp.Of(node)); got != "mail.example.com" {
		t.Fatalf("expected assigned child, got %q", got)
	}

	foreign := NewNode(NewSchema())
	var mismatch *TypeMismatchError
	if err := f.smtp.Assign(node, foreign); !errors.As(err, &mismatch) {
		t.Fatalf("expected TypeMismatchError for foreign schema, got %v", err)
	}
}
