package deepclone

import (
	"reflect"
	"testing"
)

func TestCloneScalars(t *testing.T) {
	if got := Clone(42); got != 42 {
		t.Fatalf("expected 42, got %v", got)
	}
	if got := Clone("alice"); got != "alice" {
		t.Fatalf("expected alice, got %v", got)
	}
	if got := Clone(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestCloneMapIsolation(t *testing.T) {
	src := map[string]any{
		"smtp": map[string]any{"host": "localhost", "port": 25},
		"tags": []string{"a", "b"},
	}
	cloned, ok := Clone(src).(map[string]any)
	if !ok {
		t.Fatalf("expected map clone, got %T", Clone(src))
	}
	if !reflect.DeepEqual(cloned, src) {
		t.Fatalf("expected equal clone, got %v", cloned)
	}

	cloned["smtp"].(map[string]any)["host"] = "mutated"
	cloned["tags"].([]string)[0] = "mutated"
	if src["smtp"].(map[string]any)["host"] != "localhost" {
		t.Fatal("expected nested map isolation")
	}
	if src["tags"].([]string)[0] != "a" {
		t.Fatal("expected slice isolation")
	}
}

func TestClonePointerAndStruct(t *testing.T) {
	type inner struct {
		Values []int
	}
	type outer struct {
		Name  string
		Inner *inner
	}

	src := outer{Name: "x", Inner: &inner{Values: []int{1, 2}}}
	cloned, ok := Clone(src).(outer)
	if !ok {
		t.Fatalf("expected struct clone, got %T", Clone(src))
	}
	if cloned.Inner == src.Inner {
		t.Fatal("expected pointer target to be duplicated")
	}
	cloned.Inner.Values[0] = 99
	if src.Inner.Values[0] != 1 {
		t.Fatal("expected nested slice isolation")
	}
}

func TestCloneNilContainers(t *testing.T) {
	var m map[string]int
	if typed, ok := Clone(m).(map[string]int); !ok || typed != nil {
		t.Fatalf("expected typed nil map, got %#v", Clone(m))
	}

	var s []int
	if typed, ok := Clone(s).([]int); !ok || typed != nil {
		t.Fatalf("expected typed nil slice, got %#v", Clone(s))
	}
}
