package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"testing"
)

func TestSettingDefaults(t *testing.T) {
	schema := NewSchema()
	port := NewSetting(schema, "port", 8080)
	node := NewNode(schema)

	if got := port.Get(node); got != 8080 {
		t.Fatalf("expected default 8080, got %d", got)
	}
	if port.IsSet(node) {
		t.Fatal("expected no explicit value on a fresh node")
	}
	if port.IsDirty(node) {
		t.Fatal("expected a fresh node to be clean")
	}
	if port.IsNull(node) {
		t.Fatal("expected a value default to not read as null")
	}
	if got := port.Default(); got != 8080 {
		t.Fatalf("expected declared default 8080, got %d", got)
	}
}

func TestSettingSetAlwaysMarksDirty(t *testing.T) {
	schema := NewSchema()
	host := NewSetting(schema, "host", "localhost")
	node := NewNode(schema)

	host.Set(node, "localhost")
	if !host.IsDirty(node) {
		t.Fatal("expected assignment of the default value to still mark dirty")
	}
	host.ClearDirty(node)
	host.Set(node, "localhost")
	if !host.IsDirty(node) {
		t.Fatal("expected assignment of the unchanged value to still mark dirty")
	}
}

func TestSettingNullHandling(t *testing.T) {
	schema := NewSchema()
	outbound := NewSetting(schema, "outbound_proxy", "", Nillable[string]())
	host := NewSetting(schema, "host", "localhost")
	node := NewNode(schema)

	if err := outbound.SetNull(node); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outbound.IsNull(node) {
		t.Fatal("expected explicit null to read as null")
	}
	if !outbound.IsSet(node) {
		t.Fatal("expected explicit null to count as set")
	}
	if got := outbound.Get(node); got != "" {
		t.Fatalf("expected null to read as zero value, got %q", got)
	}

	if err := host.SetNull(node); !errors.Is(err, ErrNotNillable) {
		t.Fatalf("expected ErrNotNillable, got %v", err)
	}
	if host.IsSet(node) || host.IsDirty(node) {
		t.Fatal("expected failed SetNull to leave state unchanged")
	}
}

func TestSettingNullDefault(t *testing.T) {
	schema := NewSchema()
	audio := NewSetting(schema, "audio_codec", "", NullDefault[string]())
	video := NewSetting(schema, "video_codec", "", NullDefault[string](), Nillable[string]())
	node := NewNode(schema)

	if !audio.IsNull(node) {
		t.Fatal("expected null default to read as null")
	}
	audio.Set(node, "opus")
	if err := audio.Reset(node); !errors.Is(err, ErrNotNillable) {
		t.Fatalf("expected Reset to fail for non-nillable null default, got %v", err)
	}
	if got := audio.Get(node); got != "opus" {
		t.Fatalf("expected failed Reset to leave value, got %q", got)
	}

	video.Set(node, "vp8")
	if err := video.Reset(node); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !video.IsNull(node) {
		t.Fatal("expected reset nillable setting to fall back to null default")
	}
}

func TestSettingResetRevertsToDefault(t *testing.T) {
	schema := NewSchema()
	port := NewSetting(schema, "port", 5060)
	node := NewNode(schema)

	port.Set(node, 5080)
	port.ClearDirty(node)
	if err := port.Reset(node); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := port.Get(node); got != 5060 {
		t.Fatalf("expected default after reset, got %d", got)
	}
	if port.IsSet(node) {
		t.Fatal("expected reset to drop the explicit value")
	}
	if !port.IsDirty(node) {
		t.Fatal("expected reset to mark the setting dirty")
	}
}

func TestSettingPriorAndUndo(t *testing.T) {
	schema := NewSchema()
	host := NewSetting(schema, "host", "localhost")
	node := NewNode(schema)

	host.Set(node, "a.example.com")
	host.ClearDirty(node)
	if got := host.Prior(node); got != "a.example.com" {
		t.Fatalf("expected committed prior, got %q", got)
	}

	host.Set(node, "b.example.com")
	host.Undo(node)
	if got := host.Get(node); got != "a.example.com" {
		t.Fatalf("expected undo to revert to committed value, got %q", got)
	}
	if host.IsDirty(node) {
		t.Fatal("expected undo to clear the dirty flag")
	}
}

func TestSettingUndoWithoutCommitRevertsToUnset(t *testing.T) {
	schema := NewSchema()
	host := NewSetting(schema, "host", "localhost")
	node := NewNode(schema)

	host.Set(node, "b.example.com")
	host.Undo(node)
	if host.IsSet(node) {
		t.Fatal("expected undo without a prior commit to drop the value")
	}
	if got := host.Get(node); got != "localhost" {
		t.Fatalf("expected default after undo, got %q", got)
	}
}

func TestSettingClearDirtyCommitsAbsence(t *testing.T) {
	schema := NewSchema()
	host := NewSetting(schema, "host", "localhost")
	node := NewNode(schema)

	host.Set(node, "a.example.com")
	host.ClearDirty(node)
	if err := host.Reset(node); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	host.ClearDirty(node)

	host.Set(node, "b.example.com")
	host.Undo(node)
	if host.IsSet(node) {
		t.Fatal("expected undo to revert to the committed absence")
	}
	if got := host.Prior(node); got != "localhost" {
		t.Fatalf("expected prior to fall back to default, got %q", got)
	}
}

type transportConfig struct {
	Protocol string `json:"protocol"`
	Port     int    `json:"port"`
}

func TestSettingSetAnyCoercion(t *testing.T) {
	schema := NewSchema()
	port := NewSetting(schema, "port", 5060)
	timeout := NewSetting(schema, "timeout", 30.0)
	transport := NewSetting(schema, "transport", transportConfig{Protocol: "udp", Port: 5060})
	node := NewNode(schema)

	t.Run("json number", func(t *testing.T) {
		if err := port.SetAny(node, json.Number("5080")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := port.Get(node); got != 5080 {
			t.Fatalf("expected 5080, got %d", got)
		}
	})

	t.Run("numeric conversion", func(t *testing.T) {
		if err := timeout.SetAny(node, 45); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := timeout.Get(node); got != 45.0 {
			t.Fatalf("expected 45.0, got %v", got)
		}
	})

	t.Run("structured value", func(t *testing.T) {
		state := map[string]any{"protocol": "tls", "port": 5061}
		if err := transport.SetAny(node, state); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := transport.Get(node); got.Protocol != "tls" || got.Port != 5061 {
			t.Fatalf("unexpected value: %+v", got)
		}
	})

	t.Run("reset marker", func(t *testing.T) {
		port.Set(node, 9999)
		if err := port.SetAny(node, ResetMarker); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := port.Get(node); got != 5060 {
			t.Fatalf("expected default after reset marker, got %d", got)
		}
	})

	t.Run("nil on non-nillable", func(t *testing.T) {
		if err := port.SetAny(node, nil); !errors.Is(err, ErrNotNillable) {
			t.Fatalf("expected ErrNotNillable, got %v", err)
		}
	})

	t.Run("type mismatch", func(t *testing.T) {
		err := port.SetAny(node, "not-a-port")
		var mismatch *TypeMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("expected TypeMismatchError, got %v", err)
		}
		if mismatch.Field != "port" {
			t.Fatalf("expected field name in error, got %+v", mismatch)
		}
	})
}

func TestSettingWithConverter(t *testing.T) {
	schema := NewSchema()
	port := NewSetting(schema, "port", 5060, WithConverter(func(value any) (int, error) {
		s, ok := value.(string)
		if !ok {
			return 0, fmt.Errorf("expected string, got %T", value)
		}
		return strconv.Atoi(s)
	}))
	node := NewNode(schema)

	if err := port.SetAny(node, "5080"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := port.Get(node); got != 5080 {
		t.Fatalf("expected 5080, got %d", got)
	}

	err := port.SetAny(node, "nope")
	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected TypeMismatchError from converter failure, got %v", err)
	}
}

func TestSettingForget(t *testing.T) {
	schema := NewSchema()
	host := NewSetting(schema, "host", "localhost")
	node := NewNode(schema)

	host.Set(node, "a.example.com")
	host.ClearDirty(node)
	host.Set(node, "b.example.com")
	host.Forget(node)

	if host.IsSet(node) || host.IsDirty(node) {
		t.Fatal("expected forget to drop all per-owner state")
	}
	if got := host.Prior(node); got != "localhost" {
		t.Fatalf("expected prior to fall back to default, got %q", got)
	}
	// Idempotent.
	host.Forget(node)
}
