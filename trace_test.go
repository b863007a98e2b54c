package settings

import (
	"errors"
	"reflect"
	"testing"
)

func TestTraceOrigins(t *testing.T) {
	root := NewSchema()
	displayName := NewSetting(root, "display_name", "")
	proxy := NewSetting(root, "outbound_proxy", "", Nillable[string]())
	smtpSchema := NewSchema()
	host := NewSetting(smtpSchema, "host", "localhost")
	smtp := NewGroup(root, "smtp", smtpSchema)
	node := NewNode(root)

	t.Run("default", func(t *testing.T) {
		trace, err := node.Trace("display_name")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if trace.Origin != OriginDefault || trace.Dirty {
			t.Fatalf("unexpected trace: %+v", trace)
		}
	})

	t.Run("explicit", func(t *testing.T) {
		displayName.Set(node, "Alice")
		trace, err := node.Trace("display_name")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if trace.Origin != OriginExplicit || trace.Value != "Alice" || !trace.Dirty {
			t.Fatalf("unexpected trace: %+v", trace)
		}
	})

	t.Run("null", func(t *testing.T) {
		if err := proxy.SetNull(node); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		trace, err := node.Trace("outbound_proxy")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if trace.Origin != OriginNull || trace.Value != nil {
			t.Fatalf("unexpected trace: %+v", trace)
		}
	})

	t.Run("nested path", func(t *testing.T) {
		host.Set(smtp.Of(node), "mail.example.com")
		trace, err := node.Trace("smtp.host")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if trace.Path != "smtp.host" || trace.Value != "mail.example.com" {
			t.Fatalf("unexpected trace: %+v", trace)
		}
		if trace.Default != "localhost" {
			t.Fatalf("expected declared default in trace, got %v", trace.Default)
		}
	})

	t.Run("prior after commit", func(t *testing.T) {
		node.ClearDirty()
		displayName.Set(node, "Bob")
		trace, err := node.Trace("display_name")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if trace.Prior != "Alice" || trace.Value != "Bob" || !trace.Dirty {
			t.Fatalf("unexpected trace: %+v", trace)
		}
	})

	t.Run("unknown paths", func(t *testing.T) {
		for _, path := range []string{"", "missing", "smtp", "smtp.missing", "display_name.extra"} {
			var unknown *UnknownPathError
			if _, err := node.Trace(path); !errors.As(err, &unknown) {
				t.Fatalf("expected UnknownPathError for %q, got %v", path, err)
			}
		}
	})
}

func TestTraceJSONRoundTrip(t *testing.T) {
	trace := Trace{
		Path:   "smtp.host",
		Value:  "mail.example.com",
		Origin: OriginExplicit,
		Dirty:  true,
	}
	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := TraceFromJSON(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Path != trace.Path || decoded.Value != trace.Value || decoded.Origin != trace.Origin || !decoded.Dirty {
		t.Fatalf("unexpected round trip: %+v", decoded)
	}
}

func TestDescribeFlattensSchema(t *testing.T) {
	root := NewSchema()
	NewSetting(root, "display_name", "")
	NewSetting(root, "enabled", true)
	smtpSchema := NewSchema()
	NewSetting(smtpSchema, "host", "localhost")
	NewSetting(smtpSchema, "port", 25)
	NewGroup(root, "smtp", smtpSchema)
	NewSetting(root, "outbound_proxy", "", Nillable[string](), NullDefault[string]())

	got := Describe(root)
	want := []FieldDescriptor{
		{Path: "display_name", Type: "string", Default: ""},
		{Path: "enabled", Type: "bool", Default: true},
		{Path: "smtp.host", Type: "string", Default: "localhost"},
		{Path: "smtp.port", Type: "int", Default: 25},
		{Path: "outbound_proxy", Type: "string", Default: nil, Nillable: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected descriptors:\n got %+v\nwant %+v", got, want)
	}
}

func TestDescribeNilSchema(t *testing.T) {
	if got := Describe(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}
