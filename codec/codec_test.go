package codec

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONRoundTrip(t *testing.T) {
	c := JSON()
	env := Envelope{
		Type: "Account",
		Fields: map[string]any{
			"display_name": "Alice",
			"port":         5060,
			"smtp":         map[string]any{"host": "mail.example.com"},
		},
	}

	data, err := c.Encode(env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, err := c.Decode(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Type != "Account" {
		t.Fatalf("expected type tag, got %q", decoded.Type)
	}
	if decoded.Fields["display_name"] != "Alice" {
		t.Fatalf("unexpected field: %v", decoded.Fields["display_name"])
	}
	// Numbers decode as json.Number, not float64.
	port, ok := decoded.Fields["port"].(json.Number)
	if !ok {
		t.Fatalf("expected json.Number, got %T", decoded.Fields["port"])
	}
	if n, err := port.Int64(); err != nil || n != 5060 {
		t.Fatalf("expected 5060, got %v (%v)", n, err)
	}
	smtp, ok := decoded.Fields["smtp"].(map[string]any)
	if !ok || smtp["host"] != "mail.example.com" {
		t.Fatalf("unexpected nested fields: %v", decoded.Fields["smtp"])
	}
}

func TestJSONWithIndent(t *testing.T) {
	c := JSON(WithIndent("  "))
	data, err := c.Encode(Envelope{Type: "Account", Fields: map[string]any{"enabled": true}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), "\n") {
		t.Fatalf("expected indented output, got %s", data)
	}
	if _, err := c.Decode(data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJSONStrictFields(t *testing.T) {
	strict := JSON(WithStrictFields())
	payload := []byte(`{"type":"Account","fields":{},"extra":true}`)
	if _, err := strict.Decode(payload); err == nil {
		t.Fatal("expected strict decoding to reject unknown keys")
	}
	if _, err := JSON().Decode(payload); err != nil {
		t.Fatalf("expected lenient decoding to succeed, got %v", err)
	}
}

func TestJSONDecodeMalformed(t *testing.T) {
	if _, err := JSON().Decode([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
