package settings

import (
	"encoding/json"
	"strings"
)

// Value origins reported by Trace.
const (
	// OriginExplicit marks a value explicitly assigned on this instance.
	OriginExplicit = "explicit"
	// OriginDefault marks a value read from the schema default.
	OriginDefault = "default"
	// OriginNull marks an effective null, explicit or defaulted.
	OriginNull = "null"
)

// Trace captures provenance for one setting on one instance: the effective
// value, where it came from, and the committed value it would revert to.
type Trace struct {
	Path    string `json:"path"`
	Value   any    `json:"value,omitempty"`
	Default any    `json:"default,omitempty"`
	Prior   any    `json:"prior,omitempty"`
	Origin  string `json:"origin"`
	Dirty   bool   `json:"dirty,omitempty"`
}

// ToJSON serialises the trace for logging or transport.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload previously generated via ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// Trace resolves a dotted path within the subtree and reports the
// provenance of the setting it names.
func (n *Node) Trace(path string) (Trace, error) {
	segments := strings.Split(path, ".")
	if path == "" || len(segments) == 0 {
		return Trace{}, &UnknownPathError{Path: path}
	}
	field, ok := n.schema.Field(segments[0])
	if !ok {
		return Trace{}, &UnknownPathError{Path: path}
	}
	return field.resolveTrace(n, path, segments[1:])
}

// Trace resolves a dotted path from the object root.
func (o *Object) Trace(path string) (Trace, error) {
	return o.node.Trace(path)
}
