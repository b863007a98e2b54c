// Package codec converts settings snapshots to and from the opaque byte form
// handed to a storage backend. Records travel inside an Envelope carrying the
// declaring type's tag so a decoded record can be checked against the schema
// that expects it.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is the serialized shape of a root settings record.
type Envelope struct {
	Type   string         `json:"type"`
	Fields map[string]any `json:"fields"`
}

// Codec round-trips envelopes through an opaque byte representation.
type Codec interface {
	Encode(env Envelope) ([]byte, error)
	Decode(data []byte) (Envelope, error)
}

// Option configures the JSON codec.
type Option func(*jsonCodec)

// WithIndent enables indented output, mainly for file-backed stores where
// records may be inspected by hand.
func WithIndent(indent string) Option {
	return func(c *jsonCodec) {
		c.indent = indent
	}
}

// WithStrictFields rejects unknown keys in the envelope during decoding.
func WithStrictFields() Option {
	return func(c *jsonCodec) {
		c.strict = true
	}
}

// JSON returns the default Codec. Numbers decode as json.Number so that
// integer-typed settings survive the round trip without float conversion.
func JSON(opts ...Option) Codec {
	c := &jsonCodec{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type jsonCodec struct {
	indent string
	strict bool
}

func (c *jsonCodec) Encode(env Envelope) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if c.indent != "" {
		data, err = json.MarshalIndent(env, "", c.indent)
	} else {
		data, err = json.Marshal(env)
	}
	if err != nil {
		return nil, fmt.Errorf("codec: encode %q: %w", env.Type, err)
	}
	return data, nil
}

func (c *jsonCodec) Decode(data []byte) (Envelope, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if c.strict {
		decoder.DisallowUnknownFields()
	}
	var env Envelope
	if err := decoder.Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("codec: decode: %w", err)
	}
	return env, nil
}
