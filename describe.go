package settings

// FieldDescriptor describes one setting within a schema: its dotted path,
// declared type, default value, and nillability.
type FieldDescriptor struct {
	Path     string `json:"path"`
	Type     string `json:"type"`
	Default  any    `json:"default,omitempty"`
	Nillable bool   `json:"nillable,omitempty"`
}

// Describe flattens a schema into field descriptors in declaration order,
// recursing through group fields with dotted path prefixes.
func Describe(schema *Schema) []FieldDescriptor {
	if schema == nil {
		return []FieldDescriptor{}
	}
	descriptors := make([]FieldDescriptor, 0, len(schema.fields))
	for _, field := range schema.fields {
		descriptors = append(descriptors, field.describe("")...)
	}
	return descriptors
}
