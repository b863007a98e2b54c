package settings

// ProgramCache stores compiled expression programs keyed by expression
// strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithProgramCache registers a program cache for the type's rule engine.
func WithProgramCache(cache ProgramCache) ObjectTypeOption {
	return func(t *ObjectType) {
		t.rules.cache = cache
	}
}
