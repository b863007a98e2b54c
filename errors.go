package settings

import (
	"errors"
	"fmt"
)

var (
	// ErrNotNillable reports an attempt to store nil in a setting that was
	// not declared nillable, or to reset a non-nillable setting whose
	// default is null.
	ErrNotNillable = errors.New("settings: setting is not nillable")

	// ErrMissingID reports an object construction without an id when the
	// type declares no default id.
	ErrMissingID = errors.New("settings: id is required")

	// ErrIllegalDelete reports a delete of the instance holding a type's
	// default id.
	ErrIllegalDelete = errors.New("settings: cannot delete instance with default id")

	// ErrNotStarted reports manager use before Start.
	ErrNotStarted = errors.New("settings: manager not started")

	// ErrAlreadyStarted reports a second Start call on a manager.
	ErrAlreadyStarted = errors.New("settings: manager already started")

	// ErrNoManager reports an object operation that requires a manager.
	ErrNoManager = errors.New("settings: manager is required")

	// ErrSchemaMismatch reports a merge between nodes of different schemas.
	ErrSchemaMismatch = errors.New("settings: schema mismatch")
)

// TypeMismatchError reports a value that could not be stored in a field, with
// the declared and offered types.
type TypeMismatchError struct {
	Field string
	Want  string
	Got   string
	Err   error
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("settings: field %q wants %s, got %s", e.Field, e.Want, e.Got)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TypeMismatchError) Unwrap() error {
	return e.Err
}

// UnknownPathError reports a dotted path that does not resolve within a
// schema.
type UnknownPathError struct {
	Path string
}

func (e *UnknownPathError) Error() string {
	return fmt.Sprintf("settings: unknown path %q", e.Path)
}

// RuleViolationError reports a validation rule that failed or evaluated to a
// non-true result during Save.
type RuleViolationError struct {
	Object string
	Rule   string
	Expr   string
	Err    error
}

func (e *RuleViolationError) Error() string {
	msg := fmt.Sprintf("settings: rule %q failed for %s (expr=%q)", e.Rule, e.Object, e.Expr)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RuleViolationError) Unwrap() error {
	return e.Err
}
