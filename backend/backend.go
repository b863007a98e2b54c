package backend

import "fmt"

// Backend stores opaque configuration records grouped into named sections.
// Implementations are synchronous; callers serialize access to a single
// backend instance.
type Backend interface {
	// AddSection creates a named section, failing with DuplicateSectionError
	// when it already exists.
	AddSection(section string) error
	// DeleteSection removes a section and every record in it, failing with
	// UnknownSectionError when it does not exist.
	DeleteSection(section string) error
	// Set writes or overwrites a record, failing with UnknownSectionError
	// when the section does not exist.
	Set(section, name string, data []byte) error
	// Delete removes a record. A missing name inside an existing section is
	// not an error; a missing section fails with UnknownSectionError.
	Delete(section, name string) error
	// Get reads a record, failing with UnknownNameError or
	// UnknownSectionError.
	Get(section, name string) ([]byte, error)
	// Names lists the record names in a section, failing with
	// UnknownSectionError.
	Names(section string) ([]string, error)
	// Save flushes pending writes to durable storage.
	Save() error
}

// DuplicateSectionError reports an AddSection call for an existing section.
type DuplicateSectionError struct {
	Section string
}

func (e *DuplicateSectionError) Error() string {
	return fmt.Sprintf("backend: section %q already exists", e.Section)
}

// UnknownSectionError reports an operation against a missing section.
type UnknownSectionError struct {
	Section string
}

func (e *UnknownSectionError) Error() string {
	return fmt.Sprintf("backend: unknown section %q", e.Section)
}

// UnknownNameError reports a read for a record that does not exist within an
// existing section.
type UnknownNameError struct {
	Section string
	Name    string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("backend: unknown name %q in section %q", e.Name, e.Section)
}

// StorageError wraps a storage-layer failure with the operation that caused it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("backend: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
