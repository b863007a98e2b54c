package backend

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileExt = ".json"

// FileStore is a file-based Backend keeping one JSON document per section
// under a root directory. Mutations are buffered in memory and written to
// disk on Save; record payloads are stored base64-encoded inside the section
// document.
type FileStore struct {
	dir      string
	sections map[string]map[string][]byte
	dirty    map[string]bool
	removed  map[string]bool
}

// NewFileStore opens (or creates) a file-backed store rooted at dir and loads
// every existing section document.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("directory is required")}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	store := &FileStore{
		dir:      dir,
		sections: make(map[string]map[string][]byte),
		dirty:    make(map[string]bool),
		removed:  make(map[string]bool),
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

// Dir returns the root directory backing the store.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) AddSection(section string) error {
	if _, ok := s.sections[section]; ok {
		return &DuplicateSectionError{Section: section}
	}
	s.sections[section] = make(map[string][]byte)
	s.dirty[section] = true
	delete(s.removed, section)
	return nil
}

func (s *FileStore) DeleteSection(section string) error {
	if _, ok := s.sections[section]; !ok {
		return &UnknownSectionError{Section: section}
	}
	delete(s.sections, section)
	delete(s.dirty, section)
	s.removed[section] = true
	return nil
}

func (s *FileStore) Set(section, name string, data []byte) error {
	records, ok := s.sections[section]
	if !ok {
		return &UnknownSectionError{Section: section}
	}
	records[name] = append([]byte(nil), data...)
	s.dirty[section] = true
	return nil
}

func (s *FileStore) Delete(section, name string) error {
	records, ok := s.sections[section]
	if !ok {
		return &UnknownSectionError{Section: section}
	}
	if _, ok := records[name]; ok {
		delete(records, name)
		s.dirty[section] = true
	}
	return nil
}

func (s *FileStore) Get(section, name string) ([]byte, error) {
	records, ok := s.sections[section]
	if !ok {
		return nil, &UnknownSectionError{Section: section}
	}
	data, ok := records[name]
	if !ok {
		return nil, &UnknownNameError{Section: section, Name: name}
	}
	return append([]byte(nil), data...), nil
}

func (s *FileStore) Names(section string) ([]string, error) {
	records, ok := s.sections[section]
	if !ok {
		return nil, &UnknownSectionError{Section: section}
	}
	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Save writes every modified section document atomically and removes the
// documents of deleted sections.
func (s *FileStore) Save() error {
	for section := range s.removed {
		if err := os.Remove(s.sectionPath(section)); err != nil && !os.IsNotExist(err) {
			return &StorageError{Op: "save", Err: err}
		}
		delete(s.removed, section)
	}
	for section := range s.dirty {
		if err := s.writeSection(section); err != nil {
			return err
		}
		delete(s.dirty, section)
	}
	return nil
}

func (s *FileStore) writeSection(section string) error {
	records, ok := s.sections[section]
	if !ok {
		return nil
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	path := s.sectionPath(section)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	return nil
}

func (s *FileStore) load() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return &StorageError{Op: "load", Err: err}
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		section, err := url.PathUnescape(strings.TrimSuffix(entry.Name(), fileExt))
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return &StorageError{Op: "load", Err: err}
		}
		records := make(map[string][]byte)
		if err := json.Unmarshal(data, &records); err != nil {
			return &StorageError{Op: "load", Err: fmt.Errorf("section %q: %w", section, err)}
		}
		s.sections[section] = records
	}
	return nil
}

func (s *FileStore) sectionPath(section string) string {
	return filepath.Join(s.dir, url.PathEscape(section)+fileExt)
}
