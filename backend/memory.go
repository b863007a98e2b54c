package backend

import "sort"

// Memory is an in-process Backend used for tests and ephemeral configuration.
// Save is a no-op since there is no durable storage behind it.
type Memory struct {
	sections map[string]map[string][]byte
}

// NewMemory constructs an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{sections: make(map[string]map[string][]byte)}
}

func (m *Memory) AddSection(section string) error {
	if _, ok := m.sections[section]; ok {
		return &DuplicateSectionError{Section: section}
	}
	m.sections[section] = make(map[string][]byte)
	return nil
}

func (m *Memory) DeleteSection(section string) error {
	if _, ok := m.sections[section]; !ok {
		return &UnknownSectionError{Section: section}
	}
	delete(m.sections, section)
	return nil
}

func (m *Memory) Set(section, name string, data []byte) error {
	records, ok := m.sections[section]
	if !ok {
		return &UnknownSectionError{Section: section}
	}
	records[name] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Delete(section, name string) error {
	records, ok := m.sections[section]
	if !ok {
		return &UnknownSectionError{Section: section}
	}
	delete(records, name)
	return nil
}

func (m *Memory) Get(section, name string) ([]byte, error) {
	records, ok := m.sections[section]
	if !ok {
		return nil, &UnknownSectionError{Section: section}
	}
	data, ok := records[name]
	if !ok {
		return nil, &UnknownNameError{Section: section, Name: name}
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Names(section string) ([]string, error) {
	records, ok := m.sections[section]
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

func (m *Memory) Save() error {
	return nil
}
