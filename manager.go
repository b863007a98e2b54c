package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goliatone/go-settings/backend"
	"github.com/goliatone/go-settings/codec"
	"github.com/goliatone/go-settings/pkg/notify"
)

// Manager mediates between in-memory settings objects and a storage backend.
// It owns the identity map of live root objects, the codec turning trees
// into opaque records, and the emitter announcing changes. One manager is
// created per process (or per test) and passed to whoever constructs
// objects; it replaces ambient global state. Access is caller-serialized per
// the package concurrency contract.
type Manager struct {
	backend  backend.Backend
	codec    codec.Codec
	emitter  *notify.Emitter
	registry map[registryKey]*Object
	storeDir string
}

type registryKey struct {
	typ *ObjectType
	id  string
}

// ManagerOption configures a Manager at construction time.
type ManagerOption func(*Manager)

// WithCodec replaces the default JSON codec.
func WithCodec(c codec.Codec) ManagerOption {
	return func(m *Manager) {
		if c != nil {
			m.codec = c
		}
	}
}

// WithNotifyHooks attaches hooks that observe save, save-failure and delete
// events.
func WithNotifyHooks(hooks notify.Hooks) ManagerOption {
	return func(m *Manager) {
		m.emitter = notify.NewEmitter(hooks, notify.Config{Enabled: true})
	}
}

// WithEmitter attaches a pre-built emitter.
func WithEmitter(e *notify.Emitter) ManagerOption {
	return func(m *Manager) {
		m.emitter = e
	}
}

// WithDefaultStoreDir overrides the directory used when Start constructs the
// default file backend.
func WithDefaultStoreDir(dir string) ManagerOption {
	return func(m *Manager) {
		m.storeDir = dir
	}
}

// NewManager constructs an unstarted manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		codec:    codec.JSON(),
		registry: make(map[registryKey]*Object),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Start attaches the backend and transitions the manager to its started
// state. A nil backend selects the default file-based store. Fails with
// ErrAlreadyStarted on a second call; every other operation fails with
// ErrNotStarted until Start succeeds.
func (m *Manager) Start(b backend.Backend) error {
	if m.backend != nil {
		return ErrAlreadyStarted
	}
	if b == nil {
		dir := m.storeDir
		if dir == "" {
			base, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("settings: resolve default store directory: %w", err)
			}
			dir = filepath.Join(base, "go-settings")
		}
		store, err := backend.NewFileStore(dir)
		if err != nil {
			return err
		}
		b = store
	}
	m.backend = b
	return nil
}

// Started reports whether Start has been called.
func (m *Manager) Started() bool {
	return m.backend != nil
}

// Backend returns the active backend, or nil before Start.
func (m *Manager) Backend() backend.Backend {
	return m.backend
}

// Set serializes obj and writes it under (section, name). When the backend
// reports an unknown section, the section is created and the write retried
// once.
func (m *Manager) Set(section, name string, obj *Object) error {
	if m.backend == nil {
		return ErrNotStarted
	}
	data, err := m.codec.Encode(codec.Envelope{
		Type:   obj.typ.name,
		Fields: obj.node.Snapshot(),
	})
	if err != nil {
		return err
	}
	err = m.backend.Set(section, name, data)
	var unknownSection *backend.UnknownSectionError
	if errors.As(err, &unknownSection) {
		if err := m.backend.AddSection(section); err != nil {
			return err
		}
		return m.backend.Set(section, name, data)
	}
	return err
}

// Get reads and decodes the record under (section, name). Unknown-section
// and unknown-name errors propagate unchanged.
func (m *Manager) Get(section, name string) (codec.Envelope, error) {
	if m.backend == nil {
		return codec.Envelope{}, ErrNotStarted
	}
	data, err := m.backend.Get(section, name)
	if err != nil {
		return codec.Envelope{}, err
	}
	return m.codec.Decode(data)
}

// Delete removes the record under (section, name), propagating backend
// errors unchanged.
func (m *Manager) Delete(section, name string) error {
	if m.backend == nil {
		return ErrNotStarted
	}
	return m.backend.Delete(section, name)
}

// Names lists the record names in section.
func (m *Manager) Names(section string) ([]string, error) {
	if m.backend == nil {
		return nil, ErrNotStarted
	}
	return m.backend.Names(section)
}

// Flush asks the backend to commit pending writes to durable storage.
func (m *Manager) Flush() error {
	if m.backend == nil {
		return ErrNotStarted
	}
	return m.backend.Save()
}

func (m *Manager) emit(ctx context.Context, event notify.Event) {
	if m == nil || !m.emitter.Enabled() {
		return
	}
	// Hook failures must not disturb the save/delete path.
	_ = m.emitter.Emit(ctx, event)
}

func (m *Manager) lookup(t *ObjectType, id string) *Object {
	return m.registry[registryKey{typ: t, id: id}]
}

func (m *Manager) register(t *ObjectType, id string, obj *Object) {
	m.registry[registryKey{typ: t, id: id}] = obj
}

func (m *Manager) unregister(t *ObjectType, id string) {
	delete(m.registry, registryKey{typ: t, id: id})
}
