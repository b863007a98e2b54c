// Package badgerstore implements the backend contract on top of BadgerDB,
// an embedded key-value store with durable on-disk persistence.
package badgerstore

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/goliatone/go-settings/backend"
)

var (
	sectionPrefix = []byte("section\x00")
	recordPrefix  = []byte("record\x00")
	keySeparator  = []byte("\x00")
)

// Config controls how the underlying BadgerDB instance is opened.
type Config struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string

	// InMemory disables disk persistence. Useful for tests.
	InMemory bool

	// SyncWrites forces a disk sync on every write. When false, durability
	// is deferred until Save.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output. Badger logging is
	// disabled when nil.
	Logger *slog.Logger
}

// DefaultConfig returns the production configuration: persistent, with
// durability deferred to Save.
func DefaultConfig(path string) Config {
	return Config{Path: path}
}

// InMemoryConfig returns a configuration for ephemeral test stores.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Store is a Backend backed by BadgerDB. Records live under
// record\x00<section>\x00<name> keys; section existence is tracked by a
// marker key so empty sections survive restarts.
type Store struct {
	db       *badger.DB
	inMemory bool
}

// Open creates a Store from cfg, creating the database directory when needed.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, &backend.StorageError{Op: "open", Err: fmt.Errorf("path is required for a persistent store")}
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, &backend.StorageError{Op: "open", Err: err}
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&slogAdapter{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &backend.StorageError{Op: "open", Err: err}
	}
	return &Store{db: db, inMemory: cfg.InMemory}, nil
}

// Close releases the underlying database. The store cannot be used afterwards.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) AddSection(section string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := sectionKey(section)
		_, err := txn.Get(key)
		if err == nil {
			return &backend.DuplicateSectionError{Section: section}
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return &backend.StorageError{Op: "add section", Err: err}
		}
		return txn.Set(key, nil)
	})
}

func (s *Store) DeleteSection(section string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := requireSection(txn, section); err != nil {
			return err
		}
		prefix := recordKey(section, "")
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return &backend.StorageError{Op: "delete section", Err: err}
			}
		}
		return txn.Delete(sectionKey(section))
	})
}

func (s *Store) Set(section, name string, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := requireSection(txn, section); err != nil {
			return err
		}
		return txn.Set(recordKey(section, name), data)
	})
}

func (s *Store) Delete(section, name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := requireSection(txn, section); err != nil {
			return err
		}
		err := txn.Delete(recordKey(section, name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func (s *Store) Get(section, name string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		if err := requireSection(txn, section); err != nil {
			return err
		}
		item, err := txn.Get(recordKey(section, name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return &backend.UnknownNameError{Section: section, Name: name}
		}
		if err != nil {
			return &backend.StorageError{Op: "get", Err: err}
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) Names(section string) ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		if err := requireSection(txn, section); err != nil {
			return err
		}
		prefix := recordKey(section, "")
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: false})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			names = append(names, string(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Save syncs the value log to disk. No-op for in-memory stores.
func (s *Store) Save() error {
	if s.inMemory {
		return nil
	}
	if err := s.db.Sync(); err != nil {
		return &backend.StorageError{Op: "save", Err: err}
	}
	return nil
}

func requireSection(txn *badger.Txn, section string) error {
	_, err := txn.Get(sectionKey(section))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return &backend.UnknownSectionError{Section: section}
	}
	if err != nil {
		return &backend.StorageError{Op: "lookup section", Err: err}
	}
	return nil
}

func sectionKey(section string) []byte {
	return append(append([]byte(nil), sectionPrefix...), section...)
}

func recordKey(section, name string) []byte {
	key := append(append([]byte(nil), recordPrefix...), section...)
	key = append(key, keySeparator...)
	return append(key, name...)
}

// slogAdapter bridges slog to badger's Logger interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (l *slogAdapter) Errorf(format string, args ...interface{}) {
	l.logger.Error(trimNewline(format, args...))
}

func (l *slogAdapter) Warningf(format string, args ...interface{}) {
	l.logger.Warn(trimNewline(format, args...))
}

func (l *slogAdapter) Infof(format string, args ...interface{}) {
	l.logger.Info(trimNewline(format, args...))
}

func (l *slogAdapter) Debugf(format string, args ...interface{}) {
	l.logger.Debug(trimNewline(format, args...))
}

func trimNewline(format string, args ...interface{}) string {
	return string(bytes.TrimRight([]byte(fmt.Sprintf(format, args...)), "\n"))
}
