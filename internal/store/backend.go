package store

import (
	"fmt"
	"path/filepath"
)

// Backend abstracts durable storage for the preference map.
// The file backend writes a typed JSON document, the SQLite backend keeps
// one row per key. The Store serializes all calls to a Backend.
type Backend interface {
	// Load returns every persisted key with its typed value.
	Load() (map[string]any, error)
	// Persist makes one committed edit durable.
	Persist(m Mutation) error
	Close() error
}

// Mutation describes one committed edit: what changed and the full map as
// it stands afterwards. Backends that rewrite everything use Snapshot,
// row-oriented backends use Cleared, Updated and Removed.
type Mutation struct {
	Cleared  bool
	Updated  map[string]any
	Removed  []string
	Snapshot map[string]any
}

// Backend kinds accepted by OpenDefault.
const (
	BackendAuto   = "auto"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// OpenDefault opens the default preference store for the application name.
// Files live in dataDir as "<name>_preferences.json" or
// "<name>_preferences.db" depending on kind.
func OpenDefault(name, dataDir, kind string, opts ...Option) (*Store, error) {
	if name == "" {
		return nil, fmt.Errorf("application name is required")
	}

	var (
		b   Backend
		err error
	)
	switch kind {
	case "", BackendAuto, BackendFile:
		b, err = NewFileBackend(filepath.Join(dataDir, name+"_preferences.json"))
	case BackendSQLite:
		b, err = NewSQLiteBackend(filepath.Join(dataDir, name+"_preferences.db"))
	case BackendMemory:
		b = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown backend %q", kind)
	}
	if err != nil {
		return nil, err
	}

	s, err := Open(b, opts...)
	if err != nil {
		b.Close()
		return nil, err
	}
	return s, nil
}
