package store

import (
	"path/filepath"
	"strings"

	"github.com/sverrirab/generic-rest/internal/record"
)

// Persister mirrors the record table to durable storage.
//
// Save always receives the complete table and replaces whatever was stored
// before. Implementations must not keep a reference to the map.
type Persister interface {
	// Load returns the stored table. A missing backing file is an empty table.
	Load() (map[string]record.Record, error)

	// Save replaces the stored table with data.
	Save(data map[string]record.Record) error

	// Close releases resources. It does not write.
	Close() error

	// String names the backing storage for logs.
	String() string
}

// NewPersister picks a Persister for path by extension. An empty path
// returns a persister that stores nothing.
func NewPersister(path string) (Persister, error) {
	if path == "" {
		return Memory{}, nil
	}
	if IsSQLitePath(path) {
		return OpenSQLite(path)
	}
	return NewJSONFile(path), nil
}

// IsSQLitePath reports whether path selects the SQLite persister.
func IsSQLitePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// Memory is the persister used when no file is configured.
type Memory struct{}

// Load implements Persister.
func (Memory) Load() (map[string]record.Record, error) { return nil, nil }

// Save implements Persister.
func (Memory) Save(map[string]record.Record) error { return nil }

// Close implements Persister.
func (Memory) Close() error { return nil }

// String implements Persister.
func (Memory) String() string { return "memory" }
