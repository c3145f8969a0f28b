// Package statestore persists the watcher's path→stat snapshot across
// restarts. Two stores are provided: a plain JSON snapshot file and a bbolt
// database (selected by persist-path extension). Both round-trip the full
// table exactly, including removed sentinels.
package statestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Record is one persisted path snapshot. The removed sentinel is represented
// by Removed == true with zero ModTime and Size.
type Record struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mtime"`
	Size    int64     `json:"size"`
	Removed bool      `json:"removed,omitempty"`
}

// Store is a durable snapshot of the watcher state table.
type Store interface {
	// Save replaces the stored snapshot wholesale.
	Save(records []Record) error

	// Load returns the stored snapshot. A store that has never been
	// saved returns an empty slice, not an error.
	Load() ([]Record, error)

	// Close releases the underlying resources.
	Close() error
}

// Open selects a store implementation by path extension: ".db" and ".bolt"
// open a bbolt database, anything else a JSON snapshot file.
func Open(path string) (Store, error) {
	switch filepath.Ext(path) {
	case ".db", ".bolt":
		return OpenBolt(path)
	default:
		return NewJSONFile(path), nil
	}
}

// JSONFile stores the snapshot as a single JSON document, written atomically
// via a temp file rename.
type JSONFile struct {
	path string
}

// NewJSONFile creates a JSON snapshot store at path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Save writes the snapshot, sorted by path for stable output.
func (s *JSONFile) Save(records []Record) error {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot. A missing file is an empty snapshot.
func (s *JSONFile) Load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return records, nil
}

// Close is a no-op for the JSON store.
func (s *JSONFile) Close() error { return nil }
