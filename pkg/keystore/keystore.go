// Package keystore provides durable client-side key/value storage backed by a
// single JSON file. It holds the persisted session pair (token and user record)
// between runs of the client.
//
// Writes replace the whole file atomically (temp file + rename), so readers
// never observe a partially written store. Concurrent writers are not expected;
// last writer wins.
package keystore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"
)

// Store is a file-backed string key/value store.
type Store struct {
	path string

	mu     sync.Mutex
	values map[string]string
	loaded bool
}

// Open returns a Store backed by the file at path. The file does not need to
// exist yet; it is created on the first Set.
func Open(path string) *Store {
	return &Store{path: path}
}

// Get returns the value stored under key. The second return value reports
// whether the key was present.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return "", false, err
	}
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores value under key and flushes the store to disk.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	s.values[key] = value
	return s.flush()
}

// Delete removes the given keys and flushes the store to disk. Missing keys
// are ignored.
func (s *Store) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	for _, k := range keys {
		delete(s.values, k)
	}
	return s.flush()
}

// load reads the backing file into memory once. A missing file reads as an
// empty store; a corrupt file is discarded and replaced on the next write.
// Must be called with s.mu held.
func (s *Store) load() error {
	if s.loaded {
		return nil
	}

	s.values = make(map[string]string)
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "read keystore")
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		// Corrupt store file. Treat as empty rather than failing startup.
		return nil
	}
	s.values = values
	return nil
}

// flush writes the in-memory values to disk atomically.
// Must be called with s.mu held.
func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal keystore")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "create keystore dir")
	}

	tmp, err := os.CreateTemp(dir, ".keystore-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close temp file")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "replace keystore")
	}
	return nil
}
