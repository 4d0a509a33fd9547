package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// JSONStore implements the Store interface using a simple JSON file.
// All values are kept in memory and persisted to disk on each write.
type JSONStore struct {
	path   string
	values map[string]string
	mu     sync.RWMutex
}

// jsonPersistence is the on-disk format for the JSON store.
type jsonPersistence struct {
	Values map[string]string `json:"values"`
}

// NewJSONStore creates a new JSON file-backed store at the given path.
func NewJSONStore(path string) (Store, error) {
	s := &JSONStore{
		path:   path,
		values: make(map[string]string),
	}

	if _, err := os.Stat(path); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("load existing data: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	return s, nil
}

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var persist jsonPersistence
	if err := json.Unmarshal(data, &persist); err != nil {
		return fmt.Errorf("unmarshal json: %w", err)
	}

	if persist.Values != nil {
		s.values = persist.Values
	}
	return nil
}

// save writes the in-memory map to disk. Callers hold the write lock.
func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(jsonPersistence{Values: s.values}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	// Write to temp file first, then rename (atomic on POSIX)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// Get returns the value stored under key.
func (s *JSONStore) Get(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set stores value under key and persists the file.
func (s *JSONStore) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.values[key]
	s.values[key] = value
	if err := s.save(); err != nil {
		if existed {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

// Remove deletes key and persists the file.
func (s *JSONStore) Remove(key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.values[key]
	if !existed {
		return nil
	}
	delete(s.values, key)
	if err := s.save(); err != nil {
		s.values[key] = prev
		return err
	}
	return nil
}

// Keys returns all stored keys in lexical order.
func (s *JSONStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op; every write is already on disk.
func (s *JSONStore) Close() error {
	return nil
}
