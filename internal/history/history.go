// Package history keeps a short, newest-first list of finished solver runs
// in the settings store.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twil3akine/gurobilab/internal/store"
)

const (
	// Key is the store key holding the serialised history.
	Key = "gurobi_history"

	// MaxEntries bounds the number of records kept.
	MaxEntries = 20
)

// Record is one finished run.
type Record struct {
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Script    string    `json:"script"`
	Args      string    `json:"args"`
	Log       string    `json:"log"`
	Analysis  string    `json:"analysis"`
}

// Restore projects a record back onto the session's visible text.
func Restore(r Record) (log, analysis string) {
	return r.Log, r.Analysis
}

// Store reads and writes the history list.
type Store struct {
	kv     store.Store
	logger *slog.Logger
	mu     sync.Mutex
}

// New returns a history store backed by kv.
func New(kv store.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, logger: logger}
}

// Load returns the persisted records, newest first. A missing or unreadable
// payload yields an empty list.
func (s *Store) Load() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() []Record {
	raw, err := s.kv.Get(Key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("failed to read history", "error", err)
		}
		return []Record{}
	}

	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		s.logger.Warn("discarding unreadable history", "error", err)
		return []Record{}
	}
	if records == nil {
		return []Record{}
	}
	return records
}

// Append prepends rec, trims the list to MaxEntries and persists it.
// It returns the new list.
func (s *Store) Append(rec Record) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := append([]Record{rec}, s.load()...)
	if len(records) > MaxEntries {
		records = records[:MaxEntries]
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}
	if err := s.kv.Set(Key, string(data)); err != nil {
		return nil, fmt.Errorf("save history: %w", err)
	}

	s.logger.Debug("history appended", "script", rec.Script, "entries", len(records))
	return records, nil
}

// Clear removes the stored history entirely.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(Key); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	s.logger.Info("history cleared")
	return nil
}

// Get returns the record at position i, where 0 is the newest.
func (s *Store) Get(i int) (Record, bool) {
	records := s.Load()
	if i < 0 || i >= len(records) {
		return Record{}, false
	}
	return records[i], true
}

// Find returns the record with the given ID.
func (s *Store) Find(id string) (Record, bool) {
	if id == "" {
		return Record{}, false
	}
	for _, r := range s.Load() {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}
