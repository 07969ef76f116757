// Package memory stores watcher state in-memory for development and tests.
package memory

import (
	"context"
	"sync"
)

// StateStore keeps key-value state in a map guarded by a mutex.
type StateStore struct {
	mu     sync.RWMutex
	data   map[string]string
	writes int
}

// NewStateStore creates a new in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{data: make(map[string]string)}
}

// Get returns the stored value for key.
func (s *StateStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Put stores value under key, replacing any previous value.
func (s *StateStore) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.writes++
	return nil
}

// Writes reports how many Put calls succeeded.
func (s *StateStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Snapshot returns a copy of the stored state.
func (s *StateStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Close is a no-op.
func (s *StateStore) Close() error {
	return nil
}
