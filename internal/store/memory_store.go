package store

import (
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore implements Store in memory, for tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]json.RawMessage)}
}

// Get unmarshals the value under key into out.
func (s *MemoryStore) Get(key string, out interface{}) error {
	raw, err := s.GetRaw(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// GetRaw returns the raw JSON value under key.
func (s *MemoryStore) GetRaw(key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out, nil
}

// Put stores value under key.
func (s *MemoryStore) Put(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = data
	return nil
}

// Remove deletes the value under key.
func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Keys lists every stored key.
func (s *MemoryStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys, nil
}

// Clear removes every stored value.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]json.RawMessage)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// Snapshot returns a copy of the full key space, for tests that
// compare store contents before and after an operation.
func (s *MemoryStore) Snapshot() map[string]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(map[string]json.RawMessage, len(s.values))
	for k, v := range s.values {
		c := make(json.RawMessage, len(v))
		copy(c, v)
		snap[k] = c
	}
	return snap
}
