package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pentesthub/hubvault/internal/events"
)

// JSONStore implements Store with one file per key under a base
// directory. Writes go through a temp file and rename, so a crash
// mid-write leaves the previous value intact.
type JSONStore struct {
	baseDir string
	logger  *events.Logger

	mu sync.RWMutex
}

// NewJSONStore creates a file-based store.
func NewJSONStore(baseDir string, logger *events.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	return &JSONStore{
		baseDir: baseDir,
		logger:  logger.WithField("component", "json_store"),
	}, nil
}

// Get unmarshals the value under key into out.
func (s *JSONStore) Get(key string, out interface{}) error {
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
func (s *JSONStore) GetRaw(key string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.keyPath(key))
	if os.IsNotExist(err) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Put stores value under key atomically.
func (s *JSONStore) Put(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.keyPath(key)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if file, err := os.Open(tmpPath); err == nil {
		_ = file.Sync()
		file.Close()
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", key, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"key":  key,
		"size": len(data),
	}).Debug("Stored value")

	return nil
}

// Remove deletes the value under key.
func (s *JSONStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.keyPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Keys lists every stored key.
func (s *JSONStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read store directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, unescapeKey(strings.TrimSuffix(name, ".json")))
	}
	return keys, nil
}

// Clear removes every stored value.
func (s *JSONStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("read store directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.baseDir, entry.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
	}

	s.logger.Info("Cleared local store")
	return nil
}

// Close is a no-op for the file backend.
func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) keyPath(key string) string {
	return filepath.Join(s.baseDir, escapeKey(key)+".json")
}

// Keys are dot-separated identifiers; escape anything path-hostile so
// a key can never climb out of the store directory.
func escapeKey(key string) string {
	return strings.NewReplacer("/", "%2F", "\\", "%5C", "..", "%2E%2E").Replace(key)
}

func unescapeKey(name string) string {
	return strings.NewReplacer("%2F", "/", "%5C", "\\", "%2E%2E", "..").Replace(name)
}
