// Package store provides the local persistent key-value store: string
// keys, JSON values, whole-value reads and writes. The key names below
// are the vault's addressing scheme and must stay stable across
// releases.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Store is the local persistent key-value interface. Writes are atomic
// at key granularity: a reader never observes a half-written value,
// and the last writer of a key wins.
type Store interface {
	// Get unmarshals the value under key into out.
	Get(key string, out interface{}) error

	// GetRaw returns the raw JSON value under key.
	GetRaw(key string) (json.RawMessage, error)

	// Put stores value under key, replacing any existing value.
	Put(key string, value interface{}) error

	// Remove deletes the value under key. Missing keys are not an error.
	Remove(key string) error

	// Keys lists every stored key.
	Keys() ([]string, error)

	// Clear removes every stored value.
	Clear() error

	// Close releases resources.
	Close() error
}

// ErrKeyNotFound is returned by Get/GetRaw for absent keys.
var ErrKeyNotFound = errors.New("key not found")

// Well-known keys.
const (
	KeyVaultEnvelope   = "vault.envelope"
	KeyVaultVerifier   = "vault.verifier"
	KeyVaultConfigured = "vault.configured"
	KeySyncState       = "sync.state"
	KeyWorkspaces      = "data.workspaces"
	KeySections        = "data.sections"
	KeyPrompts         = "data.prompts"
	KeyNotes           = "data.notes"
	KeySnippets        = "data.snippets"
	KeyResources       = "data.resources"
)

// SectionItemsKey addresses the per-section item list for a
// (workspace, section) pair.
func SectionItemsKey(workspaceID, sectionID string) string {
	return fmt.Sprintf("data.items.%s.%s", workspaceID, sectionID)
}
