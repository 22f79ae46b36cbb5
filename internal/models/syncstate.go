package models

import "time"

// SyncState tracks synchronization bookkeeping against the remote store.
type SyncState struct {
	// LocalVersion is a monotonic counter. It only ever advances to a
	// value the engine has confirmed was durably written to or read
	// from the remote; never speculatively.
	LocalVersion int `json:"local_version"`

	// RemoteVersion is the version last observed in remote metadata.
	RemoteVersion int `json:"remote_version"`

	// Locator identifies the remote resource (opaque to the engine).
	Locator string `json:"locator,omitempty"`

	LastSyncedAt time.Time `json:"last_synced_at,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
}

// NewSyncState creates empty bookkeeping.
func NewSyncState() *SyncState {
	return &SyncState{}
}

// Confirm records a durably completed sync at the given version.
func (s *SyncState) Confirm(version int) {
	s.LocalVersion = version
	s.RemoteVersion = version
	s.LastSyncedAt = time.Now().UTC()
	s.LastError = ""
}

// SetError records the last failure, clearing it when err is nil.
func (s *SyncState) SetError(err error) {
	if err != nil {
		s.LastError = err.Error()
	} else {
		s.LastError = ""
	}
}

// RemoteMeta is the remote metadata resource: a tiny plaintext JSON
// file holding the published version and its timestamp.
type RemoteMeta struct {
	Version      int       `json:"version"`
	LastModified time.Time `json:"lastModified"`
}
