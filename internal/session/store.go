// Package session holds the derived vault key and its password for the
// duration of one unlocked session. Nothing here is ever persisted,
// serialized, or logged; a process restart always comes up locked.
package session

import (
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
)

// Store is the single in-memory slot for session key material. It is
// an explicitly owned, injectable object: the client constructs one
// and hands it to the vault lifecycle and sync engine, and each test
// constructs its own.
type Store struct {
	mu       sync.Mutex
	key      *memguard.Enclave
	password *memguard.Enclave
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces any existing session atomically. The key slice is
// wiped as it is sealed; callers must not reuse it afterwards.
func (s *Store) Set(key []byte, password string) {
	keyEnclave := memguard.NewEnclave(key)

	pw := []byte(password)
	pwEnclave := memguard.NewEnclave(pw)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = keyEnclave
	s.password = pwEnclave
}

// Key returns a copy of the session key, or false when locked. The
// caller owns the copy and should wipe it when done.
func (s *Store) Key() ([]byte, bool) {
	s.mu.Lock()
	enclave := s.key
	s.mu.Unlock()

	if enclave == nil {
		return nil, false
	}

	buf, err := enclave.Open()
	if err != nil {
		return nil, false
	}
	defer buf.Destroy()

	out := make([]byte, buf.Size())
	copy(out, buf.Bytes())
	return out, true
}

// Password returns the session password, or false when locked.
// Exposed so the sync engine can re-encrypt mid-session without
// re-prompting; sync operations capture the value once at call-start
// so a concurrent Clear cannot pull it out from under them.
func (s *Store) Password() (string, bool) {
	s.mu.Lock()
	enclave := s.password
	s.mu.Unlock()

	if enclave == nil {
		return "", false
	}

	buf, err := enclave.Open()
	if err != nil {
		return "", false
	}
	defer buf.Destroy()

	return string(buf.Bytes()), true
}

// Clear destroys both fields. Called on lock and on auto-lock timeout;
// there is no path that restores a cleared session from disk.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = nil
	s.password = nil
}

// IsActive reports whether a session is currently held.
func (s *Store) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.password != nil
}

// String implements fmt.Stringer to keep key material out of logs.
func (s *Store) String() string {
	return fmt.Sprintf("session.Store(active=%t)", s.IsActive())
}
