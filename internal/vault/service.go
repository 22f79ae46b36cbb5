// Package vault orchestrates the encryption lifecycle: setup, unlock,
// lock, and password change. States: no vault → (setup) → locked →
// (unlock) → unlocked → (lock | timeout) → locked.
package vault

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pentesthub/hubvault/internal/crypto"
	"github.com/pentesthub/hubvault/internal/events"
	"github.com/pentesthub/hubvault/internal/models"
	"github.com/pentesthub/hubvault/internal/session"
	"github.com/pentesthub/hubvault/internal/store"
)

// State describes the vault lifecycle position.
type State string

const (
	StateNoVault  State = "no_vault"
	StateLocked   State = "locked"
	StateUnlocked State = "unlocked"
)

// Payload is the content of the vault envelope. At setup it is a bare
// marker; a password change re-encrypts the full corpus alongside it.
type Payload struct {
	Initialized bool                `json:"initialized"`
	CreatedAt   time.Time           `json:"createdAt"`
	Collections *models.Collections `json:"collections,omitempty"`
}

// Service implements the vault lifecycle.
type Service struct {
	crypto   crypto.Provider
	store    store.Store
	session  *session.Store
	logger   *events.Logger
	minScore int

	mu       sync.Mutex
	autoLock *AutoLock
}

// NewService creates a vault lifecycle service.
func NewService(provider crypto.Provider, st store.Store, sess *session.Store, minScore int, logger *events.Logger) *Service {
	return &Service{
		crypto:   provider,
		store:    st,
		session:  sess,
		logger:   logger.WithField("service", "vault"),
		minScore: minScore,
	}
}

// SetAutoLock attaches an auto-lock scheduler. Its lock callback must
// already be wired to this service's Lock.
func (s *Service) SetAutoLock(a *AutoLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoLock = a
}

// State reports the current lifecycle state.
func (s *Service) State() State {
	if !s.Configured() {
		return StateNoVault
	}
	if s.session.IsActive() {
		return StateUnlocked
	}
	return StateLocked
}

// Configured reports whether vault encryption has been set up.
func (s *Service) Configured() bool {
	var configured bool
	if err := s.store.Get(store.KeyVaultConfigured, &configured); err != nil {
		return false
	}
	return configured
}

// Setup configures encryption for the first time: it persists a
// password verifier and a marker envelope, then opens the session.
func (s *Service) Setup(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Configured() {
		return models.ErrVaultAlreadyConfigured
	}

	if err := s.checkPolicy(password); err != nil {
		return err
	}

	verifier, err := s.crypto.GenerateVerifier(password)
	if err != nil {
		return fmt.Errorf("generate verifier: %w", err)
	}

	envelope, err := s.crypto.Encrypt(Payload{
		Initialized: true,
		CreatedAt:   time.Now().UTC(),
	}, password)
	if err != nil {
		return fmt.Errorf("encrypt marker: %w", err)
	}

	if err := s.store.Put(store.KeyVaultVerifier, verifier); err != nil {
		return fmt.Errorf("persist verifier: %w", err)
	}
	if err := s.store.Put(store.KeyVaultEnvelope, envelope); err != nil {
		return fmt.Errorf("persist envelope: %w", err)
	}
	if err := s.store.Put(store.KeyVaultConfigured, true); err != nil {
		return fmt.Errorf("persist configured flag: %w", err)
	}

	if err := s.openSession(envelope, password); err != nil {
		return err
	}

	s.logger.Info("Vault configured")
	return nil
}

// Unlock verifies the candidate password and opens the session. The
// verifier is the fast reject path: on mismatch the envelope is never
// touched, and the caller gets a re-promptable ErrInvalidCredentials.
func (s *Service) Unlock(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Configured() {
		return models.ErrVaultNotConfigured
	}

	var verifier crypto.PasswordVerifier
	if err := s.store.Get(store.KeyVaultVerifier, &verifier); err != nil {
		return fmt.Errorf("load verifier: %w", err)
	}

	ok, err := s.crypto.CheckVerifier(&verifier, password)
	if err != nil {
		return fmt.Errorf("check verifier: %w", err)
	}
	if !ok {
		s.logger.Warn("Unlock rejected by verifier")
		return models.ErrInvalidCredentials
	}

	var envelope crypto.Envelope
	if err := s.store.Get(store.KeyVaultEnvelope, &envelope); err != nil {
		return fmt.Errorf("load envelope: %w", err)
	}

	if err := s.openSession(&envelope, password); err != nil {
		return err
	}

	s.logger.Info("Vault unlocked")
	return nil
}

// Lock clears the session. Persisted envelopes and verifiers are
// untouched. Idempotent.
func (s *Service) Lock() {
	s.session.Clear()

	s.mu.Lock()
	a := s.autoLock
	s.mu.Unlock()
	if a != nil {
		a.Stop()
	}

	s.logger.Info("Vault locked")
}

// ChangePassword re-encrypts the full corpus under a new password.
// Every new artifact is produced before any old artifact is replaced,
// so a failure partway leaves the old password valid.
func (s *Service) ChangePassword(current, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Configured() {
		return models.ErrVaultNotConfigured
	}

	var envelope crypto.Envelope
	if err := s.store.Get(store.KeyVaultEnvelope, &envelope); err != nil {
		return fmt.Errorf("load envelope: %w", err)
	}

	// Proof of possession: the current password must open the
	// existing envelope.
	var payload Payload
	if err := s.crypto.DecryptInto(&envelope, current, &payload); err != nil {
		return err
	}

	if err := s.checkPolicy(next); err != nil {
		return err
	}

	collections, err := store.LoadCollections(s.store)
	if err != nil {
		return fmt.Errorf("collect corpus: %w", err)
	}

	newEnvelope, err := s.crypto.Encrypt(Payload{
		Initialized: true,
		CreatedAt:   payload.CreatedAt,
		Collections: collections,
	}, next)
	if err != nil {
		return fmt.Errorf("re-encrypt corpus: %w", err)
	}

	newVerifier, err := s.crypto.GenerateVerifier(next)
	if err != nil {
		return fmt.Errorf("generate verifier: %w", err)
	}

	// Commit point: all new artifacts exist, swap them in.
	if err := s.store.Put(store.KeyVaultEnvelope, newEnvelope); err != nil {
		return fmt.Errorf("persist envelope: %w", err)
	}
	if err := s.store.Put(store.KeyVaultVerifier, newVerifier); err != nil {
		return fmt.Errorf("persist verifier: %w", err)
	}

	if err := s.openSession(newEnvelope, next); err != nil {
		return err
	}

	s.logger.Info("Vault password changed")
	return nil
}

// RecordActivity resets the auto-lock timers. Safe to call in any
// state.
func (s *Service) RecordActivity() {
	s.mu.Lock()
	a := s.autoLock
	s.mu.Unlock()
	if a != nil && s.session.IsActive() {
		a.RecordActivity()
	}
}

// checkPolicy enforces the configured minimum strength score. A zero
// minimum disables the gate entirely; weak passwords are discouraged
// in the UI, never blocked by mechanism.
func (s *Service) checkPolicy(password string) error {
	if s.minScore <= 0 {
		return nil
	}
	strength := s.crypto.AssessStrength(password)
	if strength.Score < s.minScore {
		return fmt.Errorf("%w: score %d below minimum %d", models.ErrWeakPassword, strength.Score, s.minScore)
	}
	return nil
}

// openSession derives the envelope's key and populates the session,
// then arms the auto-lock.
func (s *Service) openSession(envelope *crypto.Envelope, password string) error {
	salt, err := base64.StdEncoding.DecodeString(envelope.Salt)
	if err != nil {
		return fmt.Errorf("decode envelope salt: %w", err)
	}

	key, err := s.crypto.DeriveKey(password, salt, envelope.KDFIterations)
	if err != nil {
		return fmt.Errorf("derive session key: %w", err)
	}

	s.session.Set(key, password)

	if s.autoLock != nil {
		s.autoLock.Start()
	}
	return nil
}

// ErrIsCredentialFailure reports whether err should surface to the
// user as a re-promptable "wrong password" state. Wrong password and
// corrupt ciphertext deliberately share one answer.
func ErrIsCredentialFailure(err error) bool {
	return errors.Is(err, models.ErrInvalidCredentials) || errors.Is(err, models.ErrDecryptionFailed)
}
