package vault_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentesthub/hubvault/internal/crypto"
	"github.com/pentesthub/hubvault/internal/events"
	"github.com/pentesthub/hubvault/internal/models"
	"github.com/pentesthub/hubvault/internal/session"
	"github.com/pentesthub/hubvault/internal/store"
	"github.com/pentesthub/hubvault/internal/vault"
)

func testLogger() *events.Logger {
	return events.NewTestLogger(events.ErrorLevel, "text", io.Discard)
}

type fixture struct {
	service *vault.Service
	store   store.Store
	session *session.Store
	crypto  crypto.Provider
}

func newFixture(t *testing.T, st store.Store, minScore int) *fixture {
	t.Helper()
	logger := testLogger()
	provider := crypto.NewProvider(crypto.DefaultIterations, logger)
	sess := session.NewStore()
	return &fixture{
		service: vault.NewService(provider, st, sess, minScore, logger),
		store:   st,
		session: sess,
		crypto:  provider,
	}
}

// failingStore passes through to an inner store but fails Put for
// selected keys, to simulate a crash partway through a multi-key write.
type failingStore struct {
	store.Store
	failPut map[string]error
}

func (f *failingStore) Put(key string, value interface{}) error {
	if err, ok := f.failPut[key]; ok {
		return err
	}
	return f.Store.Put(key, value)
}

func TestService_Setup(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), 0)

	assert.Equal(t, vault.StateNoVault, f.service.State())

	require.NoError(t, f.service.Setup("Tr0ub4dor&3"))

	assert.Equal(t, vault.StateUnlocked, f.service.State())
	assert.True(t, f.session.IsActive())

	key, ok := f.session.Key()
	require.True(t, ok)
	assert.Len(t, key, crypto.KeySize)

	// Both artifacts persisted.
	var envelope crypto.Envelope
	require.NoError(t, f.store.Get(store.KeyVaultEnvelope, &envelope))
	require.NoError(t, envelope.Validate())
	var verifier crypto.PasswordVerifier
	require.NoError(t, f.store.Get(store.KeyVaultVerifier, &verifier))
	assert.NotEmpty(t, verifier.Hash)

	// Second setup is rejected.
	assert.ErrorIs(t, f.service.Setup("Another-Pass1"), models.ErrVaultAlreadyConfigured)
}

func TestService_SetupPolicy(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), 3)

	err := f.service.Setup("weak")
	assert.ErrorIs(t, err, models.ErrWeakPassword)
	assert.Equal(t, vault.StateNoVault, f.service.State())

	assert.NoError(t, f.service.Setup("Str0ng-enough-pass!"))
}

func TestService_UnlockLock(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), 0)

	// Unlock before setup.
	assert.ErrorIs(t, f.service.Unlock("anything"), models.ErrVaultNotConfigured)

	require.NoError(t, f.service.Setup("Tr0ub4dor&3"))
	f.service.Lock()
	assert.Equal(t, vault.StateLocked, f.service.State())
	assert.False(t, f.session.IsActive())

	// Wrong password is rejected by the verifier without consuming the
	// envelope.
	err := f.service.Unlock("wrong-password")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.True(t, vault.ErrIsCredentialFailure(err))
	assert.Equal(t, vault.StateLocked, f.service.State())

	require.NoError(t, f.service.Unlock("Tr0ub4dor&3"))
	assert.Equal(t, vault.StateUnlocked, f.service.State())

	// Lock is idempotent.
	f.service.Lock()
	f.service.Lock()
	assert.Equal(t, vault.StateLocked, f.service.State())
}

func TestService_ChangePassword(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), 0)
	require.NoError(t, f.service.Setup("Tr0ub4dor&3"))

	collections := &models.Collections{
		Workspaces: []models.Workspace{{ID: "ws1", Name: "Recon"}},
		Notes:      []models.Item{{ID: "n1", Kind: models.KindNote, Title: "nmap output"}},
	}
	require.NoError(t, store.SaveCollections(f.store, collections))

	require.NoError(t, f.service.ChangePassword("Tr0ub4dor&3", "N3wP@ssw0rd!"))
	assert.Equal(t, vault.StateUnlocked, f.service.State())

	// Old password is dead, new one opens the vault.
	f.service.Lock()
	assert.ErrorIs(t, f.service.Unlock("Tr0ub4dor&3"), models.ErrInvalidCredentials)
	require.NoError(t, f.service.Unlock("N3wP@ssw0rd!"))

	// The new envelope carries the full corpus under the new password.
	var envelope crypto.Envelope
	require.NoError(t, f.store.Get(store.KeyVaultEnvelope, &envelope))
	var payload struct {
		Initialized bool                `json:"initialized"`
		Collections *models.Collections `json:"collections"`
	}
	require.NoError(t, f.crypto.DecryptInto(&envelope, "N3wP@ssw0rd!", &payload))
	assert.True(t, payload.Initialized)
	require.NotNil(t, payload.Collections)
	assert.Equal(t, collections.Notes, payload.Collections.Notes)
}

func TestService_ChangePasswordWrongCurrent(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), 0)
	require.NoError(t, f.service.Setup("Tr0ub4dor&3"))

	err := f.service.ChangePassword("not-the-password", "N3wP@ssw0rd!")
	assert.ErrorIs(t, err, models.ErrDecryptionFailed)
	assert.True(t, vault.ErrIsCredentialFailure(err))

	// Nothing was replaced.
	f.service.Lock()
	require.NoError(t, f.service.Unlock("Tr0ub4dor&3"))
}

func TestService_ChangePasswordAtomicity(t *testing.T) {
	inner := store.NewMemoryStore()
	f := newFixture(t, inner, 0)
	require.NoError(t, f.service.Setup("Tr0ub4dor&3"))

	// A write failure at the commit point must leave the old artifacts
	// in place.
	boom := errors.New("disk full")
	failing := newFixture(t, &failingStore{
		Store:   inner,
		failPut: map[string]error{store.KeyVaultEnvelope: boom},
	}, 0)

	err := failing.service.ChangePassword("Tr0ub4dor&3", "N3wP@ssw0rd!")
	require.ErrorIs(t, err, boom)

	f.service.Lock()
	require.NoError(t, f.service.Unlock("Tr0ub4dor&3"))
	assert.ErrorIs(t, f.service.Unlock("N3wP@ssw0rd!"), models.ErrInvalidCredentials)
}

func TestService_PasswordLifecycle(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), 0)

	require.NoError(t, f.service.Setup("Tr0ub4dor&3"))
	f.service.Lock()

	assert.ErrorIs(t, f.service.Unlock("wrong"), models.ErrInvalidCredentials)
	require.NoError(t, f.service.Unlock("Tr0ub4dor&3"))

	require.NoError(t, f.service.ChangePassword("Tr0ub4dor&3", "N3wP@ssw0rd!"))
	f.service.Lock()

	assert.ErrorIs(t, f.service.Unlock("Tr0ub4dor&3"), models.ErrInvalidCredentials)
	require.NoError(t, f.service.Unlock("N3wP@ssw0rd!"))
	assert.Equal(t, vault.StateUnlocked, f.service.State())
}
