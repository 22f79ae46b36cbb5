package session_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentesthub/hubvault/internal/session"
)

func TestStore_SetAndGet(t *testing.T) {
	store := session.NewStore()

	_, ok := store.Key()
	assert.False(t, ok)
	_, ok = store.Password()
	assert.False(t, ok)
	assert.False(t, store.IsActive())

	key := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	store.Set(key, "hunter2")

	got, ok := store.Key()
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, got)

	pw, ok := store.Password()
	require.True(t, ok)
	assert.Equal(t, "hunter2", pw)
	assert.True(t, store.IsActive())
}

func TestStore_SetWipesSource(t *testing.T) {
	store := session.NewStore()

	key := []byte{9, 9, 9, 9}
	store.Set(key, "pw")

	// The caller's slice is scrubbed when the enclave seals it.
	assert.Equal(t, []byte{0, 0, 0, 0}, key)

	got, ok := store.Key()
	require.True(t, ok)
	assert.Equal(t, []byte{9, 9, 9, 9}, got)
}

func TestStore_Clear(t *testing.T) {
	store := session.NewStore()
	store.Set([]byte("0123456789abcdef"), "pw")
	require.True(t, store.IsActive())

	store.Clear()

	assert.False(t, store.IsActive())
	_, ok := store.Key()
	assert.False(t, ok)
	_, ok = store.Password()
	assert.False(t, ok)

	// Idempotent.
	store.Clear()
	assert.False(t, store.IsActive())
}

func TestStore_ReplaceSession(t *testing.T) {
	store := session.NewStore()
	store.Set([]byte("first-key-bytes!"), "first")
	store.Set([]byte("second-key-byte!"), "second")

	pw, ok := store.Password()
	require.True(t, ok)
	assert.Equal(t, "second", pw)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := session.NewStore()
	store.Set([]byte("0123456789abcdef"), "pw")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Key()
				store.Password()
				store.IsActive()
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Clear()
	}()
	wg.Wait()
}

func TestStore_StringHidesSecrets(t *testing.T) {
	store := session.NewStore()
	store.Set([]byte("0123456789abcdef"), "super-secret")

	assert.NotContains(t, store.String(), "super-secret")
}
