package store_test

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentesthub/hubvault/internal/events"
	"github.com/pentesthub/hubvault/internal/models"
	"github.com/pentesthub/hubvault/internal/store"
)

func testLogger() *events.Logger {
	return events.NewTestLogger(events.ErrorLevel, "text", io.Discard)
}

// backend builders share one conformance suite so every implementation
// honors the same contract.
func backends(t *testing.T) map[string]store.Store {
	t.Helper()

	jsonStore, err := store.NewJSONStore(t.TempDir(), testLogger())
	require.NoError(t, err)

	sqliteStore, err := store.NewSQLiteStore(
		filepath.Join(t.TempDir(), "hubvault.db"), testLogger())
	require.NoError(t, err)

	return map[string]store.Store{
		"json":   jsonStore,
		"sqlite": sqliteStore,
		"memory": store.NewMemoryStore(),
	}
}

func TestStore_Contract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()

			t.Run("missing key", func(t *testing.T) {
				var out string
				assert.ErrorIs(t, s.Get("absent", &out), store.ErrKeyNotFound)
				_, err := s.GetRaw("absent")
				assert.ErrorIs(t, err, store.ErrKeyNotFound)
			})

			t.Run("put and get", func(t *testing.T) {
				type record struct {
					Name  string `json:"name"`
					Count int    `json:"count"`
				}
				require.NoError(t, s.Put("test.record", record{Name: "recon", Count: 3}))

				var got record
				require.NoError(t, s.Get("test.record", &got))
				assert.Equal(t, record{Name: "recon", Count: 3}, got)

				raw, err := s.GetRaw("test.record")
				require.NoError(t, err)
				assert.JSONEq(t, `{"name":"recon","count":3}`, string(raw))
			})

			t.Run("overwrite", func(t *testing.T) {
				require.NoError(t, s.Put("test.value", "first"))
				require.NoError(t, s.Put("test.value", "second"))

				var got string
				require.NoError(t, s.Get("test.value", &got))
				assert.Equal(t, "second", got)
			})

			t.Run("remove", func(t *testing.T) {
				require.NoError(t, s.Put("test.doomed", 1))
				require.NoError(t, s.Remove("test.doomed"))

				var out int
				assert.ErrorIs(t, s.Get("test.doomed", &out), store.ErrKeyNotFound)

				// Removing an absent key is not an error.
				assert.NoError(t, s.Remove("test.doomed"))
			})

			t.Run("keys", func(t *testing.T) {
				require.NoError(t, s.Put("vault.envelope", "e"))
				require.NoError(t,
					s.Put(store.SectionItemsKey("ws1", "sec1"), []string{}))

				keys, err := s.Keys()
				require.NoError(t, err)
				assert.Contains(t, keys, "vault.envelope")
				assert.Contains(t, keys, "data.items.ws1.sec1")
			})

			t.Run("clear", func(t *testing.T) {
				require.NoError(t, s.Put("test.a", 1))
				require.NoError(t, s.Clear())

				keys, err := s.Keys()
				require.NoError(t, err)
				assert.Empty(t, keys)
			})
		})
	}
}

func TestJSONStore_HostileKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewJSONStore(dir, testLogger())
	require.NoError(t, err)

	// A path-traversal key must stay inside the store directory.
	key := "../escape/attempt"
	require.NoError(t, s.Put(key, "value"))

	var got string
	require.NoError(t, s.Get(key, &got))
	assert.Equal(t, "value", got)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Contains(t, keys, key)

	assert.NoFileExists(t, filepath.Join(filepath.Dir(dir), "escape", "attempt.json"))
}

func TestJSONStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := store.NewJSONStore(dir, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Put("vault.configured", true))
	require.NoError(t, s.Close())

	reopened, err := store.NewJSONStore(dir, testLogger())
	require.NoError(t, err)

	var configured bool
	require.NoError(t, reopened.Get("vault.configured", &configured))
	assert.True(t, configured)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hubvault.db")

	s, err := store.NewSQLiteStore(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Put("vault.configured", true))
	require.NoError(t, s.Close())

	reopened, err := store.NewSQLiteStore(path, testLogger())
	require.NoError(t, err)
	defer reopened.Close()

	var configured bool
	require.NoError(t, reopened.Get("vault.configured", &configured))
	assert.True(t, configured)
}

func TestMemoryStore_Snapshot(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.Put("test.a", 1))

	snap := s.Snapshot()
	require.NoError(t, s.Put("test.a", 2))
	require.NoError(t, s.Put("test.b", 3))

	// Snapshot is detached from subsequent writes.
	assert.Len(t, snap, 1)
	assert.JSONEq(t, `1`, string(snap["test.a"]))
}

func TestCollections_RoundTrip(t *testing.T) {
	s := store.NewMemoryStore()

	// Fresh store yields an empty corpus, not an error.
	empty, err := store.LoadCollections(s)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.ItemCount())

	collections := &models.Collections{
		Workspaces: []models.Workspace{{ID: "ws1", Name: "Recon"}},
		Sections:   []models.Section{{ID: "sec1", WorkspaceID: "ws1", Name: "Notes"}},
		Notes: []models.Item{
			{ID: "n1", Kind: models.KindNote, WorkspaceID: "ws1", SectionID: "sec1", Title: "nmap output"},
		},
	}
	require.NoError(t, store.SaveCollections(s, collections))

	loaded, err := store.LoadCollections(s)
	require.NoError(t, err)
	assert.Equal(t, collections.Workspaces, loaded.Workspaces)
	assert.Equal(t, collections.Sections, loaded.Sections)
	assert.Equal(t, collections.Notes, loaded.Notes)
	assert.Equal(t, 1, loaded.ItemCount())
}
