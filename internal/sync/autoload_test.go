package sync_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentesthub/hubvault/internal/models"
	"github.com/pentesthub/hubvault/internal/remote"
	"github.com/pentesthub/hubvault/internal/store"
	"github.com/pentesthub/hubvault/internal/sync"
)

const readOnlyPassword = "embedded-read-only"

func seedPublished(t *testing.T, f *engineFixture, locator string, sections int) {
	t.Helper()

	meta, err := json.Marshal(models.RemoteMeta{Version: 5, LastModified: time.Now().UTC()})
	require.NoError(t, err)
	f.remote.Seed(locator, remote.PathMeta, meta)

	f.remote.Seed(locator, remote.PathWorkspaces,
		[]byte(`[{"id":"ws1","name":"Recon"}]`))

	refs := make([]map[string]string, 0, sections)
	for i := 0; i < sections; i++ {
		id := string(rune('a' + i))
		refs = append(refs, map[string]string{"id": "sec-" + id, "workspaceId": "ws1", "name": "Section " + id})
	}
	raw, err := json.Marshal(refs)
	require.NoError(t, err)
	f.remote.Seed(locator, remote.PathSections, raw)

	for i := 0; i < sections; i++ {
		id := string(rune('a' + i))
		items, err := json.Marshal([]models.Item{
			{ID: "item-" + id, Kind: models.KindNote, WorkspaceID: "ws1", SectionID: "sec-" + id, Title: "Note " + id},
		})
		require.NoError(t, err)

		// Children ship sealed under the read-only password.
		env, err := f.crypto.Encrypt(json.RawMessage(items), readOnlyPassword)
		require.NoError(t, err)
		sealed, err := json.Marshal(env)
		require.NoError(t, err)
		f.remote.Seed(locator, remote.SectionItemsPath("ws1", "sec-"+id), sealed)
	}
}

func TestEngine_CheckRemoteExists(t *testing.T) {
	f := newEngineFixture(t, &sync.Config{
		DefaultLocator:   "loc1",
		ReadOnlyPassword: readOnlyPassword,
	})

	info, err := f.engine.CheckRemoteExists(context.Background())
	require.NoError(t, err)
	assert.False(t, info.Exists)

	seedPublished(t, f, "loc1", 1)

	info, err = f.engine.CheckRemoteExists(context.Background())
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, 5, info.RemoteVersion)
	assert.NotEmpty(t, info.LastModified)
}

func TestEngine_CheckRemoteExistsNoLocator(t *testing.T) {
	f := newEngineFixture(t, nil)

	info, err := f.engine.CheckRemoteExists(context.Background())
	require.NoError(t, err)
	assert.False(t, info.Exists)
}

func TestEngine_AutoLoad(t *testing.T) {
	f := newEngineFixture(t, &sync.Config{
		DefaultLocator:   "loc1",
		ReadOnlyPassword: readOnlyPassword,
	})
	seedPublished(t, f, "loc1", 3)

	result, err := f.engine.AutoLoad(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 5, result.RemoteVersion)
	assert.True(t, result.WorkspacesLoaded)
	assert.True(t, result.SectionsLoaded)
	assert.Equal(t, 3, result.ItemsLoaded)
	assert.Equal(t, 0, result.ItemsSkipped)

	// Decrypted children land in local storage as plaintext items.
	var items []models.Item
	require.NoError(t, f.store.Get(store.SectionItemsKey("ws1", "sec-a"), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Note a", items[0].Title)

	state := f.engine.State()
	assert.Equal(t, 5, state.LocalVersion)
	assert.Equal(t, "loc1", state.Locator)
	assert.Equal(t, 1, f.changes)
}

func TestEngine_AutoLoadMissingRemote(t *testing.T) {
	f := newEngineFixture(t, &sync.Config{
		DefaultLocator:   "loc1",
		ReadOnlyPassword: readOnlyPassword,
	})

	// No metadata published: descriptive no-op, never an error.
	result, err := f.engine.AutoLoad(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Reason)

	assert.Zero(t, f.changes)
	assert.Equal(t, 0, f.engine.State().LocalVersion)
}

func TestEngine_AutoLoadSkipsBadChildren(t *testing.T) {
	f := newEngineFixture(t, &sync.Config{
		DefaultLocator:   "loc1",
		ReadOnlyPassword: readOnlyPassword,
	})
	seedPublished(t, f, "loc1", 3)

	// One child is garbage; the other two must still load.
	f.remote.Seed("loc1", remote.SectionItemsPath("ws1", "sec-b"), []byte("not json at all"))

	result, err := f.engine.AutoLoad(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ItemsLoaded)
	assert.Equal(t, 1, result.ItemsSkipped)

	var items []models.Item
	require.NoError(t, f.store.Get(store.SectionItemsKey("ws1", "sec-a"), &items))
	require.NoError(t, f.store.Get(store.SectionItemsKey("ws1", "sec-c"), &items))
	assert.ErrorIs(t,
		f.store.Get(store.SectionItemsKey("ws1", "sec-b"), &items),
		store.ErrKeyNotFound)

	// The batch still counts as processed.
	assert.Equal(t, 5, f.engine.State().LocalVersion)
}

func TestEngine_AutoLoadSkipsUnreadableIndex(t *testing.T) {
	f := newEngineFixture(t, &sync.Config{
		DefaultLocator:   "loc1",
		ReadOnlyPassword: readOnlyPassword,
	})
	seedPublished(t, f, "loc1", 2)
	f.remote.ReadErrors[remote.PathWorkspaces] = errors.New("transient failure")

	result, err := f.engine.AutoLoad(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.WorkspacesLoaded)
	assert.True(t, result.SectionsLoaded)
	assert.Equal(t, 2, result.ItemsLoaded)
}

func TestEngine_AutoLoadPlaintextResources(t *testing.T) {
	// A corpus published without a read-only password arrives as plain
	// JSON and loads without decryption.
	f := newEngineFixture(t, &sync.Config{DefaultLocator: "loc1"})

	meta, err := json.Marshal(models.RemoteMeta{Version: 1, LastModified: time.Now().UTC()})
	require.NoError(t, err)
	f.remote.Seed("loc1", remote.PathMeta, meta)
	f.remote.Seed("loc1", remote.PathWorkspaces, []byte(`[{"id":"ws1","name":"Open"}]`))
	f.remote.Seed("loc1", remote.PathSections, []byte(`[]`))

	result, err := f.engine.AutoLoad(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.WorkspacesLoaded)

	var workspaces []models.Workspace
	require.NoError(t, f.store.Get(store.KeyWorkspaces, &workspaces))
	require.Len(t, workspaces, 1)
	assert.Equal(t, "Open", workspaces[0].Name)
}
