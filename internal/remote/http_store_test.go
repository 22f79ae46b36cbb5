package remote_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pentesthub/hubvault/internal/config"
	"github.com/pentesthub/hubvault/internal/events"
	"github.com/pentesthub/hubvault/internal/models"
	"github.com/pentesthub/hubvault/internal/remote"
)

func newHTTPStore(t *testing.T, server *httptest.Server, retries int) *remote.HTTPStore {
	t.Helper()
	logger := events.NewTestLogger(events.ErrorLevel, "text", io.Discard)
	return remote.NewHTTPStore(&config.RemoteConfig{
		BaseURL:    server.URL,
		Token:      "test-token",
		Timeout:    5 * time.Second,
		MaxRetries: retries,
	}, logger)
}

func TestHTTPStore_Read(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/loc1/meta.json", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("ETag", `"rev-7"`)
		w.Write([]byte(`{"version":7}`))
	}))
	defer server.Close()

	store := newHTTPStore(t, server, 0)
	resource, err := store.Read(context.Background(), "loc1", remote.PathMeta)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":7}`, string(resource.Content))
	assert.Equal(t, `"rev-7"`, resource.RevisionTag)
}

func TestHTTPStore_ReadNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := newHTTPStore(t, server, 0)
	_, err := store.Read(context.Background(), "loc1", remote.PathArchive)
	assert.ErrorIs(t, err, models.ErrRemoteNotFound)
}

func TestHTTPStore_WriteConditional(t *testing.T) {
	var gotIfMatch string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotIfMatch = r.Header.Get("If-Match")

		if gotIfMatch == `"stale"` {
			w.WriteHeader(http.StatusPreconditionFailed)
			return
		}
		w.Header().Set("ETag", `"rev-2"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := newHTTPStore(t, server, 0)

	rev, err := store.Write(context.Background(), "loc1", remote.PathArchive,
		[]byte(`{}`), `"rev-1"`)
	require.NoError(t, err)
	assert.Equal(t, `"rev-2"`, rev)
	assert.Equal(t, `"rev-1"`, gotIfMatch)

	_, err = store.Write(context.Background(), "loc1", remote.PathArchive,
		[]byte(`{}`), `"stale"`)
	assert.ErrorIs(t, err, models.ErrRemoteConflict)
}

func TestHTTPStore_Probe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path == "/loc1/meta.json" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := newHTTPStore(t, server, 0)

	exists, err := store.Probe(context.Background(), "loc1", remote.PathMeta)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Probe(context.Background(), "loc1", "absent.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHTTPStore_Create(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"new-locator"}`))
	}))
	defer server.Close()

	store := newHTTPStore(t, server, 0)
	locator, err := store.Create(context.Background(), "hubvault-sync")
	require.NoError(t, err)
	assert.Equal(t, "new-locator", locator)
}

func TestHTTPStore_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	store := newHTTPStore(t, server, 2)
	_, err := store.Read(context.Background(), "loc1", remote.PathMeta)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPStore_NoRetryOnNotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := newHTTPStore(t, server, 3)
	_, err := store.Read(context.Background(), "loc1", remote.PathMeta)
	assert.ErrorIs(t, err, models.ErrRemoteNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPStore_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	logger := events.NewTestLogger(events.ErrorLevel, "text", io.Discard)
	store := remote.NewHTTPStore(&config.RemoteConfig{
		BaseURL:    server.URL,
		Timeout:    50 * time.Millisecond,
		MaxRetries: 0,
	}, logger)

	_, err := store.Read(context.Background(), "loc1", remote.PathMeta)
	assert.ErrorIs(t, err, models.ErrNetworkTimeout)
}

func TestHTTPStore_ClientErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("bad token"))
	}))
	defer server.Close()

	store := newHTTPStore(t, server, 0)
	_, err := store.Read(context.Background(), "loc1", remote.PathMeta)

	var remoteErr *models.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusForbidden, remoteErr.StatusCode)
	assert.Contains(t, remoteErr.Message, "bad token")
}
