// Package sync implements the remote synchronization engine. Two
// channels share the crypto primitives: the user-authenticated
// push/pull channel (full-overwrite, last-writer-wins) and the
// autonomous read-only channel that publishes a browsable corpus
// under a fixed password.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pentesthub/hubvault/internal/crypto"
	"github.com/pentesthub/hubvault/internal/events"
	"github.com/pentesthub/hubvault/internal/models"
	"github.com/pentesthub/hubvault/internal/remote"
	"github.com/pentesthub/hubvault/internal/session"
	"github.com/pentesthub/hubvault/internal/store"
)

// Engine drives synchronization against the remote blob store.
type Engine struct {
	remote  remote.Store
	crypto  crypto.Provider
	store   store.Store
	session *session.Store
	logger  *events.Logger

	// defaultLocator seeds bookkeeping for clients that follow a
	// published corpus without ever pushing.
	defaultLocator string

	// readOnlyPassword decrypts the published corpus on the
	// autonomous channel. Obfuscation only: it ships inside the
	// client.
	readOnlyPassword string

	// onChange fires once after a batch mutates local data, so
	// in-memory caches can reload.
	onChange func()

	mu      sync.Mutex
	syncing bool
}

// Config bundles engine construction parameters.
type Config struct {
	DefaultLocator   string
	ReadOnlyPassword string
	OnChange         func()
}

// NewEngine creates a sync engine.
func NewEngine(rs remote.Store, provider crypto.Provider, st store.Store, sess *session.Store, cfg *Config, logger *events.Logger) *Engine {
	return &Engine{
		remote:           rs,
		crypto:           provider,
		store:            st,
		session:          sess,
		logger:           logger.WithField("component", "sync_engine"),
		defaultLocator:   cfg.DefaultLocator,
		readOnlyPassword: cfg.ReadOnlyPassword,
		onChange:         cfg.OnChange,
	}
}

// PushResult reports a completed push.
type PushResult struct {
	Locator string `json:"locator"`
	Version int    `json:"version"`
}

// PullResult reports a completed pull.
type PullResult struct {
	Version   int `json:"version"`
	ItemCount int `json:"item_count"`
}

// Push encrypts the full local corpus as one envelope and overwrites
// the remote archive. No field-level merge: concurrent pushes from two
// clients race and the last writer wins. An empty password captures the
// session password at call-start.
func (e *Engine) Push(ctx context.Context, password string) (*PushResult, error) {
	release, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer release()

	password, err = e.capturePassword(password)
	if err != nil {
		return nil, err
	}

	collections, err := store.LoadCollections(e.store)
	if err != nil {
		return nil, &models.SyncError{Code: models.ErrCodeStorage, Phase: "collect", Err: err}
	}

	envelope, err := e.crypto.Encrypt(collections, password)
	if err != nil {
		return nil, &models.SyncError{Code: models.ErrCodeCrypto, Phase: "encrypt", Err: err}
	}
	archive, err := json.Marshal(envelope)
	if err != nil {
		return nil, &models.SyncError{Code: models.ErrCodeCrypto, Phase: "encrypt", Err: err}
	}

	state := e.loadState()
	locator := state.Locator
	if locator == "" {
		locator, err = e.remote.Create(ctx, "hubvault")
		if err != nil {
			return nil, &models.SyncError{Code: models.ErrCodeNetwork, Phase: "create", Err: err}
		}
		e.logger.WithField("locator", locator).Info("Created remote resource")
	}

	if _, err := e.remote.Write(ctx, locator, remote.PathArchive, archive, ""); err != nil {
		return nil, &models.SyncError{Code: models.ErrCodeNetwork, Phase: "push", Locator: locator, Err: err}
	}

	version := state.LocalVersion + 1
	meta, err := json.Marshal(models.RemoteMeta{
		Version:      version,
		LastModified: time.Now().UTC(),
	})
	if err != nil {
		return nil, &models.SyncError{Code: models.ErrCodeState, Phase: "push", Locator: locator, Err: err}
	}
	if _, err := e.remote.Write(ctx, locator, remote.PathMeta, meta, ""); err != nil {
		return nil, &models.SyncError{Code: models.ErrCodeNetwork, Phase: "push", Locator: locator, Err: err}
	}

	// The remote write is confirmed durable; only now may the version
	// counter advance.
	state.Locator = locator
	state.Confirm(version)
	if err := e.saveState(state); err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"locator": locator,
		"version": version,
		"items":   collections.ItemCount(),
	}).Info("Push complete")

	return &PushResult{Locator: locator, Version: version}, nil
}

// Pull fetches the remote archive, decrypts it, and applies it as a
// full replacement of local collections. A failed decrypt is
// side-effect-free on local storage.
func (e *Engine) Pull(ctx context.Context, password string) (*PullResult, error) {
	release, err := e.begin()
	if err != nil {
		return nil, err
	}
	defer release()

	password, err = e.capturePassword(password)
	if err != nil {
		return nil, err
	}

	state := e.loadState()
	locator := state.Locator
	if locator == "" {
		locator = e.defaultLocator
	}
	if locator == "" {
		return nil, &models.SyncError{Code: models.ErrCodeState, Phase: "pull", Err: errors.New("no remote resource configured")}
	}

	res, err := e.remote.Read(ctx, locator, remote.PathArchive)
	if err != nil {
		return nil, &models.SyncError{Code: models.ErrCodeNetwork, Phase: "pull", Locator: locator, Err: err}
	}

	payload, err := remote.DetectPayload(res.Content)
	if err != nil || payload.Kind != remote.PayloadEnvelope {
		return nil, &models.SyncError{Code: models.ErrCodeDecryption, Phase: "pull", Locator: locator, Err: models.ErrDecryptionFailed}
	}

	var collections models.Collections
	if err := e.crypto.DecryptInto(payload.Envelope, password, &collections); err != nil {
		// Wrong password or corrupted archive; local state untouched.
		return nil, err
	}

	version := state.RemoteVersion
	if meta, err := e.readMeta(ctx, locator); err == nil {
		version = meta.Version
	}

	if err := store.SaveCollections(e.store, &collections); err != nil {
		return nil, &models.SyncError{Code: models.ErrCodeStorage, Phase: "apply", Locator: locator, Err: err}
	}

	state.Locator = locator
	state.Confirm(version)
	if err := e.saveState(state); err != nil {
		return nil, err
	}

	e.notifyChange()

	e.logger.WithFields(map[string]interface{}{
		"locator": locator,
		"version": version,
		"items":   collections.ItemCount(),
	}).Info("Pull complete")

	return &PullResult{Version: version, ItemCount: collections.ItemCount()}, nil
}

// Disconnect clears remote bookkeeping only. Remote data and local
// item data are untouched.
func (e *Engine) Disconnect() error {
	if err := e.saveState(models.NewSyncState()); err != nil {
		return err
	}
	e.logger.Info("Disconnected from remote")
	return nil
}

// State returns a copy of the current sync bookkeeping.
func (e *Engine) State() *models.SyncState {
	return e.loadState()
}

// begin guards against overlapping sync operations.
func (e *Engine) begin() (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.syncing {
		return nil, models.ErrSyncInProgress
	}
	e.syncing = true
	return func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}, nil
}

// capturePassword resolves the operation's password exactly once. A
// concurrent auto-lock clearing the session mid-flight cannot affect
// an operation that has already captured its value.
func (e *Engine) capturePassword(password string) (string, error) {
	if password != "" {
		return password, nil
	}
	captured, ok := e.session.Password()
	if !ok {
		return "", models.ErrVaultLocked
	}
	return captured, nil
}

func (e *Engine) loadState() *models.SyncState {
	var state models.SyncState
	if err := e.store.Get(store.KeySyncState, &state); err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			e.logger.WithError(err).Warn("Failed to load sync state")
		}
		return models.NewSyncState()
	}
	return &state
}

func (e *Engine) saveState(state *models.SyncState) error {
	if err := e.store.Put(store.KeySyncState, state); err != nil {
		return &models.SyncError{Code: models.ErrCodeStorage, Phase: "state", Err: fmt.Errorf("persist sync state: %w", err)}
	}
	return nil
}

func (e *Engine) readMeta(ctx context.Context, locator string) (*models.RemoteMeta, error) {
	res, err := e.remote.Read(ctx, locator, remote.PathMeta)
	if err != nil {
		return nil, err
	}
	var meta models.RemoteMeta
	if err := json.Unmarshal(res.Content, &meta); err != nil {
		return nil, fmt.Errorf("parse remote metadata: %w", err)
	}
	return &meta, nil
}

func (e *Engine) notifyChange() {
	if e.onChange != nil {
		e.onChange()
	}
}
