// Package client assembles the hubvault components behind one
// high-level API.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pentesthub/hubvault/internal/config"
	"github.com/pentesthub/hubvault/internal/crypto"
	"github.com/pentesthub/hubvault/internal/events"
	"github.com/pentesthub/hubvault/internal/models"
	"github.com/pentesthub/hubvault/internal/remote"
	"github.com/pentesthub/hubvault/internal/session"
	"github.com/pentesthub/hubvault/internal/store"
	syncengine "github.com/pentesthub/hubvault/internal/sync"
	"github.com/pentesthub/hubvault/internal/vault"
)

// Client provides the high-level API for hubvault operations.
type Client struct {
	Vault   *vault.Service
	Sync    *syncengine.Engine
	Session *session.Store
	Store   store.Store
	Crypto  crypto.Provider

	config *config.Config
	logger *events.Logger

	mu            sync.Mutex
	onLockWarning func(remainingSeconds float64)
	onDataChanged func()
}

// New creates a hubvault client from config.
func New(cfg *config.Config, logger *events.Logger) (*Client, error) {
	provider := crypto.NewProvider(cfg.Vault.KDFIterations, logger)
	if err := provider.SelfCheck(); err != nil {
		// CryptoUnavailable is fatal at startup; nothing downstream
		// can operate without the primitives.
		return nil, err
	}

	st, err := newLocalStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	remoteStore, err := newRemoteStore(cfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	sess := session.NewStore()

	c := &Client{
		Session: sess,
		Store:   st,
		Crypto:  provider,
		config:  cfg,
		logger:  logger,
	}

	vaultSvc := vault.NewService(provider, st, sess, cfg.Vault.MinPasswordScore, logger)
	autoLock := vault.NewAutoLock(
		cfg.Vault.AutoLockTimeout,
		cfg.Vault.AutoLockWarning,
		c.fireLockWarning,
		vaultSvc.Lock,
		logger,
	)
	vaultSvc.SetAutoLock(autoLock)

	engine := syncengine.NewEngine(remoteStore, provider, st, sess, &syncengine.Config{
		DefaultLocator:   cfg.Sync.Locator,
		ReadOnlyPassword: cfg.Sync.ReadOnlyPassword,
		OnChange:         c.fireDataChanged,
	}, logger)

	c.Vault = vaultSvc
	c.Sync = engine
	return c, nil
}

// SetLockWarning registers a callback for the auto-lock warning
// window. Calling the vault's RecordActivity from it cancels the
// pending lock.
func (c *Client) SetLockWarning(fn func(remainingSeconds float64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLockWarning = fn
}

// SetDataChanged registers a callback fired once after a sync batch
// mutates local data.
func (c *Client) SetDataChanged(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDataChanged = fn
}

// ExportArchive seals the full local corpus into one envelope. An
// empty password uses the session password.
func (c *Client) ExportArchive(password string) (*crypto.Envelope, error) {
	if password == "" {
		captured, ok := c.Session.Password()
		if !ok {
			return nil, models.ErrVaultLocked
		}
		password = captured
	}

	collections, err := store.LoadCollections(c.Store)
	if err != nil {
		return nil, fmt.Errorf("collect corpus: %w", err)
	}
	return c.Crypto.Encrypt(collections, password)
}

// ImportArchive decrypts an exported envelope and applies it as a full
// replacement of local collections. A failed decrypt leaves local
// state untouched.
func (c *Client) ImportArchive(envelope *crypto.Envelope, password string) error {
	var collections models.Collections
	if err := c.Crypto.DecryptInto(envelope, password, &collections); err != nil {
		return err
	}
	if err := store.SaveCollections(c.Store, &collections); err != nil {
		return fmt.Errorf("apply corpus: %w", err)
	}
	c.fireDataChanged()
	return nil
}

// Close locks the vault and releases resources.
func (c *Client) Close() error {
	c.Vault.Lock()
	return c.Store.Close()
}

func (c *Client) fireLockWarning(remaining time.Duration) {
	c.mu.Lock()
	fn := c.onLockWarning
	c.mu.Unlock()
	if fn != nil {
		fn(remaining.Seconds())
	}
}

func (c *Client) fireDataChanged() {
	c.mu.Lock()
	fn := c.onDataChanged
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func newLocalStore(cfg *config.Config, logger *events.Logger) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		return store.NewSQLiteStore(cfg.StorePath(), logger)
	default:
		return store.NewJSONStore(cfg.StorePath(), logger)
	}
}

func newRemoteStore(cfg *config.Config, logger *events.Logger) (remote.Store, error) {
	switch cfg.Remote.Backend {
	case "s3":
		return remote.NewS3Store(context.Background(), &cfg.Remote, logger)
	default:
		return remote.NewHTTPStore(&cfg.Remote, logger), nil
	}
}
