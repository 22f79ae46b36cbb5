package config

import (
	"errors"
	"path/filepath"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Remote blob store access
	Remote RemoteConfig `json:"remote"`

	// Local persistence
	Storage StorageConfig `json:"storage"`

	// Vault policy and auto-lock behavior
	Vault VaultConfig `json:"vault"`

	// Sync behavior
	Sync SyncConfig `json:"sync"`

	// Logging
	Log LogConfig `json:"log"`
}

// RemoteConfig selects and configures the remote blob store backend.
type RemoteConfig struct {
	Backend    string        `json:"backend"` // http, s3
	BaseURL    string        `json:"base_url"`
	Token      string        `json:"token,omitempty"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`

	// S3 backend
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
}

// StorageConfig for local persistence.
type StorageConfig struct {
	DataDir string `json:"data_dir"`
	Backend string `json:"backend"` // json, sqlite
}

// VaultConfig for password policy and auto-lock.
type VaultConfig struct {
	KDFIterations    int           `json:"kdf_iterations"`
	MinPasswordScore int           `json:"min_password_score"` // 0 disables the policy gate
	AutoLockTimeout  time.Duration `json:"auto_lock_timeout"`
	AutoLockWarning  time.Duration `json:"auto_lock_warning"`
}

// SyncConfig for synchronization behavior.
type SyncConfig struct {
	Locator string `json:"locator,omitempty"` // remote resource identifier

	// Password for the autonomous read-only channel. Baked into the
	// deployed client on purpose: the published corpus is obfuscated
	// against casual readers, not confidential against anyone holding
	// this binary. Not a security boundary.
	ReadOnlyPassword string `json:"read_only_password,omitempty"`
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
	File   string `json:"file"`   // log file path (empty = stderr)
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := ".hubvault"

	return &Config{
		Remote: RemoteConfig{
			Backend:    "http",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Storage: StorageConfig{
			DataDir: dataDir,
			Backend: "json",
		},
		Vault: VaultConfig{
			KDFIterations:    100000,
			MinPasswordScore: 0,
			AutoLockTimeout:  15 * time.Minute,
			AutoLockWarning:  time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// StorePath returns the local store location for the configured backend.
func (c *Config) StorePath() string {
	if c.Storage.Backend == "sqlite" {
		return filepath.Join(c.Storage.DataDir, "vault.db")
	}
	return filepath.Join(c.Storage.DataDir, "store")
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	switch c.Remote.Backend {
	case "http":
		// BaseURL may stay empty until the user connects a remote.
	case "s3":
		if c.Remote.Bucket == "" {
			return errors.New("remote.bucket is required for the s3 backend")
		}
	default:
		return errors.New("remote.backend must be http or s3")
	}

	if c.Remote.Timeout <= 0 {
		return errors.New("remote.timeout must be positive")
	}

	if c.Remote.MaxRetries < 0 {
		return errors.New("remote.max_retries must not be negative")
	}

	if c.Storage.Backend != "json" && c.Storage.Backend != "sqlite" {
		return errors.New("storage.backend must be json or sqlite")
	}

	if c.Vault.KDFIterations < 100000 {
		return errors.New("vault.kdf_iterations must be at least 100000")
	}

	if c.Vault.MinPasswordScore < 0 || c.Vault.MinPasswordScore > 4 {
		return errors.New("vault.min_password_score must be between 0 and 4")
	}

	if c.Vault.AutoLockTimeout <= 0 {
		return errors.New("vault.auto_lock_timeout must be positive")
	}

	if c.Vault.AutoLockWarning < 0 || c.Vault.AutoLockWarning >= c.Vault.AutoLockTimeout {
		return errors.New("vault.auto_lock_warning must be shorter than the timeout")
	}

	return nil
}
