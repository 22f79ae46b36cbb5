package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Loader handles configuration loading from multiple sources.
// Precedence: defaults < config file < environment variables.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a config loader.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		envPrefix:  "HUBVAULT_",
	}
}

// Load reads configuration from file and environment.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFile(cfg, l.configPath); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else {
		for _, path := range l.defaultPaths() {
			if _, err := os.Stat(path); err == nil {
				l.configPath = path
				if err := l.loadFile(cfg, path); err != nil {
					return nil, fmt.Errorf("load config file %s: %w", path, err)
				}
				break
			}
		}
	}

	l.loadEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// defaultPaths returns default config file locations.
func (l *Loader) defaultPaths() []string {
	paths := []string{
		"hubvault.json",
		".hubvault.json",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".config", "hubvault", "config.json"),
			filepath.Join(homeDir, ".hubvault", "config.json"),
		)
	}

	return paths
}

// loadFile reads config from a JSON file. Duration fields accept either
// nanosecond integers or strings like "15m".
func (l *Loader) loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	// First pass for duration strings.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		// Retry after rewriting duration strings into nanoseconds.
		rewritten, rerr := rewriteDurations(raw)
		if rerr != nil {
			return fmt.Errorf("parse config: %w", err)
		}
		if err := json.Unmarshal(rewritten, cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}

	return nil
}

func rewriteDurations(raw map[string]json.RawMessage) ([]byte, error) {
	for _, section := range []string{"remote", "vault"} {
		sec, ok := raw[section]
		if !ok {
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(sec, &fields); err != nil {
			return nil, err
		}
		for key, val := range fields {
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				continue
			}
			d, err := time.ParseDuration(s)
			if err != nil {
				continue
			}
			fields[key] = json.RawMessage(strconv.FormatInt(int64(d), 10))
		}
		updated, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		raw[section] = updated
	}
	return json.Marshal(raw)
}

// loadEnv applies environment variable overrides.
func (l *Loader) loadEnv(cfg *Config) {
	if v := os.Getenv(l.envPrefix + "REMOTE_BACKEND"); v != "" {
		cfg.Remote.Backend = v
	}
	if v := os.Getenv(l.envPrefix + "REMOTE_BASE_URL"); v != "" {
		cfg.Remote.BaseURL = v
	}
	if v := os.Getenv(l.envPrefix + "REMOTE_TOKEN"); v != "" {
		cfg.Remote.Token = v
	}
	if v := os.Getenv(l.envPrefix + "REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Remote.Timeout = d
		}
	}
	if v := os.Getenv(l.envPrefix + "REMOTE_BUCKET"); v != "" {
		cfg.Remote.Bucket = v
	}
	if v := os.Getenv(l.envPrefix + "REMOTE_PREFIX"); v != "" {
		cfg.Remote.Prefix = v
	}
	if v := os.Getenv(l.envPrefix + "DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv(l.envPrefix + "STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv(l.envPrefix + "KDF_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vault.KDFIterations = n
		}
	}
	if v := os.Getenv(l.envPrefix + "AUTO_LOCK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Vault.AutoLockTimeout = d
		}
	}
	if v := os.Getenv(l.envPrefix + "SYNC_LOCATOR"); v != "" {
		cfg.Sync.Locator = v
	}
	if v := os.Getenv(l.envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(l.envPrefix + "LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
