package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Backend-specific defaults are handled by the backend implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStoreDefaults(&cfg.Store)
	applyCacheDefaults(&cfg.Cache)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyStoreDefaults sets store backend defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "badger"
	}

	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.Badger["path"]; !ok {
		cfg.Badger["path"] = defaultBadgerPath()
	}
	if _, ok := cfg.Badger["compression"]; !ok {
		cfg.Badger["compression"] = "none"
	}
}

// applyCacheDefaults sets cache defaults.
func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.TTL == 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.MaxContentBytes == 0 {
		cfg.MaxContentBytes = 1 << 20 // 1MiB
	}
}

// GetDefaultConfig returns a configuration with all defaults applied.
// Useful as a starting point for tests and config file generation.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Store: StoreConfig{
			Badger: make(map[string]any),
			S3:     make(map[string]any),
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// defaultBadgerPath returns the default data directory for the badger
// backend: $XDG_DATA_HOME/blobvault or ~/.local/share/blobvault.
func defaultBadgerPath() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "blobvault")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "blobvault-data"
	}

	return filepath.Join(home, ".local", "share", "blobvault")
}
