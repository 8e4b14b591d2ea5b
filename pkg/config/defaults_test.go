package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Store.Type != "badger" {
		t.Errorf("Expected default store type 'badger', got %q", cfg.Store.Type)
	}
	if cfg.Store.Badger["path"] == "" {
		t.Error("Expected a default badger path")
	}
	if cfg.Cache.Addr != "localhost:6379" {
		t.Errorf("Expected default cache addr 'localhost:6379', got %q", cfg.Cache.Addr)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Expected default cache ttl 5m, got %v", cfg.Cache.TTL)
	}
}

func TestApplyDefaults_NormalizesLogLevel(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Format: "json", Output: "stderr"},
		Store: StoreConfig{
			Type:   "badger",
			Badger: map[string]any{"path": "/data/vault", "compression": "zstd"},
		},
		Cache: CacheConfig{TTL: time.Minute},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Format != "json" {
		t.Errorf("Expected explicit format preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Store.Badger["path"] != "/data/vault" {
		t.Errorf("Expected explicit path preserved, got %v", cfg.Store.Badger["path"])
	}
	if cfg.Store.Badger["compression"] != "zstd" {
		t.Errorf("Expected explicit compression preserved, got %v", cfg.Store.Badger["compression"])
	}
	if cfg.Cache.TTL != time.Minute {
		t.Errorf("Expected explicit ttl preserved, got %v", cfg.Cache.TTL)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected default config to validate, got: %v", err)
	}
}
