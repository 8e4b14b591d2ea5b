package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// Write minimal config
	configContent := `
logging:
  level: "INFO"

store:
  type: "badger"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify defaults were applied
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Store.Badger["compression"] != "none" {
		t.Errorf("Expected default compression 'none', got %v", cfg.Store.Badger["compression"])
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Expected default cache ttl 5m, got %v", cfg.Cache.TTL)
	}
	if cfg.Cache.Enabled {
		t.Error("Expected cache disabled by default")
	}
}

func TestLoad_FullConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "debug"
  format: "json"
  output: "stderr"

store:
  type: "s3"
  s3:
    bucket: "my-vault"
    region: "eu-west-1"
    key_prefix: "prod/"

cache:
  enabled: true
  addr: "redis:6379"
  ttl: "30s"
  max_content_bytes: 4096
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Log level is normalized to uppercase
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Store.Type != "s3" {
		t.Errorf("Expected store type 's3', got %q", cfg.Store.Type)
	}
	if cfg.Store.S3["bucket"] != "my-vault" {
		t.Errorf("Expected bucket 'my-vault', got %v", cfg.Store.S3["bucket"])
	}
	if !cfg.Cache.Enabled {
		t.Error("Expected cache enabled")
	}
	if cfg.Cache.Addr != "redis:6379" {
		t.Errorf("Expected cache addr 'redis:6379', got %q", cfg.Cache.Addr)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("Expected cache ttl 30s, got %v", cfg.Cache.TTL)
	}
	if cfg.Cache.MaxContentBytes != 4096 {
		t.Errorf("Expected max_content_bytes 4096, got %d", cfg.Cache.MaxContentBytes)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// A missing config file falls back to defaults entirely
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	t.Setenv("HOME", tmpDir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected defaults when config file is missing, got error: %v", err)
	}

	if cfg.Store.Type != "badger" {
		t.Errorf("Expected default store type 'badger', got %q", cfg.Store.Type)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("store: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for malformed config file")
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("BLOBVAULT_LOGGING_LEVEL", "ERROR")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected env override level 'ERROR', got %q", cfg.Logging.Level)
	}
}
