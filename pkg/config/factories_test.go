package config

import (
	"context"
	"testing"
)

func TestCreateStore_Memory(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "memory"

	s, err := CreateStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}
	defer s.Close()

	if err := s.Check(context.Background()); err != nil {
		t.Errorf("Expected healthy store, got: %v", err)
	}
}

func TestCreateStore_Badger(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "badger"
	cfg.Store.Badger = map[string]any{
		"path":        t.TempDir(),
		"gc_interval": "-1s",
	}

	s, err := CreateStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create badger store: %v", err)
	}
	defer s.Close()

	if err := s.Check(context.Background()); err != nil {
		t.Errorf("Expected healthy store, got: %v", err)
	}
}

func TestCreateStore_UnknownType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "cassandra"

	if _, err := CreateStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for unknown store type")
	}
}

func TestCreateStore_BadgerMissingPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "badger"
	cfg.Store.Badger = map[string]any{"path": ""}

	if _, err := CreateStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for missing badger path")
	}
}

func TestCreateStore_S3MissingBucket(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Store.Type = "s3"
	cfg.Store.S3 = map[string]any{"region": "eu-west-1"}

	if _, err := CreateStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for missing S3 bucket")
	}
}
