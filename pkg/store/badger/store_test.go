package badger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blobvault/blobvault/pkg/store"
	storetesting "github.com/blobvault/blobvault/pkg/store/testing"
)

func newTestStore(t *testing.T, cfg BadgerStoreConfig) *BadgerStore {
	t.Helper()

	if cfg.Path == "" && !cfg.InMemory {
		cfg.Path = t.TempDir()
	}
	// Value-log GC only matters for long-running processes.
	cfg.GCInterval = -1

	s, err := NewBadgerStore(context.Background(), cfg)
	require.NoError(t, err)
	return s
}

// TestBadgerStore runs the complete Store contract suite against the
// on-disk implementation.
func TestBadgerStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func() store.Store {
			return newTestStore(t, BadgerStoreConfig{})
		},
	}

	suite.Run(t)
}

// TestBadgerStore_InMemory runs the same suite against the in-memory mode
// used by tests and ephemeral deployments.
func TestBadgerStore_InMemory(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func() store.Store {
			return newTestStore(t, BadgerStoreConfig{InMemory: true})
		},
	}

	suite.Run(t)
}

// TestBadgerStore_Compressed runs the suite with zstd content compression
// enabled, proving compression is invisible to the contract.
func TestBadgerStore_Compressed(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func() store.Store {
			return newTestStore(t, BadgerStoreConfig{InMemory: true, Compression: "zstd"})
		},
	}

	suite.Run(t)
}

// TestBadgerStore_PersistsAcrossReopen verifies records, etags and the meta
// table survive a close and reopen of the same directory.
func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := newTestStore(t, BadgerStoreConfig{Path: dir})
	created, err := first.Create(ctx, "a.txt", []byte("hello"), store.Attributes{
		MIME: "text/plain",
		Data: map[string]string{"k": "v"},
	})
	require.NoError(t, err)
	require.NoError(t, first.SetMeta(ctx, "owner", "ops"))
	require.NoError(t, first.Close())

	second := newTestStore(t, BadgerStoreConfig{Path: dir})
	defer second.Close()

	got, err := second.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got.Content)
	assert.Equal(t, created.ETag, got.ETag)
	assert.Equal(t, "v", got.Data["k"])

	v, err := second.GetMeta(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, "ops", v)
}

// TestBadgerStore_SchemaVersion verifies the schema marker is written at
// initialization.
func TestBadgerStore_SchemaVersion(t *testing.T) {
	s := newTestStore(t, BadgerStoreConfig{InMemory: true})
	defer s.Close()

	v, err := s.GetMeta(context.Background(), "schema_version")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

// TestBadgerStore_CompressionChangeAcrossReopen verifies records written
// without compression read back after reopening with zstd, and vice versa.
func TestBadgerStore_CompressionChangeAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	payload := bytes.Repeat([]byte("blobvault "), 100)

	plain := newTestStore(t, BadgerStoreConfig{Path: dir})
	_, err := plain.Create(ctx, "plain.txt", payload, store.Attributes{})
	require.NoError(t, err)
	require.NoError(t, plain.Close())

	compressed := newTestStore(t, BadgerStoreConfig{Path: dir, Compression: "zstd"})
	got, err := compressed.Get(ctx, "plain.txt")
	require.NoError(t, err)
	assert.Equal(t, payload, got.Content)

	_, err = compressed.Create(ctx, "packed.txt", payload, store.Attributes{})
	require.NoError(t, err)

	md, err := compressed.GetMetadata(ctx, "packed.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), md.Size)
	require.NoError(t, compressed.Close())

	reopened := newTestStore(t, BadgerStoreConfig{Path: dir})
	defer reopened.Close()

	got, err = reopened.Get(ctx, "packed.txt")
	require.NoError(t, err)
	assert.Equal(t, payload, got.Content)
}

// TestBadgerStore_InvalidCompression verifies an unknown codec is rejected
// at open time.
func TestBadgerStore_InvalidCompression(t *testing.T) {
	_, err := NewBadgerStore(context.Background(), BadgerStoreConfig{
		InMemory:    true,
		Compression: "lz4",
	})
	assert.Error(t, err)
}
