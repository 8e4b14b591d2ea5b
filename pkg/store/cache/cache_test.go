package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blobvault/blobvault/pkg/store"
	"github.com/blobvault/blobvault/pkg/store/memory"
)

func newTestCache(t *testing.T, cfg CacheConfig) (*CachedStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg.Addr = mr.Addr()

	cached, err := NewCachedStore(context.Background(), memory.NewMemoryStore(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cached.Close() })

	return cached, mr
}

func TestCachedStoreReadThrough(t *testing.T) {
	cached, mr := newTestCache(t, CacheConfig{})
	ctx := context.Background()

	created, err := cached.Create(ctx, "a.txt", []byte("hello"), store.Attributes{MIME: "text/plain"})
	require.NoError(t, err)

	// Create primes both cache entries.
	assert.True(t, mr.Exists("md:a.txt"))
	assert.True(t, mr.Exists("rec:a.txt"))

	got, err := cached.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got.Content)
	assert.Equal(t, created.ETag, got.ETag)

	md, err := cached.GetMetadata(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", md.MIME)
	assert.Equal(t, int64(5), md.Size)
}

func TestCachedStoreServesFromCache(t *testing.T) {
	cached, _ := newTestCache(t, CacheConfig{})
	ctx := context.Background()

	created, err := cached.Create(ctx, "a.txt", []byte("hello"), store.Attributes{})
	require.NoError(t, err)

	// Remove the record behind the cache's back; a cached read must still
	// succeed, proving it never reached the underlying store.
	require.NoError(t, cached.next.Delete(ctx, "a.txt", ""))

	got, err := cached.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, created.ETag, got.ETag)

	md, err := cached.GetMetadata(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, created.ETag, md.ETag)
}

func TestCachedStoreMutationsRefresh(t *testing.T) {
	cached, _ := newTestCache(t, CacheConfig{})
	ctx := context.Background()

	created, err := cached.Create(ctx, "a.txt", []byte("hello"), store.Attributes{})
	require.NoError(t, err)

	replaced, err := cached.Replace(ctx, "a.txt", []byte("world"), created.ETag, store.Update{})
	require.NoError(t, err)
	assert.NotEqual(t, created.ETag, replaced.ETag)

	got, err := cached.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), got.Content)
	assert.Equal(t, replaced.ETag, got.ETag)

	updated, err := cached.UpdateMetadata(ctx, "a.txt", replaced.ETag, store.Update{
		Description: store.String("greeting"),
	})
	require.NoError(t, err)

	md, err := cached.GetMetadata(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "greeting", md.Description)
	assert.Equal(t, updated.ETag, md.ETag)
}

func TestCachedStoreDeleteInvalidates(t *testing.T) {
	cached, mr := newTestCache(t, CacheConfig{})
	ctx := context.Background()

	_, err := cached.Create(ctx, "a.txt", []byte("hello"), store.Attributes{})
	require.NoError(t, err)
	require.True(t, mr.Exists("rec:a.txt"))

	require.NoError(t, cached.Delete(ctx, "a.txt", ""))
	assert.False(t, mr.Exists("md:a.txt"))
	assert.False(t, mr.Exists("rec:a.txt"))

	_, err = cached.Get(ctx, "a.txt")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCachedStoreContentSizeLimit(t *testing.T) {
	cached, mr := newTestCache(t, CacheConfig{MaxContentBytes: 8})
	ctx := context.Background()

	_, err := cached.Create(ctx, "big.bin", make([]byte, 64), store.Attributes{})
	require.NoError(t, err)

	// Metadata is cached, the oversized content is not.
	assert.True(t, mr.Exists("md:big.bin"))
	assert.False(t, mr.Exists("rec:big.bin"))

	got, err := cached.Get(ctx, "big.bin")
	require.NoError(t, err)
	assert.Len(t, got.Content, 64)
}

func TestCachedStoreMetadataOnlyMode(t *testing.T) {
	cached, mr := newTestCache(t, CacheConfig{MaxContentBytes: -1})
	ctx := context.Background()

	_, err := cached.Create(ctx, "a.txt", []byte("hi"), store.Attributes{})
	require.NoError(t, err)

	assert.True(t, mr.Exists("md:a.txt"))
	assert.False(t, mr.Exists("rec:a.txt"))
}

func TestCachedStoreDegradesWithoutRedis(t *testing.T) {
	cached, mr := newTestCache(t, CacheConfig{})
	ctx := context.Background()

	created, err := cached.Create(ctx, "a.txt", []byte("hello"), store.Attributes{})
	require.NoError(t, err)

	mr.Close()

	// Every operation still works against the underlying store.
	got, err := cached.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got.Content)

	_, err = cached.Replace(ctx, "a.txt", []byte("world"), created.ETag, store.Update{})
	require.NoError(t, err)

	md, err := cached.GetMetadata(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), md.Size)

	assert.Error(t, cached.Check(ctx))
}

func TestCachedStoreTTL(t *testing.T) {
	cached, mr := newTestCache(t, CacheConfig{TTL: time.Minute})
	ctx := context.Background()

	_, err := cached.Create(ctx, "a.txt", []byte("hello"), store.Attributes{})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("rec:a.txt"))

	// Expired entries fall back to the store and re-fill.
	_, err = cached.Get(ctx, "a.txt")
	require.NoError(t, err)
	assert.True(t, mr.Exists("rec:a.txt"))
}

func TestCachedStorePassThroughs(t *testing.T) {
	cached, _ := newTestCache(t, CacheConfig{})
	ctx := context.Background()

	_, err := cached.Create(ctx, "a.txt", []byte("hello"), store.Attributes{Tag: "x"})
	require.NoError(t, err)
	_, err = cached.Create(ctx, "b.txt", []byte("bye"), store.Attributes{})
	require.NoError(t, err)

	entries, err := cached.Find(ctx, store.Filter{Tag: "x"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name)

	it := cached.List(ctx, store.Filter{})
	defer it.Close()
	all, err := it.Collect()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, cached.SetMeta(ctx, "owner", "ops"))
	v, err := cached.GetMeta(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, "ops", v)
}
