// Package cache provides a read-through Redis cache over any store.Store.
//
// Metadata lookups dominate the read traffic of a record store (listings,
// lightweight callers, the find projection all start from metadata), so
// metadata is always cached. Full records are cached only up to a size
// threshold to keep large payloads out of Redis.
//
// The cache is an availability optimization, never a correctness layer: a
// Redis failure degrades silently to the underlying store, mutations write
// the fresh state through to the cache, and every entry carries a TTL that
// bounds staleness from racing read-side fills. The authoritative etag
// check always happens in the underlying store, never against a cached
// value.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/blobvault/blobvault/internal/logger"
	"github.com/blobvault/blobvault/pkg/store"
)

const (
	defaultTTL             = 5 * time.Minute
	defaultMaxContentBytes = 1 << 20 // 1MiB

	metadataKeyPrefix = "md:"
	recordKeyPrefix   = "rec:"
)

// CachedStore decorates a store.Store with a Redis cache.
type CachedStore struct {
	next   store.Store
	client *redis.Client
	ttl    time.Duration

	// maxContentBytes caps the size of records cached with content.
	maxContentBytes int64
}

// CacheConfig configures the Redis connection and cache policy.
type CacheConfig struct {
	// Addr is the Redis host:port.
	Addr string `mapstructure:"addr"`

	// Password is optional; empty means no AUTH.
	Password string `mapstructure:"password"`

	// DB is the Redis logical database number.
	DB int `mapstructure:"db"`

	// TTL bounds the staleness of cached entries. Zero uses the default
	// (5 minutes).
	TTL time.Duration `mapstructure:"ttl"`

	// MaxContentBytes caps the record size cached with content. Zero
	// uses the default (1MiB); negative disables record caching so only
	// metadata is cached.
	MaxContentBytes int64 `mapstructure:"max_content_bytes"`
}

// NewCachedStore wraps next with a Redis cache and verifies the connection.
func NewCachedStore(ctx context.Context, next store.Store, cfg CacheConfig) (*CachedStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}
	maxContent := cfg.MaxContentBytes
	if maxContent == 0 {
		maxContent = defaultMaxContentBytes
	}

	return &CachedStore{
		next:            next,
		client:          client,
		ttl:             ttl,
		maxContentBytes: maxContent,
	}, nil
}

// Create passes through and primes the cache with the new record.
func (c *CachedStore) Create(ctx context.Context, name string, content []byte, attrs store.Attributes) (*store.Record, error) {
	rec, err := c.next.Create(ctx, name, content, attrs)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, rec)
	return rec, nil
}

// Get serves cached records when possible.
func (c *CachedStore) Get(ctx context.Context, name string) (*store.Record, error) {
	var rec store.Record
	if c.lookup(ctx, recordKeyPrefix+name, &rec) {
		return &rec, nil
	}

	fresh, err := c.next.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, fresh)
	return fresh, nil
}

// GetMetadata serves cached metadata when possible.
func (c *CachedStore) GetMetadata(ctx context.Context, name string) (*store.Metadata, error) {
	var md store.Metadata
	if c.lookup(ctx, metadataKeyPrefix+name, &md) {
		return &md, nil
	}

	fresh, err := c.next.GetMetadata(ctx, name)
	if err != nil {
		return nil, err
	}
	c.set(ctx, metadataKeyPrefix+name, fresh)
	return fresh, nil
}

// Replace passes through and refreshes the cache with the new version.
func (c *CachedStore) Replace(ctx context.Context, name string, content []byte, expectedETag string, upd store.Update) (*store.Record, error) {
	rec, err := c.next.Replace(ctx, name, content, expectedETag, upd)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, rec)
	return rec, nil
}

// UpdateMetadata passes through and refreshes the cache.
func (c *CachedStore) UpdateMetadata(ctx context.Context, name string, expectedETag string, upd store.Update) (*store.Record, error) {
	rec, err := c.next.UpdateMetadata(ctx, name, expectedETag, upd)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, rec)
	return rec, nil
}

// Delete passes through and drops the cached entries.
func (c *CachedStore) Delete(ctx context.Context, name string, expectedETag string) error {
	if err := c.next.Delete(ctx, name, expectedETag); err != nil {
		return err
	}
	c.invalidate(ctx, name)
	return nil
}

// List always goes to the underlying store: listings depend on the whole
// key population, which a per-record cache cannot answer.
func (c *CachedStore) List(ctx context.Context, filter store.Filter) *store.MetadataIterator {
	return c.next.List(ctx, filter)
}

// Find always goes to the underlying store, for the same reason as List.
func (c *CachedStore) Find(ctx context.Context, filter store.Filter) ([]store.FindEntry, error) {
	return c.next.Find(ctx, filter)
}

// GetMeta passes through; meta entries are read rarely and must be fresh.
func (c *CachedStore) GetMeta(ctx context.Context, key string) (string, error) {
	return c.next.GetMeta(ctx, key)
}

// SetMeta passes through.
func (c *CachedStore) SetMeta(ctx context.Context, key, value string) error {
	return c.next.SetMeta(ctx, key, value)
}

// Check probes both the cache and the underlying store. A broken cache is
// reported, because operators asked for it in the configuration.
func (c *CachedStore) Check(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis cache: %w", err)
	}
	return c.next.Check(ctx)
}

// Close closes the Redis client and then the underlying store.
func (c *CachedStore) Close() error {
	cacheErr := c.client.Close()
	storeErr := c.next.Close()
	return errors.Join(cacheErr, storeErr)
}

// lookup fetches and decodes a cached entry. Any cache failure is a miss.
func (c *CachedStore) lookup(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Debug("cache lookup %s: %v", key, err)
		}
		return false
	}
	if err := msgpack.Unmarshal(data, dst); err != nil {
		logger.Warn("cache decode %s: %v", key, err)
		return false
	}
	return true
}

// set encodes and stores a cache entry. Failures are logged and ignored.
func (c *CachedStore) set(ctx context.Context, key string, value any) {
	data, err := msgpack.Marshal(value)
	if err != nil {
		logger.Warn("cache encode %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Debug("cache set %s: %v", key, err)
	}
}

// fill writes a record's metadata (always) and the record itself (when
// small enough) into the cache. Oversized records evict any stale cached
// copy instead.
func (c *CachedStore) fill(ctx context.Context, rec *store.Record) {
	c.set(ctx, metadataKeyPrefix+rec.Name, rec.Metadata())
	if c.maxContentBytes >= 0 && int64(len(rec.Content)) <= c.maxContentBytes {
		c.set(ctx, recordKeyPrefix+rec.Name, rec)
	} else {
		if err := c.client.Del(ctx, recordKeyPrefix+rec.Name).Err(); err != nil {
			logger.Debug("cache del %s: %v", rec.Name, err)
		}
	}
}

// invalidate drops both cache entries for a name.
func (c *CachedStore) invalidate(ctx context.Context, name string) {
	if err := c.client.Del(ctx, metadataKeyPrefix+name, recordKeyPrefix+name).Err(); err != nil {
		logger.Debug("cache invalidate %s: %v", name, err)
	}
}
