package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/blobvault/blobvault/internal/logger"
	"github.com/blobvault/blobvault/pkg/store"
	badgerstore "github.com/blobvault/blobvault/pkg/store/badger"
	"github.com/blobvault/blobvault/pkg/store/cache"
	"github.com/blobvault/blobvault/pkg/store/memory"
	s3store "github.com/blobvault/blobvault/pkg/store/s3"
)

// CreateStore creates a store based on configuration, wrapped with the Redis
// cache when the cache is enabled.
//
// This factory function uses the Type field to determine which backend to
// create, then decodes the backend-specific configuration from the
// corresponding map and passes it to the backend's constructor.
//
// Supported types:
//   - "memory": in-memory storage, data is lost on restart
//   - "badger": embedded BadgerDB storage (default)
//   - "s3": Amazon S3 or compatible object storage
func CreateStore(ctx context.Context, cfg *Config) (store.Store, error) {
	backend, err := createBackend(ctx, &cfg.Store)
	if err != nil {
		return nil, err
	}

	if !cfg.Cache.Enabled {
		return backend, nil
	}

	cached, err := cache.NewCachedStore(ctx, backend, cache.CacheConfig{
		Addr:            cfg.Cache.Addr,
		Password:        cfg.Cache.Password,
		DB:              cfg.Cache.DB,
		TTL:             cfg.Cache.TTL,
		MaxContentBytes: cfg.Cache.MaxContentBytes,
	})
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	logger.Info("redis cache enabled: addr=%s, ttl=%s", cfg.Cache.Addr, cfg.Cache.TTL)
	return cached, nil
}

// createBackend creates the raw backend without caching.
func createBackend(ctx context.Context, cfg *StoreConfig) (store.Store, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewMemoryStore(), nil
	case "badger":
		return createBadgerStore(ctx, cfg.Badger)
	case "s3":
		return createS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}

// decodeOptions decodes a backend's option map into its config struct,
// converting duration strings ("5m") along the way.
func decodeOptions(options map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     target,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

// createBadgerStore creates a BadgerDB-backed store.
func createBadgerStore(ctx context.Context, options map[string]any) (store.Store, error) {
	var storeCfg badgerstore.BadgerStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger store config: %w", err)
	}

	if storeCfg.Path == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger store: path is required")
	}

	s, err := badgerstore.NewBadgerStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Info("badger store initialized: path=%s, compression=%s",
		storeCfg.Path, storeCfg.Compression)

	return s, nil
}

// createS3Store creates an S3-backed store.
func createS3Store(ctx context.Context, options map[string]any) (store.Store, error) {
	type S3Options struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3Options
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 store: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	// Custom endpoint for MinIO, Localstack, etc.
	if storeCfg.Endpoint != "" {
		configOptions = append(configOptions, awsConfig.WithBaseEndpoint(storeCfg.Endpoint))
	}

	// Static credentials if provided, otherwise the default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Retry transient S3 failures (502, 503, timeouts) more persistently
	// than the AWS default of 3 attempts.
	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing for compatibility with MinIO/Localstack
		if storeCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	s, err := s3store.NewS3Store(ctx, s3store.S3StoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 store: %w", err)
	}

	logger.Info("S3 store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return s, nil
}
