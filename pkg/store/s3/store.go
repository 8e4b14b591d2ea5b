// Package s3 implements the record store on Amazon S3 or S3-compatible
// object storage (MinIO, LocalStack, Cubbit DS3, ...).
//
// One object per record under "<prefix>records/<name>": the object body is
// the content, mime/encoding map to Content-Type/Content-Encoding, and the
// remaining metadata rides in x-amz-meta-* headers. Meta entries live under
// "<prefix>meta/<key>".
//
// # Concurrency
//
// S3 objects are immutable, so every mutation is a full rewrite. The etag
// check-and-mutate uses two layers: a process-local per-name lock serializes
// writers inside this node (the deployment model is a single writer node),
// and S3 conditional requests (If-None-Match on create, If-Match on
// replace/delete) reject the write if the object changed underneath us
// anyway. A failed conditional write leaves the previous object fully
// intact; readers always observe a complete object version.
package s3

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/blobvault/blobvault/pkg/store"
)

const (
	recordKeyPrefix = "records/"
	metaKeyPrefix   = "meta/"

	writeStripes = 64
)

// S3Store implements store.Store on an S3 bucket.
type S3Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string

	stripes [writeStripes]sync.Mutex
}

// S3StoreConfig contains the configuration for an S3-backed store.
type S3StoreConfig struct {
	// Client is the configured S3 client (see pkg/config for client
	// construction from file/env configuration).
	Client *s3.Client

	// Bucket is the bucket name. It must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys, letting one
	// bucket host several stores ("vaults/prod/" → "vaults/prod/records/...").
	KeyPrefix string
}

// NewS3Store creates an S3-backed record store and verifies bucket access.
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("s3 store: client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 store: bucket name is required")
	}

	s := &S3Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := s.Check(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// recordKey builds the object key for a record name.
func (s *S3Store) recordKey(name string) string {
	return s.keyPrefix + recordKeyPrefix + name
}

// metaKey builds the object key for a meta entry.
func (s *S3Store) metaKey(key string) string {
	return s.keyPrefix + metaKeyPrefix + key
}

// lockName acquires the write stripe for a record name and returns the
// unlock function.
func (s *S3Store) lockName(name string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	stripe := &s.stripes[h.Sum32()%writeStripes]
	stripe.Lock()
	return stripe.Unlock
}

// Check verifies the bucket is reachable.
func (s *S3Store) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 bucket %s: %w: %v", s.bucket, store.ErrUnavailable, err)
	}
	return nil
}

// Close is a no-op; the S3 client holds no resources worth releasing.
func (s *S3Store) Close() error {
	return nil
}

// isNotFound reports whether err is an S3 "object does not exist" response.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// isPreconditionFailed reports whether err is a failed S3 conditional
// request (If-Match / If-None-Match not satisfied, or a concurrent
// conditional writer winning the race).
func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		return code == http.StatusPreconditionFailed || code == http.StatusConflict
	}
	return false
}

// wrapIO tags a backing-store failure with the storage-unavailable sentinel
// while keeping the underlying cause in the message.
func wrapIO(op, name string, err error) error {
	return fmt.Errorf("%s %q: %w: %v", op, name, store.ErrUnavailable, err)
}
