package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/blobvault/blobvault/pkg/store"
)

// GetMeta reads a configuration entry from "<prefix>meta/<key>". Missing
// keys yield "" with no error.
func (s *S3Store) GetMeta(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.metaKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("get meta %q: %w: %v", key, store.ErrUnavailable, err)
	}
	defer func() { _ = out.Body.Close() }()

	value, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("get meta %q: %w: %v", key, store.ErrUnavailable, err)
	}
	return string(value), nil
}

// SetMeta writes a configuration entry, replacing any previous value.
func (s *S3Store) SetMeta(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.metaKey(key)),
		Body:   bytes.NewReader([]byte(value)),
	})
	if err != nil {
		return fmt.Errorf("set meta %q: %w: %v", key, store.ErrUnavailable, err)
	}
	return nil
}
