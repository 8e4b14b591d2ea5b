//go:build integration

package s3_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/blobvault/blobvault/pkg/store"
	s3store "github.com/blobvault/blobvault/pkg/store/s3"
	storetesting "github.com/blobvault/blobvault/pkg/store/testing"
)

// setupTestS3 creates an S3 client and test bucket for integration tests.
//
// It connects to Localstack (or another S3-compatible endpoint) and creates
// a test bucket that is removed again by the returned cleanup function.
func setupTestS3(t *testing.T, bucketName string) (*s3.Client, func()) {
	t.Helper()
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithBaseEndpoint(endpoint),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			"test",
			"test",
			"",
		)),
	)
	if err != nil {
		t.Fatalf("Failed to load AWS config: %v", err)
	}

	// Path-style URLs are required for Localstack.
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	})
	if err != nil {
		t.Fatalf("Failed to create test bucket: %v", err)
	}

	cleanup := func() {
		listResp, _ := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket: aws.String(bucketName),
		})
		if listResp != nil {
			for _, obj := range listResp.Contents {
				client.DeleteObject(ctx, &s3.DeleteObjectInput{
					Bucket: aws.String(bucketName),
					Key:    obj.Key,
				})
			}
		}

		client.DeleteBucket(ctx, &s3.DeleteBucketInput{
			Bucket: aws.String(bucketName),
		})
	}

	return client, cleanup
}

// TestS3Store_Integration runs the complete Store contract suite against a
// real S3-compatible service (Localstack).
//
// Prerequisites:
//   - Localstack running on localhost:4566
//   - Run with: go test -tags=integration ./pkg/store/s3/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestS3Store_Integration(t *testing.T) {
	ctx := context.Background()

	bucketName := "blobvault-test-bucket"
	client, cleanup := setupTestS3(t, bucketName)
	defer cleanup()

	// Each test gets a fresh store with a unique key prefix for isolation.
	testCounter := 0
	suite := &storetesting.StoreTestSuite{
		NewStore: func() store.Store {
			testCounter++
			s, err := s3store.NewS3Store(ctx, s3store.S3StoreConfig{
				Client:    client,
				Bucket:    bucketName,
				KeyPrefix: fmt.Sprintf("test-%d/", testCounter),
			})
			if err != nil {
				t.Fatalf("Failed to create S3 store for test %d: %v", testCounter, err)
			}
			return s
		},
	}

	suite.Run(t)
}
