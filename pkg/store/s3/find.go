package s3

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/blobvault/blobvault/pkg/store"
)

// List streams metadata for matching records. S3 listings carry no object
// metadata, so every listed key costs an extra HEAD request; large listings
// on this backend are expensive by nature and best narrowed with a name
// prefix, which is pushed down into the bucket listing.
func (s *S3Store) List(ctx context.Context, filter store.Filter) *store.MetadataIterator {
	iter, prod := store.NewMetadataIterator(ctx)

	go func() {
		defer prod.Done()

		prefix := s.keyPrefix + recordKeyPrefix + filter.Prefix
		paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(prefix),
		})

		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				prod.Fail(wrapIO("list", s.bucket, err))
				return
			}

			for _, obj := range page.Contents {
				name := strings.TrimPrefix(aws.ToString(obj.Key), s.keyPrefix+recordKeyPrefix)

				md, err := s.GetMetadata(ctx, name)
				if err != nil {
					// Deleted between LIST and HEAD; not an error.
					if errors.Is(err, store.ErrNotFound) {
						continue
					}
					prod.Fail(err)
					return
				}

				if !filter.Matches(md) {
					continue
				}
				if !prod.Emit(md) {
					return
				}
			}
		}
	}()

	return iter
}

// Find computes the search projection for matching records.
func (s *S3Store) Find(ctx context.Context, filter store.Filter) ([]store.FindEntry, error) {
	mds, err := s.List(ctx, filter).Collect()
	if err != nil {
		return nil, err
	}
	entries := make([]store.FindEntry, 0, len(mds))
	for _, md := range mds {
		entries = append(entries, store.Project(md))
	}
	return entries, nil
}
