package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/blobvault/blobvault/pkg/store"
)

// Record metadata is kept in x-amz-meta-* headers. S3 lowercases the keys,
// so everything here is lowercase from the start. The extension-data map is
// JSON-encoded into a single header because its keys are caller-defined and
// not guaranteed to be header-safe.
const (
	metaHeaderETag        = "record-etag"
	metaHeaderModified    = "record-modified"
	metaHeaderDescription = "record-description"
	metaHeaderTag         = "record-tag"
	metaHeaderTag2        = "record-tag2"
	metaHeaderTag3        = "record-tag3"
	metaHeaderData        = "record-data"
)

// objectMetadata builds the x-amz-meta-* map for a record.
func objectMetadata(rec *store.Record) (map[string]string, error) {
	md := map[string]string{
		metaHeaderETag:     rec.ETag,
		metaHeaderModified: rec.Modified.Format(time.RFC3339Nano),
	}
	if rec.Description != "" {
		md[metaHeaderDescription] = rec.Description
	}
	if rec.Tag != "" {
		md[metaHeaderTag] = rec.Tag
	}
	if rec.Tag2 != "" {
		md[metaHeaderTag2] = rec.Tag2
	}
	if rec.Tag3 != "" {
		md[metaHeaderTag3] = rec.Tag3
	}
	if rec.Data != nil {
		buf, err := json.Marshal(rec.Data)
		if err != nil {
			return nil, fmt.Errorf("encoding extension data for %q: %w", rec.Name, err)
		}
		md[metaHeaderData] = string(buf)
	}
	return md, nil
}

// recordFromObject rebuilds a record (without content) from object headers.
func recordFromObject(name string, meta map[string]string, contentType, contentEncoding *string) (*store.Record, error) {
	rec := &store.Record{
		Name:        name,
		ETag:        meta[metaHeaderETag],
		MIME:        aws.ToString(contentType),
		Encoding:    aws.ToString(contentEncoding),
		Description: meta[metaHeaderDescription],
		Tag:         meta[metaHeaderTag],
		Tag2:        meta[metaHeaderTag2],
		Tag3:        meta[metaHeaderTag3],
	}

	if v := meta[metaHeaderModified]; v != "" {
		modified, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("record %q: bad modified header %q: %w", name, v, err)
		}
		rec.Modified = modified
	}
	if v := meta[metaHeaderData]; v != "" {
		if err := json.Unmarshal([]byte(v), &rec.Data); err != nil {
			return nil, fmt.Errorf("record %q: bad extension data header: %w", name, err)
		}
	}
	return rec, nil
}

// Create stores a new record. If-None-Match makes the existence check and
// the write a single conditional operation on the S3 side.
func (s *S3Store) Create(ctx context.Context, name string, content []byte, attrs store.Attributes) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := store.ValidateName(name); err != nil {
		return nil, fmt.Errorf("create %q: %w", name, err)
	}

	unlock := s.lockName(name)
	defer unlock()

	rec := &store.Record{
		Name:        name,
		Content:     append([]byte(nil), content...),
		ETag:        store.NewETag(),
		Modified:    store.NextModified(time.Time{}),
		MIME:        attrs.MIME,
		Encoding:    attrs.Encoding,
		Description: attrs.Description,
		Tag:         attrs.Tag,
		Tag2:        attrs.Tag2,
		Tag3:        attrs.Tag3,
	}
	if attrs.Data != nil {
		rec.Data = make(map[string]string, len(attrs.Data))
		for k, v := range attrs.Data {
			rec.Data[k] = v
		}
	}

	if err := s.putRecord(ctx, rec, aws.String("*"), nil); err != nil {
		if isPreconditionFailed(err) {
			return nil, fmt.Errorf("create %q: %w", name, store.ErrAlreadyExists)
		}
		return nil, wrapIO("create", name, err)
	}
	return rec, nil
}

// putRecord uploads a record object. Exactly one of ifNoneMatch and ifMatch
// is set: "*" guards creation, an S3 etag guards replacement.
func (s *S3Store) putRecord(ctx context.Context, rec *store.Record, ifNoneMatch, ifMatch *string) error {
	meta, err := objectMetadata(rec)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.recordKey(rec.Name)),
		Body:        bytes.NewReader(rec.Content),
		Metadata:    meta,
		IfNoneMatch: ifNoneMatch,
		IfMatch:     ifMatch,
	}
	if rec.MIME != "" {
		input.ContentType = aws.String(rec.MIME)
	}
	if rec.Encoding != "" {
		input.ContentEncoding = aws.String(rec.Encoding)
	}

	_, err = s.client.PutObject(ctx, input)
	return err
}

// Get returns the full record including content.
func (s *S3Store) Get(ctx context.Context, name string) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.recordKey(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("get %q: %w", name, store.ErrNotFound)
		}
		return nil, wrapIO("get", name, err)
	}
	defer func() { _ = out.Body.Close() }()

	rec, err := recordFromObject(name, out.Metadata, out.ContentType, out.ContentEncoding)
	if err != nil {
		return nil, err
	}
	rec.Content, err = io.ReadAll(out.Body)
	if err != nil {
		return nil, wrapIO("get", name, err)
	}
	return rec, nil
}

// GetMetadata returns the record's metadata from a HEAD request; the
// content is never transferred.
func (s *S3Store) GetMetadata(ctx context.Context, name string) (*store.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.recordKey(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("stat %q: %w", name, store.ErrNotFound)
		}
		return nil, wrapIO("stat", name, err)
	}

	rec, err := recordFromObject(name, head.Metadata, head.ContentType, head.ContentEncoding)
	if err != nil {
		return nil, err
	}
	md := rec.Metadata()
	md.Size = aws.ToInt64(head.ContentLength)
	return md, nil
}

// Replace overwrites content and applies the partial metadata update. The
// stored record is read first to check the caller's etag and to carry over
// unchanged metadata; the rewrite is then guarded by If-Match on the S3
// etag observed during that read.
func (s *S3Store) Replace(ctx context.Context, name string, content []byte, expectedETag string, upd store.Update) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := s.lockName(name)
	defer unlock()

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.recordKey(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("replace %q: %w", name, store.ErrNotFound)
		}
		return nil, wrapIO("replace", name, err)
	}

	rec, err := recordFromObject(name, head.Metadata, head.ContentType, head.ContentEncoding)
	if err != nil {
		return nil, err
	}
	if expectedETag != "" && expectedETag != rec.ETag {
		return nil, fmt.Errorf("replace %q: %w", name, store.ErrConflict)
	}

	prev := rec.Modified
	rec.Content = append([]byte(nil), content...)
	upd.Apply(rec)
	rec.ETag = store.NewETag()
	rec.Modified = store.NextModified(prev)

	if err := s.putRecord(ctx, rec, nil, head.ETag); err != nil {
		if isPreconditionFailed(err) {
			return nil, fmt.Errorf("replace %q: %w", name, store.ErrConflict)
		}
		return nil, wrapIO("replace", name, err)
	}
	return rec, nil
}

// UpdateMetadata applies a partial metadata update. S3 objects are
// immutable, so the object is rewritten with its existing content; the etag
// is still regenerated.
func (s *S3Store) UpdateMetadata(ctx context.Context, name string, expectedETag string, upd store.Update) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := s.lockName(name)
	defer unlock()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.recordKey(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("update %q: %w", name, store.ErrNotFound)
		}
		return nil, wrapIO("update", name, err)
	}

	rec, err := recordFromObject(name, out.Metadata, out.ContentType, out.ContentEncoding)
	if err != nil {
		_ = out.Body.Close()
		return nil, err
	}
	rec.Content, err = io.ReadAll(out.Body)
	_ = out.Body.Close()
	if err != nil {
		return nil, wrapIO("update", name, err)
	}

	if expectedETag != "" && expectedETag != rec.ETag {
		return nil, fmt.Errorf("update %q: %w", name, store.ErrConflict)
	}

	prev := rec.Modified
	upd.Apply(rec)
	rec.ETag = store.NewETag()
	rec.Modified = store.NextModified(prev)

	if err := s.putRecord(ctx, rec, nil, out.ETag); err != nil {
		if isPreconditionFailed(err) {
			return nil, fmt.Errorf("update %q: %w", name, store.ErrConflict)
		}
		return nil, wrapIO("update", name, err)
	}
	return rec, nil
}

// Delete removes the record under the etag check. The delete itself is
// guarded by If-Match on the S3 etag observed during the check.
func (s *S3Store) Delete(ctx context.Context, name string, expectedETag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.lockName(name)
	defer unlock()

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.recordKey(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("delete %q: %w", name, store.ErrNotFound)
		}
		return wrapIO("delete", name, err)
	}

	if expectedETag != "" && expectedETag != head.Metadata[metaHeaderETag] {
		return fmt.Errorf("delete %q: %w", name, store.ErrConflict)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket:  aws.String(s.bucket),
		Key:     aws.String(s.recordKey(name)),
		IfMatch: head.ETag,
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return fmt.Errorf("delete %q: %w", name, store.ErrConflict)
		}
		return wrapIO("delete", name, err)
	}
	return nil
}
