// Package store defines the storage contract of blobvault: named records of
// opaque content with integrity metadata (etag, modified time), descriptive
// metadata (mime, encoding, description, tags, extension data), an
// optimistic-concurrency discipline for mutations, and a derived find
// projection for listing without exposing payloads.
//
// The contract is implemented by sibling packages:
//   - memory: dependency-free in-memory store for tests and development
//   - badger: durable embedded store on BadgerDB (the default)
//   - s3: remote store on Amazon S3 or compatible object storage
//   - cache: read-through Redis decorator over any of the above
//
// # Concurrency contract
//
// Mutating operations on the same name are linearized by every backend: the
// etag check and the write happen as one atomic unit, so a caller holding a
// stale etag always gets ErrConflict instead of silently overwriting.
// Operations on different names are independent. Reads may run concurrently
// with writes and observe either the pre- or post-write state of a record,
// never a torn one.
//
// No operation is long-running; there are no background retries. Failure is
// synchronous, and a failed mutation leaves the record exactly as it was.
package store

import "context"

// Store is the record store contract. Implementations must be safe for
// concurrent use by multiple goroutines.
type Store interface {
	// Create stores a new record under name. It fails with
	// ErrAlreadyExists if the name is taken (leaving the existing record
	// untouched) and ErrInvalidName if the name is unusable. On success
	// the returned record carries a freshly generated etag and the
	// mutation timestamp.
	Create(ctx context.Context, name string, content []byte, attrs Attributes) (*Record, error)

	// Get returns the full record including content, or ErrNotFound.
	Get(ctx context.Context, name string) (*Record, error)

	// GetMetadata returns the record's metadata without its content, or
	// ErrNotFound under exactly the same conditions as Get.
	GetMetadata(ctx context.Context, name string) (*Metadata, error)

	// Replace overwrites the record's content and applies the partial
	// metadata update. When expectedETag is non-empty and does not match
	// the stored etag, it fails with ErrConflict and changes nothing.
	// On success the etag is regenerated and modified advances.
	Replace(ctx context.Context, name string, content []byte, expectedETag string, upd Update) (*Record, error)

	// UpdateMetadata applies a partial metadata update without touching
	// content. The concurrency rules match Replace, and the etag is still
	// regenerated: the etag versions the record, not just its content.
	UpdateMetadata(ctx context.Context, name string, expectedETag string, upd Update) (*Record, error)

	// Delete removes the record, guarded by the same etag check. Deletion
	// is irrecoverable.
	Delete(ctx context.Context, name string, expectedETag string) error

	// List streams the metadata of records matching filter. Ordering is
	// backend-defined; the iterator must be closed by the caller.
	List(ctx context.Context, filter Filter) *MetadataIterator

	// Find computes the search projection over records matching filter.
	// Entries never include content, description or extension data.
	Find(ctx context.Context, filter Filter) ([]FindEntry, error)

	// GetMeta reads a process-wide configuration entry. A missing key
	// returns "" with no error.
	GetMeta(ctx context.Context, key string) (string, error)

	// SetMeta writes a configuration entry, replacing any previous value.
	SetMeta(ctx context.Context, key, value string) error

	// Check probes the backing store and reports whether it is usable.
	Check(ctx context.Context) error

	// Close releases the backing store. The store must not be used after.
	Close() error
}
