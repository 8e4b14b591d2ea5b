// Package memory implements an in-memory record store.
//
// The implementation is deliberately dependency-free. It exists for tests,
// development environments and as the reference semantics for the store
// contract: the conformance suite in pkg/store/testing runs against it, and
// durable backends are expected to behave identically.
//
// Thread safety: all operations are protected by a single read-write mutex.
// Records are cloned on the way in and out, so callers can never alias
// stored state.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/blobvault/blobvault/pkg/store"
)

// MemoryStore implements store.Store backed by process memory. Nothing
// survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*store.Record
	meta    map[string]string
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*store.Record),
		meta:    make(map[string]string),
	}
}

// Create stores a new record. See store.Store.
func (s *MemoryStore) Create(ctx context.Context, name string, content []byte, attrs store.Attributes) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := store.ValidateName(name); err != nil {
		return nil, fmt.Errorf("create %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, store.ErrUnavailable
	}
	if _, ok := s.records[name]; ok {
		return nil, fmt.Errorf("create %q: %w", name, store.ErrAlreadyExists)
	}

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

	s.records[name] = rec
	return rec.Clone(), nil
}

// Get returns the full record.
func (s *MemoryStore) Get(ctx context.Context, name string) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrUnavailable
	}
	rec, ok := s.records[name]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", name, store.ErrNotFound)
	}
	return rec.Clone(), nil
}

// GetMetadata returns the record without its content.
func (s *MemoryStore) GetMetadata(ctx context.Context, name string) (*store.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrUnavailable
	}
	rec, ok := s.records[name]
	if !ok {
		return nil, fmt.Errorf("stat %q: %w", name, store.ErrNotFound)
	}
	return rec.Metadata(), nil
}

// Replace overwrites content and applies the partial metadata update under
// the etag check. The check and the write happen under the same lock, so no
// other mutation can interleave.
func (s *MemoryStore) Replace(ctx context.Context, name string, content []byte, expectedETag string, upd store.Update) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.checkedLocked(name, expectedETag)
	if err != nil {
		return nil, err
	}

	next := rec.Clone()
	next.Content = append([]byte(nil), content...)
	upd.Apply(next)
	next.ETag = store.NewETag()
	next.Modified = store.NextModified(rec.Modified)

	s.records[name] = next
	return next.Clone(), nil
}

// UpdateMetadata applies a partial metadata update without touching content.
func (s *MemoryStore) UpdateMetadata(ctx context.Context, name string, expectedETag string, upd store.Update) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.checkedLocked(name, expectedETag)
	if err != nil {
		return nil, err
	}

	next := rec.Clone()
	upd.Apply(next)
	next.ETag = store.NewETag()
	next.Modified = store.NextModified(rec.Modified)

	s.records[name] = next
	return next.Clone(), nil
}

// Delete removes the record under the etag check.
func (s *MemoryStore) Delete(ctx context.Context, name string, expectedETag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.checkedLocked(name, expectedETag); err != nil {
		return err
	}
	delete(s.records, name)
	return nil
}

// checkedLocked fetches a record and enforces the optimistic-concurrency
// check. Callers must hold the write lock.
func (s *MemoryStore) checkedLocked(name, expectedETag string) (*store.Record, error) {
	if s.closed {
		return nil, store.ErrUnavailable
	}
	rec, ok := s.records[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, store.ErrNotFound)
	}
	if expectedETag != "" && expectedETag != rec.ETag {
		return nil, fmt.Errorf("%q: %w", name, store.ErrConflict)
	}
	return rec, nil
}

// List streams metadata for matching records in name order. The store is
// snapshotted up front, so a slow consumer never blocks writers.
func (s *MemoryStore) List(ctx context.Context, filter store.Filter) *store.MetadataIterator {
	iter, prod := store.NewMetadataIterator(ctx)

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		go func() {
			defer prod.Done()
			prod.Fail(store.ErrUnavailable)
		}()
		return iter
	}
	snapshot := make([]*store.Metadata, 0, len(s.records))
	for _, rec := range s.records {
		md := rec.Metadata()
		if filter.Matches(md) {
			snapshot = append(snapshot, md)
		}
	}
	s.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Name < snapshot[j].Name })

	go func() {
		defer prod.Done()
		for _, md := range snapshot {
			if !prod.Emit(md) {
				return
			}
		}
	}()
	return iter
}

// Find computes the search projection for matching records.
func (s *MemoryStore) Find(ctx context.Context, filter store.Filter) ([]store.FindEntry, error) {
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

// GetMeta reads a configuration entry; missing keys yield "".
func (s *MemoryStore) GetMeta(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", store.ErrUnavailable
	}
	return s.meta[key], nil
}

// SetMeta writes a configuration entry.
func (s *MemoryStore) SetMeta(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrUnavailable
	}
	s.meta[key] = value
	return nil
}

// Check reports whether the store is usable.
func (s *MemoryStore) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrUnavailable
	}
	return nil
}

// Close discards all records. The store is unusable afterwards.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.records = nil
	s.meta = nil
	return nil
}
