package badger

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/blobvault/blobvault/pkg/store"
)

// Create stores a new record. The existence check and the write share one
// transaction, so a concurrent Create on the same name cannot slip between
// them.
func (s *BadgerStore) Create(ctx context.Context, name string, content []byte, attrs store.Attributes) (*store.Record, error) {
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

	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(keyRecord(name))
		if err == nil {
			return fmt.Errorf("create %q: %w", name, store.ErrAlreadyExists)
		}
		if err != badger.ErrKeyNotFound {
			return wrapIO("create", name, err)
		}

		buf, err := s.codec.encodeRecord(rec)
		if err != nil {
			return err
		}
		if err := txn.Set(keyRecord(name), buf); err != nil {
			return wrapIO("create", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns the full record including content.
func (s *BadgerStore) Get(ctx context.Context, name string) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *store.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyRecord(name))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("get %q: %w", name, store.ErrNotFound)
		}
		if err != nil {
			return wrapIO("get", name, err)
		}
		return item.Value(func(val []byte) error {
			rec, err = s.codec.decodeRecord(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetMetadata returns the record without its content. Compressed content is
// not inflated on this path; see decodeMetadata.
func (s *BadgerStore) GetMetadata(ctx context.Context, name string) (*store.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var md *store.Metadata
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyRecord(name))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("stat %q: %w", name, store.ErrNotFound)
		}
		if err != nil {
			return wrapIO("stat", name, err)
		}
		return item.Value(func(val []byte) error {
			md, err = s.codec.decodeMetadata(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return md, nil
}

// Replace overwrites content and applies the partial metadata update under
// the etag check. Read, check and write happen in one transaction while the
// name's write stripe is held, so the check-and-mutate is atomic.
func (s *BadgerStore) Replace(ctx context.Context, name string, content []byte, expectedETag string, upd store.Update) (*store.Record, error) {
	return s.mutate(ctx, "replace", name, expectedETag, func(rec *store.Record) {
		rec.Content = append([]byte(nil), content...)
		upd.Apply(rec)
	})
}

// UpdateMetadata applies a partial metadata update without touching content.
// The etag is still regenerated: it versions the record, not just content.
func (s *BadgerStore) UpdateMetadata(ctx context.Context, name string, expectedETag string, upd store.Update) (*store.Record, error) {
	return s.mutate(ctx, "update", name, expectedETag, func(rec *store.Record) {
		upd.Apply(rec)
	})
}

// mutate runs the shared read-check-modify-write cycle for Replace and
// UpdateMetadata.
func (s *BadgerStore) mutate(ctx context.Context, op, name, expectedETag string, apply func(*store.Record)) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := s.lockName(name)
	defer unlock()

	var rec *store.Record
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyRecord(name))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%s %q: %w", op, name, store.ErrNotFound)
		}
		if err != nil {
			return wrapIO(op, name, err)
		}

		err = item.Value(func(val []byte) error {
			rec, err = s.codec.decodeRecord(val)
			return err
		})
		if err != nil {
			return err
		}

		if expectedETag != "" && expectedETag != rec.ETag {
			return fmt.Errorf("%s %q: %w", op, name, store.ErrConflict)
		}

		prev := rec.Modified
		apply(rec)
		rec.ETag = store.NewETag()
		rec.Modified = store.NextModified(prev)

		buf, err := s.codec.encodeRecord(rec)
		if err != nil {
			return err
		}
		if err := txn.Set(keyRecord(name), buf); err != nil {
			return wrapIO(op, name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the record under the etag check.
func (s *BadgerStore) Delete(ctx context.Context, name string, expectedETag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.lockName(name)
	defer unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyRecord(name))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("delete %q: %w", name, store.ErrNotFound)
		}
		if err != nil {
			return wrapIO("delete", name, err)
		}

		if expectedETag != "" {
			var etag string
			err = item.Value(func(val []byte) error {
				rec, decErr := s.codec.decodeRecord(val)
				if decErr != nil {
					return decErr
				}
				etag = rec.ETag
				return nil
			})
			if err != nil {
				return err
			}
			if expectedETag != etag {
				return fmt.Errorf("delete %q: %w", name, store.ErrConflict)
			}
		}

		if err := txn.Delete(keyRecord(name)); err != nil {
			return wrapIO("delete", name, err)
		}
		return nil
	})
}

// wrapIO tags a backing-store failure with the storage-unavailable sentinel
// while keeping the underlying cause in the message.
func wrapIO(op, name string, err error) error {
	return fmt.Errorf("%s %q: %w: %v", op, name, store.ErrUnavailable, err)
}
