package badger

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/blobvault/blobvault/pkg/store"
)

// List streams metadata for records matching the filter. The scan runs in a
// View transaction over a consistent snapshot, so the listing is never torn
// by concurrent writes. Prefix iteration yields names in lexicographic
// order.
func (s *BadgerStore) List(ctx context.Context, filter store.Filter) *store.MetadataIterator {
	iter, prod := store.NewMetadataIterator(ctx)

	go func() {
		defer prod.Done()

		err := s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = scanPrefix(filter)
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}

				var md *store.Metadata
				err := it.Item().Value(func(val []byte) error {
					var decErr error
					md, decErr = s.codec.decodeMetadata(val)
					return decErr
				})
				if err != nil {
					return err
				}

				if !filter.Matches(md) {
					continue
				}
				if !prod.Emit(md) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			prod.Fail(err)
		}
	}()

	return iter
}

// scanPrefix narrows the key scan when the filter carries a name prefix.
func scanPrefix(filter store.Filter) []byte {
	return []byte(prefixRecord + filter.Prefix)
}

// Find computes the search projection for records matching the filter. The
// projection carries no content, description or extension data; it is
// recomputed from current store state on every call.
func (s *BadgerStore) Find(ctx context.Context, filter store.Filter) ([]store.FindEntry, error) {
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
