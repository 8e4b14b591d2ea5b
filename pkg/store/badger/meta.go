package badger

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/blobvault/blobvault/pkg/store"
)

// GetMeta reads a configuration entry from the meta table. Missing keys
// yield "" with no error, so callers can treat unset configuration as a
// default without an existence check.
func (s *BadgerStore) GetMeta(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyMeta(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get meta %q: %w: %v", key, store.ErrUnavailable, err)
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMeta writes a configuration entry, replacing any previous value.
func (s *BadgerStore) SetMeta(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyMeta(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("set meta %q: %w: %v", key, store.ErrUnavailable, err)
	}
	return nil
}
