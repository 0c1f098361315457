// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// badgerBackend stores records in an embedded Badger database:
//   - payload: key = "playlist:<key>" (compressed record)
//   - meta:    key = "meta:<key>" (JSON meta, scanned by Stats/Cleanup)
type badgerBackend struct {
	db *badger.DB
}

const (
	badgerPayloadPrefix = "playlist:"
	badgerMetaPrefix    = "meta:"
)

// NewBadgerStore opens (or creates) a Badger database in dir.
func NewBadgerStore(dir string) (Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return newRecordStore(&badgerBackend{db: db}), nil
}

func (b *badgerBackend) name() string { return "badger" }

func (b *badgerBackend) get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerPayloadPrefix + key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errNotFound
	}
	return out, err
}

func (b *badgerBackend) put(_ context.Context, m meta, payload []byte) error {
	buf, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(badgerPayloadPrefix+m.Key), payload); err != nil {
			return err
		}
		return txn.Set([]byte(badgerMetaPrefix+m.Key), buf)
	})
}

func (b *badgerBackend) delete(_ context.Context, key string) (bool, error) {
	removed := false
	err := b.db.Update(func(txn *badger.Txn) error {
		payloadKey := []byte(badgerPayloadPrefix + key)
		if _, err := txn.Get(payloadKey); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		if err := txn.Delete(payloadKey); err != nil {
			return err
		}
		removed = true
		return txn.Delete([]byte(badgerMetaPrefix + key))
	})
	return removed, err
}

func (b *badgerBackend) scan(ctx context.Context, fn func(meta) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerMetaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var m meta
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			if err := fn(m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *badgerBackend) close() error { return b.db.Close() }
