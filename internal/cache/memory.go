// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"sync"
)

type memoryRecord struct {
	meta    meta
	payload []byte
}

// memoryBackend is an in-process backend. Records live until Invalidate,
// Cleanup, Trim or process exit.
type memoryBackend struct {
	mu      sync.RWMutex
	records map[string]*memoryRecord
}

// NewMemoryStore creates a Store that keeps records in memory.
func NewMemoryStore() Store {
	return newRecordStore(&memoryBackend{records: make(map[string]*memoryRecord)})
}

func (b *memoryBackend) name() string { return "memory" }

func (b *memoryBackend) get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, found := b.records[key]
	if !found {
		return nil, errNotFound
	}
	return r.payload, nil
}

func (b *memoryBackend) put(_ context.Context, m meta, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records[m.Key] = &memoryRecord{meta: m, payload: payload}
	return nil
}

func (b *memoryBackend) delete(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, found := b.records[key]
	delete(b.records, key)
	return found, nil
}

// scan works on a snapshot so fn may call delete.
func (b *memoryBackend) scan(ctx context.Context, fn func(meta) error) error {
	b.mu.RLock()
	metas := make([]meta, 0, len(b.records))
	for _, r := range b.records {
		metas = append(metas, r.meta)
	}
	b.mu.RUnlock()

	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func (b *memoryBackend) close() error { return nil }
