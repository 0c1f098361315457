// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/m3uingest/internal/fsutil"
)

// recordExt is the file suffix of cached records.
const recordExt = ".m3uc"

// fileBackend keeps one compressed record per source key under dir. Record
// files carry their creation time as the file mtime.
type fileBackend struct {
	dir string
}

// NewFileStore returns a Store writing record files into dir, creating it if needed.
func NewFileStore(dir string) (Store, error) {
	if dir == "" {
		return nil, errors.New("cache: file store needs a directory")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return newRecordStore(&fileBackend{dir: dir}), nil
}

func (b *fileBackend) name() string { return "file" }

func (b *fileBackend) path(key string) string {
	return filepath.Join(b.dir, key+recordExt)
}

func (b *fileBackend) get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errNotFound
	}
	return data, err
}

func (b *fileBackend) put(_ context.Context, m meta, payload []byte) error {
	path := b.path(m.Key)
	if err := fsutil.WriteFileAtomic(path, payload, 0o600); err != nil {
		return err
	}
	if err := os.Chtimes(path, m.CreatedAt, m.CreatedAt); err != nil {
		return fmt.Errorf("stamp cache record: %w", err)
	}
	return nil
}

func (b *fileBackend) delete(_ context.Context, key string) (bool, error) {
	err := os.Remove(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *fileBackend) scan(ctx context.Context, fn func(meta) error) error {
	dirEntries, err := os.ReadDir(b.dir)
	if err != nil {
		return fmt.Errorf("list cache dir: %w", err)
	}
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// removed concurrently
			continue
		}
		m := meta{
			Key:       strings.TrimSuffix(name, recordExt),
			CreatedAt: info.ModTime(),
			Size:      info.Size(),
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func (b *fileBackend) close() error { return nil }
