// SPDX-License-Identifier: MIT

package cache

import (
	"fmt"
	"path/filepath"

	"github.com/ManuGH/m3uingest/internal/config"
	xglog "github.com/ManuGH/m3uingest/internal/log"
)

// SQLitePath is the database file of the sqlite backend inside a cache dir.
func SQLitePath(dir string) string { return filepath.Join(dir, "cache.sqlite") }

// BadgerPath is the badger directory inside a cache dir.
func BadgerPath(dir string) string { return filepath.Join(dir, "badger") }

// Open returns the Store selected by cfg.Backend.
func Open(cfg config.CacheConfig) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case config.BackendFile, "":
		store, err = NewFileStore(cfg.Dir)
	case config.BackendBadger:
		store, err = NewBadgerStore(BadgerPath(cfg.Dir))
	case config.BackendSQLite:
		store, err = NewSQLiteStore(SQLitePath(cfg.Dir))
	case config.BackendRedis:
		store, err = NewRedisStore(RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case config.BackendMemory:
		store = NewMemoryStore()
	case config.BackendNone:
		store = NewNoopStore()
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	logger := xglog.WithComponent("cache")
	logger.Debug().
		Str(xglog.FieldBackend, cfg.Backend).
		Str("dir", cfg.Dir).
		Msg("cache store opened")
	return store, nil
}
