// SPDX-License-Identifier: MIT

// Package sqlite opens the pure-Go SQLite databases used by the cache and
// checks them for corruption.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Config tunes a connection pool.
type Config struct {
	// BusyTimeout is how long a connection waits on a locked database.
	BusyTimeout time.Duration
	// MaxOpenConns bounds the pool. WAL allows readers next to one writer.
	MaxOpenConns int
	// ReadOnly opens the file without write access and skips WAL setup.
	ReadOnly bool
	// Schema, when set, is executed once after the pool is up.
	Schema string
}

// DefaultConfig returns the configuration used by the playlist cache.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

// dsn renders path and the per-connection pragmas. _pragma parameters are
// applied by the driver to every connection in the pool.
func (c Config) dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	if c.ReadOnly {
		q.Set("mode", "ro")
	} else {
		q.Add("_pragma", "journal_mode(WAL)")
		q.Add("_pragma", "synchronous(NORMAL)")
	}
	return "file:" + path + "?" + q.Encode()
}

// Open creates the pool for path, verifies it with a ping and applies
// cfg.Schema.
func Open(path string, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", cfg.dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.BusyTimeout+time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", path, err)
	}
	if cfg.Schema != "" {
		if _, err := db.ExecContext(ctx, cfg.Schema); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: apply schema: %w", err)
		}
	}
	return db, nil
}
