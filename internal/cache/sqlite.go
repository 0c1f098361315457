// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ManuGH/m3uingest/internal/persistence/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS playlist_cache (
	key        TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	size       INTEGER NOT NULL,
	payload    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS playlist_cache_created_at ON playlist_cache(created_at);
`

// sqliteBackend keeps records in a single table. created_at is stored as unix
// nanoseconds.
type sqliteBackend struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path in WAL mode and prepares the schema.
func NewSQLiteStore(path string) (Store, error) {
	cfg := sqlite.DefaultConfig()
	cfg.Schema = sqliteSchema
	db, err := sqlite.Open(path, cfg)
	if err != nil {
		return nil, err
	}
	return newRecordStore(&sqliteBackend{db: db}), nil
}

func (b *sqliteBackend) name() string { return "sqlite" }

func (b *sqliteBackend) get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := b.db.QueryRowContext(ctx, `SELECT payload FROM playlist_cache WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	return payload, err
}

func (b *sqliteBackend) put(ctx context.Context, m meta, payload []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO playlist_cache (key, source, created_at, size, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			source = excluded.source,
			created_at = excluded.created_at,
			size = excluded.size,
			payload = excluded.payload`,
		m.Key, m.Source, m.CreatedAt.UnixNano(), m.Size, payload)
	return err
}

func (b *sqliteBackend) delete(ctx context.Context, key string) (bool, error) {
	res, err := b.db.ExecContext(ctx, `DELETE FROM playlist_cache WHERE key = ?`, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (b *sqliteBackend) scan(ctx context.Context, fn func(meta) error) error {
	rows, err := b.db.QueryContext(ctx, `SELECT key, source, created_at, size FROM playlist_cache`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var metas []meta
	for rows.Next() {
		var (
			m       meta
			created int64
		)
		if err := rows.Scan(&m.Key, &m.Source, &created, &m.Size); err != nil {
			return err
		}
		m.CreatedAt = time.Unix(0, created)
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	// fn may delete rows; run it after the cursor is closed
	rows.Close()
	for _, m := range metas {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func (b *sqliteBackend) close() error { return b.db.Close() }
