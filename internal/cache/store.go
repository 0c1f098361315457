// SPDX-License-Identifier: MIT

// Package cache persists parsed playlists keyed by source so unchanged
// playlists are not parsed again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ManuGH/m3uingest/internal/m3u"
)

// DefaultMaxAge is the Cleanup age used when the caller passes <= 0.
const DefaultMaxAge = 7 * 24 * time.Hour

// recordVersion is bumped whenever the serialized Record layout changes.
// Records of another version are treated as misses.
const recordVersion = 1

// errNotFound is returned by backends for absent keys.
var errNotFound = errors.New("cache: record not found")

// ErrHealthCheckUnsupported is returned by HealthCheck for stores without a
// remote backend to ping.
var ErrHealthCheckUnsupported = errors.New("cache: backend has no health check")

// Store persists parse results. Implementations never return errors from the
// playlist operations: corrupt or unreadable records are misses and failures
// are reported as false.
type Store interface {
	// Load returns the cached playlist only if the stored fingerprint equals fp.
	Load(ctx context.Context, fp Fingerprint) (*m3u.Playlist, bool)
	// Save stores p under fp's source, replacing any older record for it.
	Save(ctx context.Context, fp Fingerprint, p *m3u.Playlist) bool
	// Invalidate removes the record for source regardless of its fingerprint.
	Invalidate(ctx context.Context, source string) bool
	// Cleanup removes records older than maxAge and returns how many were removed.
	Cleanup(ctx context.Context, maxAge time.Duration) int
	// Trim removes the oldest records until at most maxEntries remain and
	// returns how many were removed. maxEntries <= 0 keeps everything.
	Trim(ctx context.Context, maxEntries int) int
	Stats(ctx context.Context) Stats
	// Info describes the record stored for source.
	Info(ctx context.Context, source string) (Info, bool)
	// Backend names the storage backend, e.g. "file" or "redis".
	Backend() string
	Close() error
}

// Fingerprint identifies one version of a source.
type Fingerprint struct {
	Source      string    `json:"source"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mod_time"`
	ContentHash string    `json:"content_hash,omitempty"`
}

// Equal reports whether both fingerprints describe the same source version.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Source == o.Source &&
		f.Size == o.Size &&
		f.ModTime.Equal(o.ModTime) &&
		f.ContentHash == o.ContentHash
}

// Key returns the storage key of the fingerprint's source.
func (f Fingerprint) Key() string { return KeyFor(f.Source) }

// String identifies this version of the source: its key, size, modification
// instant and content hash. Fingerprints that are Equal give the same string.
func (f Fingerprint) String() string {
	return f.Key() + "|" + strconv.FormatInt(f.Size, 10) + "|" +
		strconv.FormatInt(f.ModTime.UnixNano(), 10) + "|" + f.ContentHash
}

// KeyFor derives the stable storage key for a source path: the hex SHA-256 of
// its cleaned absolute form.
func KeyFor(source string) string {
	p, err := filepath.Abs(source)
	if err != nil {
		p = filepath.Clean(source)
	}
	sum := sha256.Sum256([]byte(p))
	return hex.EncodeToString(sum[:])
}

// Record is the persisted form of one cached playlist. Categories are not
// stored; they are rebuilt from the entry order on load.
type Record struct {
	Version     int          `json:"version"`
	Fingerprint Fingerprint  `json:"fingerprint"`
	Entries     []*m3u.Entry `json:"entries"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Stats summarizes a store.
type Stats struct {
	Backend    string        `json:"backend"`
	Entries    int           `json:"entries"`
	TotalBytes int64         `json:"total_bytes"`
	OldestAge  time.Duration `json:"oldest_age"`
}

// Info describes a single cached record.
type Info struct {
	Key         string        `json:"key"`
	Fingerprint Fingerprint   `json:"fingerprint"`
	CreatedAt   time.Time     `json:"created_at"`
	Age         time.Duration `json:"age"`
	Entries     int           `json:"entries"`
	Categories  int           `json:"categories"`
	SizeBytes   int64         `json:"size_bytes"`
}

// meta is the per-record bookkeeping a backend can report without decoding
// the payload.
type meta struct {
	Key       string
	Source    string
	CreatedAt time.Time
	Size      int64
}

// backend is the raw key/value layer under recordStore.
// healthChecker is implemented by stores and backends that can check their
// connection.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheck checks that the backend behind s is reachable. Stores without a
// remote backend return ErrHealthCheckUnsupported.
func HealthCheck(ctx context.Context, s Store) error {
	hc, ok := s.(healthChecker)
	if !ok {
		return ErrHealthCheckUnsupported
	}
	return hc.HealthCheck(ctx)
}

type backend interface {
	name() string
	get(ctx context.Context, key string) ([]byte, error)
	put(ctx context.Context, m meta, payload []byte) error
	delete(ctx context.Context, key string) (bool, error)
	scan(ctx context.Context, fn func(meta) error) error
	close() error
}
