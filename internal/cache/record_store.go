// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	xglog "github.com/ManuGH/m3uingest/internal/log"
	"github.com/ManuGH/m3uingest/internal/m3u"
	"github.com/ManuGH/m3uingest/internal/metrics"
	"github.com/rs/zerolog"
)

// recordStore implements Store on top of a raw backend. It owns the codec,
// fingerprint matching, logging and metrics so backends stay small.
type recordStore struct {
	b      backend
	logger zerolog.Logger
	now    func() time.Time
}

func newRecordStore(b backend) *recordStore {
	return &recordStore{
		b:      b,
		logger: xglog.WithComponent("cache").With().Str(xglog.FieldBackend, b.name()).Logger(),
		now:    time.Now,
	}
}

func (s *recordStore) Load(ctx context.Context, fp Fingerprint) (*m3u.Playlist, bool) {
	key := fp.Key()
	data, err := s.b.get(ctx, key)
	if errors.Is(err, errNotFound) {
		metrics.RecordCacheOp("load", "miss")
		return nil, false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str(xglog.FieldCacheKey, key).Msg("cache read failed; treating as miss")
		metrics.RecordCacheOp("load", "error")
		return nil, false
	}

	rec, err := decodeRecord(data)
	if err != nil {
		s.logger.Warn().Err(err).
			Str(xglog.FieldEvent, "cache.corrupt").
			Str(xglog.FieldCacheKey, key).
			Msg("discarding unreadable cache record")
		metrics.RecordCacheOp("load", "corrupt")
		if _, derr := s.b.delete(ctx, key); derr != nil {
			s.logger.Debug().Err(derr).Str(xglog.FieldCacheKey, key).Msg("delete corrupt record")
		}
		return nil, false
	}

	if !rec.Fingerprint.Equal(fp) {
		s.logger.Debug().
			Str(xglog.FieldEvent, "cache.stale").
			Str(xglog.FieldCacheKey, key).
			Str(xglog.FieldSource, fp.Source).
			Msg("cached record does not match source")
		metrics.RecordCacheOp("load", "stale")
		return nil, false
	}

	metrics.RecordCacheOp("load", "hit")
	return m3u.NewPlaylist(rec.Entries), true
}

func (s *recordStore) Save(ctx context.Context, fp Fingerprint, p *m3u.Playlist) bool {
	if p == nil {
		return false
	}
	rec := &Record{
		Version:     recordVersion,
		Fingerprint: fp,
		Entries:     p.Entries,
		CreatedAt:   s.now().UTC(),
	}
	data, err := encodeRecord(rec)
	if err != nil {
		s.logger.Warn().Err(err).Str(xglog.FieldSource, fp.Source).Msg("cache encode failed")
		metrics.RecordCacheOp("save", "error")
		return false
	}

	m := meta{Key: fp.Key(), Source: fp.Source, CreatedAt: rec.CreatedAt, Size: int64(len(data))}
	if err := s.b.put(ctx, m, data); err != nil {
		s.logger.Warn().Err(err).
			Str(xglog.FieldCacheKey, m.Key).
			Str(xglog.FieldSource, fp.Source).
			Msg("cache write failed")
		metrics.RecordCacheOp("save", "error")
		return false
	}

	s.logger.Debug().
		Str(xglog.FieldEvent, "cache.saved").
		Str(xglog.FieldCacheKey, m.Key).
		Int(xglog.FieldEntries, len(p.Entries)).
		Int64(xglog.FieldSize, m.Size).
		Msg("playlist cached")
	metrics.RecordCacheOp("save", "ok")
	return true
}

func (s *recordStore) Invalidate(ctx context.Context, source string) bool {
	key := KeyFor(source)
	removed, err := s.b.delete(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str(xglog.FieldCacheKey, key).Msg("cache invalidate failed")
		metrics.RecordCacheOp("invalidate", "error")
		return false
	}
	if removed {
		s.logger.Info().
			Str(xglog.FieldEvent, "cache.invalidated").
			Str(xglog.FieldSource, source).
			Msg("cache record invalidated")
		metrics.RecordCacheOp("invalidate", "ok")
	} else {
		metrics.RecordCacheOp("invalidate", "miss")
	}
	return removed
}

func (s *recordStore) Cleanup(ctx context.Context, maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	cutoff := s.now().Add(-maxAge)

	var expired []string
	err := s.b.scan(ctx, func(m meta) error {
		if m.CreatedAt.Before(cutoff) {
			expired = append(expired, m.Key)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache scan failed during cleanup")
		metrics.RecordCacheOp("cleanup", "error")
	}

	removed := 0
	for _, key := range expired {
		ok, err := s.b.delete(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Str(xglog.FieldCacheKey, key).Msg("cache cleanup delete failed")
			continue
		}
		if ok {
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info().
			Str(xglog.FieldEvent, "cache.cleanup").
			Int("removed", removed).
			Dur("max_age", maxAge).
			Msg("removed expired cache records")
	}
	if err == nil {
		metrics.RecordCacheOp("cleanup", "ok")
	}
	return removed
}

func (s *recordStore) Trim(ctx context.Context, maxEntries int) int {
	if maxEntries <= 0 {
		return 0
	}

	var all []meta
	if err := s.b.scan(ctx, func(m meta) error {
		all = append(all, m)
		return nil
	}); err != nil {
		s.logger.Warn().Err(err).Msg("cache scan failed during trim")
		metrics.RecordCacheOp("trim", "error")
		return 0
	}
	if len(all) <= maxEntries {
		metrics.RecordCacheOp("trim", "ok")
		return 0
	}

	// newest first; ties keep a stable order by key
	slices.SortFunc(all, func(a, b meta) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})

	removed := 0
	for _, m := range all[maxEntries:] {
		ok, err := s.b.delete(ctx, m.Key)
		if err != nil {
			s.logger.Warn().Err(err).Str(xglog.FieldCacheKey, m.Key).Msg("cache trim delete failed")
			continue
		}
		if ok {
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info().
			Str(xglog.FieldEvent, "cache.trim").
			Int("removed", removed).
			Int("max_entries", maxEntries).
			Msg("removed oldest cache records")
	}
	metrics.RecordCacheOp("trim", "ok")
	return removed
}

func (s *recordStore) Stats(ctx context.Context) Stats {
	st := Stats{Backend: s.b.name()}
	now := s.now()
	err := s.b.scan(ctx, func(m meta) error {
		st.Entries++
		st.TotalBytes += m.Size
		if age := now.Sub(m.CreatedAt); age > st.OldestAge {
			st.OldestAge = age
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("cache scan failed during stats")
	}
	metrics.SetCacheEntries(st.Backend, st.Entries)
	return st
}

func (s *recordStore) Info(ctx context.Context, source string) (Info, bool) {
	key := KeyFor(source)
	data, err := s.b.get(ctx, key)
	if err != nil {
		if !errors.Is(err, errNotFound) {
			s.logger.Warn().Err(err).Str(xglog.FieldCacheKey, key).Msg("cache read failed")
		}
		return Info{}, false
	}
	rec, err := decodeRecord(data)
	if err != nil {
		s.logger.Warn().Err(err).Str(xglog.FieldCacheKey, key).Msg("unreadable cache record")
		return Info{}, false
	}
	return Info{
		Key:         key,
		Fingerprint: rec.Fingerprint,
		CreatedAt:   rec.CreatedAt,
		Age:         s.now().Sub(rec.CreatedAt),
		Entries:     len(rec.Entries),
		Categories:  m3u.NewPlaylist(rec.Entries).Categories.Len(),
		SizeBytes:   int64(len(data)),
	}, true
}

func (s *recordStore) Backend() string { return s.b.name() }

func (s *recordStore) HealthCheck(ctx context.Context) error {
	hc, ok := s.b.(healthChecker)
	if !ok {
		return ErrHealthCheckUnsupported
	}
	return hc.HealthCheck(ctx)
}

func (s *recordStore) Close() error { return s.b.close() }
