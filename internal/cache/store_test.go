// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/m3uingest/internal/m3u"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturePlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="c1" tvg-logo="http://logo/1.png" group-title="News",Channel One
http://example.com/1
#EXTINF:-1,No Attrs Channel
http://example.com/2
#EXTINF:-1 tvg-type="movie" group-title="Films",The Matrix (1999)
http://example.com/3
#EXTINF:-1 group-title="News",Channel Two
http://example.com/4
`

var playlistCmpOpts = cmp.Options{
	cmp.AllowUnexported(m3u.Attributes{}, m3u.Categories{}),
	cmpopts.EquateEmpty(),
}

func fixture(t *testing.T) *m3u.Playlist {
	t.Helper()
	res, err := m3u.Build(context.Background(), strings.NewReader(fixturePlaylist), m3u.BuildOptions{})
	require.NoError(t, err)
	require.Equal(t, 4, res.Playlist.Len())
	return res.Playlist
}

func fingerprint(source string, size int64, mod time.Time) Fingerprint {
	return Fingerprint{Source: source, Size: size, ModTime: mod}
}

// storeFactories lists every persistent backend; each test gets a fresh store.
func storeFactories() map[string]func(t *testing.T) *recordStore {
	return map[string]func(t *testing.T) *recordStore{
		"file": func(t *testing.T) *recordStore {
			s, err := NewFileStore(t.TempDir())
			require.NoError(t, err)
			return s.(*recordStore)
		},
		"badger": func(t *testing.T) *recordStore {
			s, err := NewBadgerStore(t.TempDir())
			require.NoError(t, err)
			return s.(*recordStore)
		},
		"sqlite": func(t *testing.T) *recordStore {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.sqlite"))
			require.NoError(t, err)
			return s.(*recordStore)
		},
		"redis": func(t *testing.T) *recordStore {
			_, s := setupMiniRedis(t)
			return s
		},
		"memory": func(t *testing.T) *recordStore {
			return NewMemoryStore().(*recordStore)
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s *recordStore)) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			fn(t, s)
		})
	}
}

func TestStore_MissOnEmpty(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *recordStore) {
		ctx := context.Background()
		_, ok := s.Load(ctx, fingerprint("/playlists/a.m3u", 10, time.Unix(100, 0)))
		assert.False(t, ok)

		_, ok = s.Info(ctx, "/playlists/a.m3u")
		assert.False(t, ok)
		assert.Equal(t, 0, s.Stats(ctx).Entries)
	})
}

func TestStore_RoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *recordStore) {
		ctx := context.Background()
		p := fixture(t)
		fp := fingerprint("/playlists/a.m3u", 1234, time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC))

		require.True(t, s.Save(ctx, fp, p))

		got, ok := s.Load(ctx, fp)
		require.True(t, ok)
		if diff := cmp.Diff(p, got, playlistCmpOpts); diff != "" {
			t.Fatalf("cached playlist differs (-saved +loaded):\n%s", diff)
		}

		// categories reference the loaded entry list
		assert.Same(t, got.Entries[0], got.Categories.Entries("News")[0])
		assert.Equal(t, []string{"News", m3u.DefaultGroup, "Films"}, got.Categories.Names())
	})
}

func TestStore_StaleFingerprintIsMiss(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *recordStore) {
		ctx := context.Background()
		p := fixture(t)
		mod := time.Unix(1700000000, 0)
		f1 := fingerprint("/playlists/a.m3u", 100, mod)
		require.True(t, s.Save(ctx, f1, p))

		for name, f2 := range map[string]Fingerprint{
			"size":    fingerprint("/playlists/a.m3u", 101, mod),
			"mtime":   fingerprint("/playlists/a.m3u", 100, mod.Add(time.Second)),
			"hash":    {Source: "/playlists/a.m3u", Size: 100, ModTime: mod, ContentHash: "abc"},
			"unknown": fingerprint("/playlists/b.m3u", 100, mod),
		} {
			_, ok := s.Load(ctx, f2)
			assert.False(t, ok, name)
		}

		// a stale record is overwritten by the next save for the source
		f2 := fingerprint("/playlists/a.m3u", 101, mod)
		require.True(t, s.Save(ctx, f2, p))
		_, ok := s.Load(ctx, f2)
		assert.True(t, ok)
		_, ok = s.Load(ctx, f1)
		assert.False(t, ok)
		assert.Equal(t, 1, s.Stats(ctx).Entries)
	})
}

func TestStore_Invalidate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *recordStore) {
		ctx := context.Background()
		fp := fingerprint("/playlists/a.m3u", 100, time.Unix(1, 0))
		require.True(t, s.Save(ctx, fp, fixture(t)))

		assert.True(t, s.Invalidate(ctx, "/playlists/a.m3u"))
		_, ok := s.Load(ctx, fp)
		assert.False(t, ok)
		assert.False(t, s.Invalidate(ctx, "/playlists/a.m3u"), "second invalidate finds nothing")
	})
}

func TestStore_CleanupAndStats(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *recordStore) {
		ctx := context.Background()
		p := fixture(t)
		now := time.Now().Truncate(time.Second)

		s.now = func() time.Time { return now.Add(-10 * 24 * time.Hour) }
		require.True(t, s.Save(ctx, fingerprint("/playlists/old.m3u", 1, now), p))
		s.now = func() time.Time { return now.Add(-time.Hour) }
		require.True(t, s.Save(ctx, fingerprint("/playlists/new.m3u", 1, now), p))
		s.now = func() time.Time { return now }

		st := s.Stats(ctx)
		assert.Equal(t, 2, st.Entries)
		assert.Positive(t, st.TotalBytes)
		assert.InDelta(t, float64(10*24*time.Hour), float64(st.OldestAge), float64(2*time.Second))

		info, ok := s.Info(ctx, "/playlists/new.m3u")
		require.True(t, ok)
		assert.Equal(t, 4, info.Entries)
		assert.Equal(t, 3, info.Categories)
		assert.Equal(t, KeyFor("/playlists/new.m3u"), info.Key)
		assert.Equal(t, "/playlists/new.m3u", info.Fingerprint.Source)
		assert.InDelta(t, float64(time.Hour), float64(info.Age), float64(2*time.Second))

		// default max age is seven days
		assert.Equal(t, 1, s.Cleanup(ctx, 0))
		_, ok = s.Info(ctx, "/playlists/old.m3u")
		assert.False(t, ok)

		assert.Equal(t, 0, s.Cleanup(ctx, 2*time.Hour))
		assert.Equal(t, 1, s.Cleanup(ctx, 30*time.Minute))
		assert.Equal(t, 0, s.Stats(ctx).Entries)
	})
}

func TestStore_TrimKeepsNewest(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *recordStore) {
		ctx := context.Background()
		p := fixture(t)
		now := time.Now().Truncate(time.Second)

		for i, name := range []string{"oldest", "middle", "newest"} {
			s.now = func() time.Time { return now.Add(time.Duration(i-3) * time.Hour) }
			require.True(t, s.Save(ctx, fingerprint("/playlists/"+name+".m3u", 1, now), p))
		}
		s.now = func() time.Time { return now }

		assert.Equal(t, 0, s.Trim(ctx, 0), "zero disables the bound")
		assert.Equal(t, 0, s.Trim(ctx, 3))
		assert.Equal(t, 1, s.Trim(ctx, 2))

		_, ok := s.Info(ctx, "/playlists/oldest.m3u")
		assert.False(t, ok)
		for _, name := range []string{"middle", "newest"} {
			_, ok := s.Info(ctx, "/playlists/"+name+".m3u")
			assert.True(t, ok, name)
		}

		assert.Equal(t, 1, s.Trim(ctx, 1))
		_, ok = s.Info(ctx, "/playlists/newest.m3u")
		assert.True(t, ok)
		assert.Equal(t, 1, s.Stats(ctx).Entries)
	})
}

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()
	assert.ErrorIs(t, HealthCheck(ctx, NewMemoryStore()), ErrHealthCheckUnsupported)
	assert.ErrorIs(t, HealthCheck(ctx, NewNoopStore()), ErrHealthCheckUnsupported)

	mr, s := setupMiniRedis(t)
	defer s.Close()
	require.NoError(t, HealthCheck(ctx, s))
	mr.Close()
	assert.Error(t, HealthCheck(ctx, s))
}

func TestStore_CorruptRecordIsMiss(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *recordStore) {
		ctx := context.Background()
		fp := fingerprint("/playlists/a.m3u", 100, time.Unix(1, 0))
		m := meta{Key: fp.Key(), Source: fp.Source, CreatedAt: time.Now(), Size: 9}
		require.NoError(t, s.b.put(ctx, m, []byte("not-a-record")))

		_, ok := s.Load(ctx, fp)
		assert.False(t, ok)

		// the unreadable record was dropped
		_, err := s.b.get(ctx, fp.Key())
		assert.ErrorIs(t, err, errNotFound)
	})
}

func TestStore_SaveNil(t *testing.T) {
	s := NewMemoryStore()
	assert.False(t, s.Save(context.Background(), fingerprint("/a", 1, time.Unix(1, 0)), nil))
}

func TestNoopStore(t *testing.T) {
	ctx := context.Background()
	s := NewNoopStore()
	fp := fingerprint("/a", 1, time.Unix(1, 0))

	assert.False(t, s.Save(ctx, fp, fixture(t)))
	_, ok := s.Load(ctx, fp)
	assert.False(t, ok)
	assert.False(t, s.Invalidate(ctx, "/a"))
	assert.Equal(t, 0, s.Cleanup(ctx, 0))
	assert.Equal(t, 0, s.Trim(ctx, 1))
	assert.Equal(t, Stats{Backend: "none"}, s.Stats(ctx))
	assert.NoError(t, s.Close())
}

func TestKeyFor(t *testing.T) {
	a := KeyFor("/playlists/a.m3u")
	assert.Len(t, a, 64)
	assert.Equal(t, a, KeyFor("/playlists/./sub/../a.m3u"))
	assert.NotEqual(t, a, KeyFor("/playlists/b.m3u"))

	abs, err := filepath.Abs("relative.m3u")
	require.NoError(t, err)
	assert.Equal(t, KeyFor(abs), KeyFor("relative.m3u"))
}

func TestFingerprint_EqualUsesInstant(t *testing.T) {
	mod := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	a := fingerprint("/a", 1, mod)
	b := fingerprint("/a", 1, mod.In(time.FixedZone("CET", 3600)))
	assert.True(t, a.Equal(b))
}

func TestFingerprint_StringSeparatesVersions(t *testing.T) {
	mod := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	base := fingerprint("/a", 1, mod)

	same := fingerprint("/a", 1, mod.In(time.FixedZone("CET", 3600)))
	assert.Equal(t, base.String(), same.String())
	assert.True(t, strings.HasPrefix(base.String(), base.Key()+"|"))

	hashed := base
	hashed.ContentHash = "beef"
	for name, other := range map[string]Fingerprint{
		"size":   fingerprint("/a", 2, mod),
		"mtime":  fingerprint("/a", 1, mod.Add(time.Second)),
		"hash":   hashed,
		"source": fingerprint("/b", 1, mod),
	} {
		assert.NotEqual(t, base.String(), other.String(), name)
	}
}
