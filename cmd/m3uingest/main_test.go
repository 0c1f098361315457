// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ManuGH/m3uingest/internal/cache"
	"github.com/ManuGH/m3uingest/internal/version"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="one" group-title="News",News One
http://example.com/news1
#EXTINF:-1 tvg-id="two" group-title="News",News Two
http://example.com/news2
#EXTINF:-1 tvg-id="three" group-title="Sports",Sports One
http://example.com/sports1
`

// isolate points the cache at a fresh directory and quiets logging.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("M3UINGEST_CACHE_BACKEND", "file")
	t.Setenv("M3UINGEST_CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func writePlaylist(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "channels.m3u")
	require.NoError(t, os.WriteFile(path, []byte(samplePlaylist), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestParse_JSON(t *testing.T) {
	dir := isolate(t)
	path := writePlaylist(t, dir)

	code, out, errOut := execute(t, "parse", "--json", path)
	require.Equal(t, 0, code, errOut)

	var got []fileSummary
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, path, got[0].Path)
	assert.Equal(t, 3, got[0].Entries)
	assert.False(t, got[0].FromCache)
	assert.Equal(t, []categorySummary{{Name: "News", Entries: 2}, {Name: "Sports", Entries: 1}}, got[0].Categories)

	// second run is served from the cache
	code, out, errOut = execute(t, "parse", "--json", path)
	require.Equal(t, 0, code, errOut)
	got = nil
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.True(t, got[0].FromCache)
	assert.Equal(t, 3, got[0].Entries)
}

func TestParse_TextSummaryAndProgress(t *testing.T) {
	dir := isolate(t)
	path := writePlaylist(t, dir)

	code, out, errOut := execute(t, "parse", "--no-cache", path)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "3 entries in 2 categories (parsed)")
	assert.Contains(t, out, "News")
	assert.Contains(t, errOut, "100%")
}

func TestParse_MissingFileFails(t *testing.T) {
	dir := isolate(t)
	good := writePlaylist(t, dir)
	missing := filepath.Join(dir, "missing.m3u")

	code, out, errOut := execute(t, "parse", "-q", good, missing)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "3 entries")
	assert.Contains(t, out, "missing.m3u: error:")
	assert.Contains(t, errOut, "1 of 2 playlists failed")
}

func TestCache_StatsInfoInvalidate(t *testing.T) {
	dir := isolate(t)
	path := writePlaylist(t, dir)

	code, _, errOut := execute(t, "parse", "-q", path)
	require.Equal(t, 0, code, errOut)

	code, out, errOut := execute(t, "cache", "stats", "--json")
	require.Equal(t, 0, code, errOut)
	var st cache.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "file", st.Backend)
	assert.Equal(t, 1, st.Entries)

	code, out, errOut = execute(t, "cache", "info", "--json", path)
	require.Equal(t, 0, code, errOut)
	var info cache.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, 3, info.Entries)
	assert.Equal(t, 2, info.Categories)
	assert.Equal(t, path, info.Fingerprint.Source)

	code, out, _ = execute(t, "cache", "invalidate", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "invalidated")

	code, _, errOut = execute(t, "cache", "info", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not cached")
}

func TestCache_VerifyNeedsSQLiteOrRedis(t *testing.T) {
	isolate(t)
	code, _, errOut := execute(t, "cache", "verify")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "sqlite")
	assert.Contains(t, errOut, "redis")
}

func TestCache_VerifyRedis(t *testing.T) {
	isolate(t)
	mr := miniredis.RunT(t)
	t.Setenv("M3UINGEST_CACHE_BACKEND", "redis")
	t.Setenv("M3UINGEST_REDIS_ADDR", mr.Addr())

	code, out, errOut := execute(t, "cache", "verify")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "redis "+mr.Addr()+": ok\n", out)

	// an unreachable server fails the check
	mr.Close()
	code, _, errOut = execute(t, "cache", "verify")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "redis")
}

func TestCache_CleanupMaxEntries(t *testing.T) {
	dir := isolate(t)
	first := writePlaylist(t, dir)
	second := filepath.Join(dir, "more.m3u")
	require.NoError(t, os.WriteFile(second, []byte(samplePlaylist), 0o600))

	code, _, errOut := execute(t, "parse", "-q", first, second)
	require.Equal(t, 0, code, errOut)

	code, out, errOut := execute(t, "cache", "cleanup", "--max-entries", "1")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "removed 0 records older than")
	assert.Contains(t, out, "removed 1 records beyond the newest 1")

	code, out, errOut = execute(t, "cache", "stats", "--json")
	require.Equal(t, 0, code, errOut)
	var st cache.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, 1, st.Entries)
}

func TestExport_Category(t *testing.T) {
	dir := isolate(t)
	path := writePlaylist(t, dir)
	outPath := filepath.Join(dir, "news.m3u")

	code, _, errOut := execute(t, "export", "--category", "News", "-o", outPath, path)
	require.Equal(t, 0, code, errOut)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "#EXTM3U\n"))
	assert.Equal(t, 2, strings.Count(text, "#EXTINF:"))
	assert.NotContains(t, text, "sports1")

	code, _, errOut = execute(t, "export", "--category", "Movies", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `no category "Movies"`)
}

func TestVersion(t *testing.T) {
	// an invalid config must not matter to version
	t.Setenv("M3UINGEST_CACHE_BACKEND", "floppy")

	code, out, _ := execute(t, "version")
	require.Equal(t, 0, code)
	assert.Equal(t, "m3uingest "+version.String()+"\n", out)
}

func TestInvalidConfigFails(t *testing.T) {
	dir := isolate(t)
	path := writePlaylist(t, dir)
	t.Setenv("M3UINGEST_CACHE_BACKEND", "floppy")

	code, _, errOut := execute(t, "parse", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "load configuration")
}
