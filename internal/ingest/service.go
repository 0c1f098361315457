// SPDX-License-Identifier: MIT

// Package ingest turns playlist files into parsed playlists, serving unchanged
// files from the cache and parsing everything else on the caller's goroutine.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ManuGH/m3uingest/internal/cache"
	xglog "github.com/ManuGH/m3uingest/internal/log"
	"github.com/ManuGH/m3uingest/internal/m3u"
	"github.com/ManuGH/m3uingest/internal/metrics"
	"github.com/ManuGH/m3uingest/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrSourceUnavailable is returned when the playlist file is missing or
// unreadable. No parse is started in that case.
var ErrSourceUnavailable = errors.New("playlist source unavailable")

const tracerName = "github.com/ManuGH/m3uingest/internal/ingest"

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	// Fs is the filesystem sources are read from; nil selects the OS.
	Fs afero.Fs
	// ChunkSize is the raw read size handed to the parser.
	ChunkSize int
	// ProgressEvery and ProgressPeriod set the progress cadence.
	ProgressEvery  int
	ProgressPeriod time.Duration
	// HashContent adds an xxhash of the file content to the fingerprint.
	HashContent bool
	// Workers bounds IngestAll concurrency; <= 0 selects GOMAXPROCS.
	Workers int
	Logger  *zerolog.Logger
}

// Service is the ingestion facade: cache lookup, parse on miss, save.
type Service struct {
	store  cache.Store
	fs     afero.Fs
	opts   Options
	logger zerolog.Logger
	tracer trace.Tracer
	group  singleflight.Group
	newID  func() string
}

// New creates a Service over store. A nil store disables caching.
func New(store cache.Store, opts Options) *Service {
	if store == nil {
		store = cache.NewNoopStore()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	logger := xglog.WithComponent("ingest")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Service{
		store:  store,
		fs:     opts.Fs,
		opts:   opts,
		logger: logger,
		tracer: telemetry.Tracer(tracerName),
		newID:  uuid.NewString,
	}
}

// Ingest returns the playlist for path.
//
// A cache hit reports (100, n) to sink once and returns with FromCache set.
// A miss parses the file on the calling goroutine with progress based on the
// raw bytes read, then saves the result unless it is empty, cancelled or
// failed. A missing or unreadable source yields an empty playlist and an error
// wrapping ErrSourceUnavailable. Concurrent ingests of the same source share
// one parse.
func (s *Service) Ingest(ctx context.Context, path string, sink m3u.ProgressSink) (m3u.Result, error) {
	if sink == nil {
		sink = m3u.ProgressFunc(func(m3u.Progress) {})
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}

	id := s.newID()
	ctx = xglog.ContextWithIngestID(ctx, id)
	ctx = xglog.ContextWithSource(ctx, abs)
	logger := xglog.WithContext(ctx, s.logger)

	ctx, span := s.tracer.Start(ctx, "ingest.playlist",
		trace.WithAttributes(telemetry.SourceAttributes(abs, id, 0)...))
	defer span.End()

	info, err := s.fs.Stat(abs)
	if err == nil && info.IsDir() {
		err = errors.New("is a directory")
	}
	if err != nil {
		return s.unavailable(span, logger, path, err)
	}
	span.SetAttributes(telemetry.SourceAttributes("", "", info.Size())...)

	fp, err := fingerprint(s.fs, abs, info, s.opts.HashContent)
	if err != nil {
		return s.unavailable(span, logger, path, err)
	}

	leader := false
	v, _, shared := s.group.Do(fp.String(), func() (any, error) {
		leader = true
		res, err := s.ingestOnce(ctx, logger, span, abs, info.Size(), fp, sink)
		return outcome{res: res, err: err}, nil
	})
	out := v.(outcome)

	if shared && !leader {
		if out.res.Cancelled && ctx.Err() == nil {
			// the leader was cancelled, this caller was not
			res, err := s.ingestOnce(ctx, logger, span, abs, info.Size(), fp, sink)
			return res, err
		}
		sink.Report(m3u.Progress{Percent: 100, Entries: out.res.Playlist.Len()})
		logger.Debug().
			Str(xglog.FieldEvent, "ingest.shared").
			Int(xglog.FieldEntries, out.res.Playlist.Len()).
			Msg("joined in-flight ingest")
	}
	return out.res, out.err
}

type outcome struct {
	res m3u.Result
	err error
}

func (s *Service) unavailable(span trace.Span, logger zerolog.Logger, path string, cause error) (m3u.Result, error) {
	err := fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, path, cause)
	metrics.RecordIngest(metrics.OutcomeUnavailable)
	telemetry.RecordError(span, err, metrics.OutcomeUnavailable)
	logger.Warn().Err(cause).
		Str(xglog.FieldEvent, "ingest.source_unavailable").
		Msg("playlist source unavailable")
	return m3u.Result{Playlist: m3u.EmptyPlaylist()}, err
}

func (s *Service) ingestOnce(ctx context.Context, logger zerolog.Logger, span trace.Span, abs string, size int64, fp cache.Fingerprint, sink m3u.ProgressSink) (m3u.Result, error) {
	backend := s.store.Backend()

	if p, ok := s.store.Load(ctx, fp); ok {
		span.SetAttributes(telemetry.CacheAttributes(backend, true)...)
		sink.Report(m3u.Progress{Percent: 100, Entries: p.Len()})
		metrics.RecordIngest(metrics.OutcomeCacheHit)
		logger.Info().
			Str(xglog.FieldEvent, "ingest.cache_hit").
			Str(xglog.FieldBackend, backend).
			Int(xglog.FieldEntries, p.Len()).
			Msg("playlist served from cache")
		return m3u.Result{Playlist: p, FromCache: true}, nil
	}
	span.SetAttributes(telemetry.CacheAttributes(backend, false)...)

	src, err := openSource(s.fs, abs)
	if err != nil {
		return s.unavailable(span, logger, abs, err)
	}
	defer func() { _ = src.Close() }()

	start := time.Now()
	res, buildErr := m3u.Build(ctx, src, m3u.BuildOptions{
		TotalSize:      size,
		ChunkSize:      s.opts.ChunkSize,
		Progress:       sink,
		ProgressEvery:  s.opts.ProgressEvery,
		ProgressPeriod: s.opts.ProgressPeriod,
		BytesRead:      src.raw.Count,
		Logger:         &logger,
	})
	elapsed := time.Since(start)

	span.SetAttributes(telemetry.ParseAttributes(string(res.Encoding), res.Playlist.Len(),
		res.Playlist.Categories.Len(), res.Skipped, src.raw.Count(), res.Cancelled)...)
	metrics.ObserveParse(elapsed, res.Playlist.Len())
	metrics.RecordLinesSkipped(res.SkipReasons)

	if res.MissingHeader {
		logger.Warn().
			Str(xglog.FieldEvent, "ingest.missing_header").
			Msg("playlist has no #EXTM3U header; parsed anyway")
	}

	evt := logger.Info().
		Str(xglog.FieldEncoding, string(res.Encoding)).
		Str("compression", src.compression).
		Int(xglog.FieldEntries, res.Playlist.Len()).
		Int(xglog.FieldCategories, res.Playlist.Categories.Len()).
		Int("skipped", res.Skipped).
		Int64(xglog.FieldDuration, elapsed.Milliseconds())

	switch {
	case buildErr != nil:
		err := fmt.Errorf("read playlist %s: %w", abs, buildErr)
		metrics.RecordIngest(metrics.OutcomeReadError)
		telemetry.RecordError(span, err, metrics.OutcomeReadError)
		evt.Err(buildErr).Str(xglog.FieldEvent, "ingest.read_error").Msg("playlist parse aborted by read error")
		return res, err
	case res.Cancelled:
		metrics.RecordIngest(metrics.OutcomeCancelled)
		evt.Str(xglog.FieldEvent, "ingest.cancelled").Msg("playlist parse cancelled")
		return res, nil
	}

	metrics.RecordIngest(metrics.OutcomeParsed)
	evt.Str(xglog.FieldEvent, "ingest.parsed").Msg("playlist parsed")

	if res.Playlist.Len() > 0 && !s.store.Save(ctx, fp, res.Playlist) {
		logger.Warn().
			Str(xglog.FieldEvent, "ingest.cache_save_failed").
			Str(xglog.FieldBackend, backend).
			Msg("parsed playlist was not cached")
	}
	return res, nil
}

// Invalidate drops the cached record of path.
func (s *Service) Invalidate(ctx context.Context, path string) bool {
	return s.store.Invalidate(ctx, path)
}

// Cleanup removes cache records older than maxAge; <= 0 selects the store default.
func (s *Service) Cleanup(ctx context.Context, maxAge time.Duration) int {
	return s.store.Cleanup(ctx, maxAge)
}

// Trim drops the oldest cache records beyond maxEntries; <= 0 keeps all.
func (s *Service) Trim(ctx context.Context, maxEntries int) int {
	return s.store.Trim(ctx, maxEntries)
}

// HealthCheck checks that a remote cache backend is reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	return cache.HealthCheck(ctx, s.store)
}

// Stats summarizes the cache.
func (s *Service) Stats(ctx context.Context) cache.Stats {
	return s.store.Stats(ctx)
}

// Info describes the cached record of path.
func (s *Service) Info(ctx context.Context, path string) (cache.Info, bool) {
	return s.store.Info(ctx, path)
}

// FileResult is the outcome of one file in IngestAll.
type FileResult struct {
	Path   string
	Result m3u.Result
	Err    error
}

// IngestAll ingests paths concurrently, at most Options.Workers at a time.
// sinkFor may be nil; results keep the order of paths. A failing file does
// not stop the others.
func (s *Service) IngestAll(ctx context.Context, paths []string, sinkFor func(path string) m3u.ProgressSink) []FileResult {
	results := make([]FileResult, len(paths))

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i, p := range paths {
		g.Go(func() error {
			var sink m3u.ProgressSink
			if sinkFor != nil {
				sink = sinkFor(p)
			}
			res, err := s.Ingest(ctx, p, sink)
			results[i] = FileResult{Path: p, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
