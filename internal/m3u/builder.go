// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package m3u implements the streaming M3U/M3U8 playlist parser: encoding
// detection, chunked line reading, per-line record parsing and the builder that
// assembles entries and the category index.
package m3u

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	xglog "github.com/ManuGH/m3uingest/internal/log"
	"github.com/rs/zerolog"
)

// headerSniffLines is how many leading non-empty lines are checked for #EXTM3U.
const headerSniffLines = 3

// BuildOptions configures a single Build call.
type BuildOptions struct {
	// TotalSize is the source size in bytes used for the progress percentage.
	// Zero or negative means unknown.
	TotalSize int64
	// ChunkSize is the raw read size; <= 0 selects DefaultChunkSize.
	ChunkSize int
	// Progress receives reports; nil disables reporting.
	Progress ProgressSink
	// ProgressEvery and ProgressPeriod override the emission cadence.
	ProgressEvery  int
	ProgressPeriod time.Duration
	// BytesRead, when set, replaces the reader's own byte count for progress.
	// Used when src is a decompressing wrapper around the measured source.
	BytesRead func() int64
	// Encoding forces a decoding instead of sniffing the source.
	Encoding Encoding
	// Logger overrides the component logger.
	Logger *zerolog.Logger
	// Now overrides the clock used for time-based progress.
	Now func() time.Time
}

// Result is the outcome of Build.
type Result struct {
	Playlist *Playlist
	// Cancelled marks a partial result; callers must not treat it as authoritative.
	Cancelled bool
	// MissingHeader is set when none of the leading lines is #EXTM3U.
	MissingHeader bool
	// FromCache is set by callers that served the playlist from a cache.
	FromCache bool
	Encoding  Encoding
	BytesRead int64
	Lines     int
	Skipped   int

	// SkipReasons counts skipped lines by Record.Reason.
	SkipReasons map[string]int
}

// Build parses src into a Playlist. It keeps no state between calls.
//
// Cancellation is cooperative: ctx is checked before and after every chunk read
// and a cancelled parse returns the entries accumulated so far with
// Result.Cancelled set. The returned error is non-nil only when the source
// fails mid-stream; the partial result is returned alongside it. Malformed
// lines are skipped and never reported as errors.
func Build(ctx context.Context, src io.Reader, opts BuildOptions) (Result, error) {
	logger := xglog.WithComponentFromContext(ctx, "m3u")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	enc := opts.Encoding
	if enc == "" {
		br := bufio.NewReaderSize(src, SampleSize)
		// Peek never consumes; a short or failing source just yields a short sample.
		sample, _ := br.Peek(SampleSize)
		enc = DetectEncoding(sample)
		src = br
	}

	lr := NewLineReader(src, enc, opts.ChunkSize)
	bytesRead := lr.BytesRead
	if opts.BytesRead != nil {
		bytesRead = opts.BytesRead
	}
	tracker := newProgressTracker(opts.Progress, opts.TotalSize, opts.ProgressEvery, opts.ProgressPeriod, opts.Now)

	res := Result{Playlist: EmptyPlaylist(), Encoding: enc}
	b := &builder{res: &res, logger: logger, tracker: tracker, bytesRead: bytesRead}

	var buildErr error
	for {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		lines, err := lr.ReadChunk()
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		for _, line := range lines {
			b.consume(line)
		}
		tracker.maybeEmit(bytesRead(), res.Playlist.Len())

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			buildErr = err
			logger.Warn().Err(err).
				Str(xglog.FieldEvent, "m3u.read_failed").
				Int(xglog.FieldEntries, res.Playlist.Len()).
				Msg("playlist source failed mid-stream; returning partial result")
			break
		}
	}

	if !b.sniffDone && !res.Cancelled {
		b.finishSniff()
	}
	res.BytesRead = lr.BytesRead()
	tracker.final(res.Playlist.Len())

	logger.Debug().
		Str(xglog.FieldEvent, "m3u.build_done").
		Str(xglog.FieldEncoding, string(enc)).
		Int(xglog.FieldEntries, res.Playlist.Len()).
		Int(xglog.FieldCategories, res.Playlist.Categories.Len()).
		Int("skipped", res.Skipped).
		Bool("cancelled", res.Cancelled).
		Msg("playlist built")

	return res, buildErr
}

type builder struct {
	res       *Result
	logger    zerolog.Logger
	tracker   *progressTracker
	bytesRead func() int64
	pending   *Header
	sniffed   int
	sniffDone bool
	hasHeader bool
}

func (b *builder) consume(line string) {
	b.res.Lines++
	if !b.sniffDone {
		if strings.HasPrefix(line, prefixExtM3U) {
			b.hasHeader = true
		}
		b.sniffed++
		if b.sniffed >= headerSniffLines || b.hasHeader {
			b.finishSniff()
		}
	}

	rec := ParseRecord(line, b.pending)
	switch rec.Kind {
	case KindHeader:
		b.pending = rec.Header
	case KindDirective:
	case KindEntry:
		b.pending = nil
		b.res.Playlist.append(rec.Entry)
		b.tracker.maybeEmit(b.bytesRead(), b.res.Playlist.Len())
	case KindSkip:
		b.pending = nil
		b.res.Skipped++
		if b.res.SkipReasons == nil {
			b.res.SkipReasons = make(map[string]int)
		}
		b.res.SkipReasons[rec.Reason]++
		b.logger.Debug().
			Str(xglog.FieldEvent, "m3u.line_skipped").
			Str(xglog.FieldReason, rec.Reason).
			Int(xglog.FieldLine, b.res.Lines).
			Msg("skipping playlist line")
	}
}

func (b *builder) finishSniff() {
	b.sniffDone = true
	if b.hasHeader || b.sniffed == 0 {
		return
	}
	b.res.MissingHeader = true
	b.logger.Warn().
		Str(xglog.FieldEvent, "m3u.missing_header").
		Msg("playlist does not start with #EXTM3U; it might not be a valid M3U playlist")
}
