// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package m3u

import "time"

// Default progress cadence: every 100 entries or every 500ms, whichever first.
const (
	DefaultProgressEvery  = 100
	DefaultProgressPeriod = 500 * time.Millisecond
)

// Progress is one progress report of a running parse.
type Progress struct {
	Percent int // 0..100
	Entries int // entries produced so far
}

// ProgressSink receives progress reports from the parsing goroutine. Report must
// not block.
type ProgressSink interface {
	Report(Progress)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(Progress)

func (f ProgressFunc) Report(p Progress) { f(p) }

// ChannelSink delivers progress into ch without blocking. When ch is full the
// oldest buffered report is dropped, so the last report sent (the final one) is
// always delivered. ch should have a buffer of at least one and a single producer.
func ChannelSink(ch chan Progress) ProgressSink {
	return ProgressFunc(func(p Progress) {
		select {
		case ch <- p:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- p:
		default:
		}
	})
}

// unknownSizeScale shapes the percent estimate when the source size is unknown.
const unknownSizeScale = 4 << 20

// progressTracker decides when to emit progress and computes the percentage.
type progressTracker struct {
	sink      ProgressSink
	total     int64
	every     int
	period    time.Duration
	now       func() time.Time
	lastAt    time.Time
	lastCount int
	lastPct   int
}

func newProgressTracker(sink ProgressSink, total int64, every int, period time.Duration, now func() time.Time) *progressTracker {
	if every <= 0 {
		every = DefaultProgressEvery
	}
	if period <= 0 {
		period = DefaultProgressPeriod
	}
	if now == nil {
		now = time.Now
	}
	return &progressTracker{sink: sink, total: total, every: every, period: period, now: now, lastAt: now()}
}

// percent maps consumed bytes to 0..100. Without a size hint it grows
// monotonically toward 99 and never reaches 100 before the final report.
func (t *progressTracker) percent(consumed int64) int {
	var p int
	if t.total > 0 {
		p = int(consumed * 100 / t.total)
		if p > 100 {
			p = 100
		}
	} else {
		p = int(consumed * 99 / (consumed + unknownSizeScale))
	}
	if p < t.lastPct {
		p = t.lastPct
	}
	return p
}

// maybeEmit reports progress if enough entries or time passed since the last report.
func (t *progressTracker) maybeEmit(consumed int64, entries int) {
	if t.sink == nil {
		return
	}
	now := t.now()
	if entries-t.lastCount < t.every && now.Sub(t.lastAt) < t.period {
		return
	}
	pct := t.percent(consumed)
	t.sink.Report(Progress{Percent: pct, Entries: entries})
	t.lastAt = now
	t.lastCount = entries
	t.lastPct = pct
}

// final emits the closing (100, entries) report.
func (t *progressTracker) final(entries int) {
	if t.sink == nil {
		return
	}
	t.sink.Report(Progress{Percent: 100, Entries: entries})
}
