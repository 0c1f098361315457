// SPDX-License-Identifier: MIT
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest outcomes.
const (
	OutcomeCacheHit    = "cache_hit"
	OutcomeParsed      = "parsed"
	OutcomeCancelled   = "cancelled"
	OutcomeUnavailable = "unavailable"
	OutcomeReadError   = "read_error"
)

var (
	ingestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3uingest_ingest_total",
		Help: "Playlist ingests by outcome",
	}, []string{"outcome"}) // outcome=cache_hit|parsed|cancelled|unavailable|read_error

	parseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "m3uingest_parse_duration_seconds",
		Help:    "Wall time of full playlist parses (cache misses only)",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	entriesParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "m3uingest_entries_parsed_total",
		Help: "Total number of playlist entries produced by the parser",
	})

	linesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "m3uingest_lines_skipped_total",
		Help: "Playlist lines skipped by the parser",
	}, []string{"reason"}) // reason=malformed-extinf|orphan-url
)

// RecordIngest counts one finished ingest.
func RecordIngest(outcome string) {
	ingestTotal.WithLabelValues(outcome).Inc()
}

// ObserveParse records a completed parse.
func ObserveParse(d time.Duration, entries int) {
	parseDuration.Observe(d.Seconds())
	entriesParsed.Add(float64(entries))
}

// RecordLinesSkipped adds skipped line counts keyed by reason.
func RecordLinesSkipped(reasons map[string]int) {
	for reason, n := range reasons {
		linesSkipped.WithLabelValues(reason).Add(float64(n))
	}
}
