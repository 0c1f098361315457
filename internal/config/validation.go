// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"time"

	"github.com/ManuGH/m3uingest/internal/validate"
)

// maxChunkSize bounds parser.chunk_size.
const maxChunkSize = 64 << 20

// Validate checks a merged AppConfig. Failures wrap ErrInvalidConfig.
func Validate(cfg AppConfig) error {
	v := validate.New()

	// Cache
	v.OneOf("cache.backend", cfg.Cache.Backend, Backends)
	switch cfg.Cache.Backend {
	case BackendFile, BackendBadger, BackendSQLite:
		v.Directory("cache.dir", cfg.Cache.Dir, false)
	case BackendRedis:
		v.HostPort("cache.redis.addr", cfg.Cache.Redis.Addr)
		v.NonNegative("cache.redis.db", cfg.Cache.Redis.DB)
	}
	v.MinDuration("cache.max_age", cfg.Cache.MaxAge, time.Second)
	// zero disables periodic cleanup
	v.MinDuration("cache.cleanup_interval", cfg.Cache.CleanupInterval, 0)
	v.NonNegative("cache.max_entries", cfg.Cache.MaxEntries)

	// Parser
	v.Range("parser.chunk_size", cfg.Parser.ChunkSize, 1, maxChunkSize)
	v.Positive("parser.progress_every", cfg.Parser.ProgressEvery)
	v.MinDuration("parser.progress_period", cfg.Parser.ProgressPeriod, 0)

	// Logging
	v.LogLevel("log.level", cfg.Log.Level)

	// Telemetry (only when enabled)
	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.HostPort("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.Fraction("telemetry.sampling_rate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
