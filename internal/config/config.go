// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the m3uingest configuration from defaults, an optional
// strict YAML file and environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Cache backends selectable via cache.backend.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Backends lists every supported cache backend.
var Backends = []string{BackendFile, BackendBadger, BackendSQLite, BackendRedis, BackendMemory, BackendNone}

// Defaults
const (
	DefaultCacheMaxAge          = 7 * 24 * time.Hour
	DefaultCleanupInterval      = time.Hour
	DefaultRedisAddr            = "localhost:6379"
	DefaultChunkSize            = 32 * 1024
	DefaultProgressEvery        = 100
	DefaultProgressPeriod       = 500 * time.Millisecond
	DefaultLogLevel             = "info"
	DefaultOTLPExporter         = "grpc"
	DefaultOTLPEndpoint         = "localhost:4317"
	DefaultSamplingRate         = 1.0
	defaultCacheDirName         = "m3uingest"
	defaultFallbackCacheDir     = ".m3uingest-cache"
	defaultTelemetryService     = "m3uingest"
	defaultTelemetryEnvironment = "production"
)

// AppConfig is the effective configuration after all sources are merged.
type AppConfig struct {
	Cache     CacheConfig     `yaml:"cache"`
	Parser    ParserConfig    `yaml:"parser"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// CacheConfig selects and tunes the playlist cache.
type CacheConfig struct {
	Backend         string        `yaml:"backend"`
	Dir             string        `yaml:"dir"`
	MaxAge          time.Duration `yaml:"max_age"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	// MaxEntries bounds the number of cached playlists; 0 means unbounded.
	MaxEntries int         `yaml:"max_entries"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig holds the connection settings of the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ParserConfig tunes the streaming parser.
type ParserConfig struct {
	ChunkSize      int           `yaml:"chunk_size"`
	ProgressEvery  int           `yaml:"progress_every"`
	ProgressPeriod time.Duration `yaml:"progress_period"`
	// HashContent adds a content hash to the cache fingerprint.
	HashContent bool `yaml:"hash_content"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level string `yaml:"level"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	Environment  string  `yaml:"environment"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		Cache: CacheConfig{
			Backend:         BackendFile,
			Dir:             DefaultCacheDir(),
			MaxAge:          DefaultCacheMaxAge,
			CleanupInterval: DefaultCleanupInterval,
			Redis:           RedisConfig{Addr: DefaultRedisAddr},
		},
		Parser: ParserConfig{
			ChunkSize:      DefaultChunkSize,
			ProgressEvery:  DefaultProgressEvery,
			ProgressPeriod: DefaultProgressPeriod,
		},
		Log: LogConfig{Level: DefaultLogLevel},
		Telemetry: TelemetryConfig{
			ServiceName:  defaultTelemetryService,
			Environment:  defaultTelemetryEnvironment,
			Exporter:     DefaultOTLPExporter,
			Endpoint:     DefaultOTLPEndpoint,
			SamplingRate: DefaultSamplingRate,
		},
	}
}

// DefaultCacheDir is the per-user cache directory, falling back to a
// directory below the working directory when the OS reports none.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, defaultCacheDirName)
	}
	return defaultFallbackCacheDir
}
