// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables, highest precedence.
const (
	EnvCacheBackend         = "M3UINGEST_CACHE_BACKEND"
	EnvCacheDir             = "M3UINGEST_CACHE_DIR"
	EnvCacheMaxAge          = "M3UINGEST_CACHE_MAX_AGE"
	EnvCacheCleanupInterval = "M3UINGEST_CACHE_CLEANUP_INTERVAL"
	EnvCacheMaxEntries      = "M3UINGEST_CACHE_MAX_ENTRIES"
	EnvRedisAddr            = "M3UINGEST_REDIS_ADDR"
	EnvRedisPassword        = "M3UINGEST_REDIS_PASSWORD"
	EnvRedisDB              = "M3UINGEST_REDIS_DB"
	EnvChunkSize            = "M3UINGEST_CHUNK_SIZE"
	EnvProgressEvery        = "M3UINGEST_PROGRESS_EVERY"
	EnvProgressPeriod       = "M3UINGEST_PROGRESS_PERIOD"
	EnvHashContent          = "M3UINGEST_HASH_CONTENT"
	EnvLogLevel             = "LOG_LEVEL"
	EnvTelemetryEnabled     = "M3UINGEST_TELEMETRY_ENABLED"
	EnvOTLPExporter         = "M3UINGEST_OTLP_EXPORTER"
	EnvOTLPEndpoint         = "M3UINGEST_OTLP_ENDPOINT"
	EnvOTLPSamplingRate     = "M3UINGEST_OTLP_SAMPLING_RATE"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader. An empty configPath skips the
// file layer.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath:      configPath,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Load loads configuration with precedence: ENV > File > Defaults, then
// validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Default()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)

	if cfg.Cache.Dir != "" {
		cfg.Cache.Dir = expandPath(cfg.Cache.Dir)
		if abs, err := filepath.Abs(cfg.Cache.Dir); err == nil {
			cfg.Cache.Dir = abs
		}
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadFile decodes the YAML file at path over cfg with STRICT parsing.
// Unknown fields are fatal to prevent silent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %q (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrTrailingContent
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.Cache.Backend = l.envString(EnvCacheBackend, cfg.Cache.Backend)
	cfg.Cache.Dir = l.envString(EnvCacheDir, cfg.Cache.Dir)
	cfg.Cache.MaxAge = l.envDuration(EnvCacheMaxAge, cfg.Cache.MaxAge)
	cfg.Cache.CleanupInterval = l.envDuration(EnvCacheCleanupInterval, cfg.Cache.CleanupInterval)
	cfg.Cache.MaxEntries = l.envInt(EnvCacheMaxEntries, cfg.Cache.MaxEntries)
	cfg.Cache.Redis.Addr = l.envString(EnvRedisAddr, cfg.Cache.Redis.Addr)
	cfg.Cache.Redis.Password = l.envString(EnvRedisPassword, cfg.Cache.Redis.Password)
	cfg.Cache.Redis.DB = l.envInt(EnvRedisDB, cfg.Cache.Redis.DB)

	cfg.Parser.ChunkSize = l.envInt(EnvChunkSize, cfg.Parser.ChunkSize)
	cfg.Parser.ProgressEvery = l.envInt(EnvProgressEvery, cfg.Parser.ProgressEvery)
	cfg.Parser.ProgressPeriod = l.envDuration(EnvProgressPeriod, cfg.Parser.ProgressPeriod)
	cfg.Parser.HashContent = l.envBool(EnvHashContent, cfg.Parser.HashContent)

	cfg.Log.Level = l.envString(EnvLogLevel, cfg.Log.Level)

	cfg.Telemetry.Enabled = l.envBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvOTLPExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvOTLPEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvOTLPSamplingRate, cfg.Telemetry.SamplingRate)
}

// Wrapper methods for mechanical connection tracking

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}
