// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/m3uingest/internal/validate"
)

// isolate points every directory-based setting at a temp dir so validation
// never touches the real user cache directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvCacheDir, dir)
	t.Setenv(EnvLogLevel, "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := NewLoader("").Load()
	if err != nil {
		t.Fatalf("expected defaults to validate, got: %v", err)
	}

	if cfg.Cache.Backend != BackendFile {
		t.Errorf("expected backend %s, got %s", BackendFile, cfg.Cache.Backend)
	}
	if cfg.Cache.Dir != dir {
		t.Errorf("expected cache dir %s, got %s", dir, cfg.Cache.Dir)
	}
	if cfg.Cache.MaxAge != DefaultCacheMaxAge {
		t.Errorf("expected max age %s, got %s", DefaultCacheMaxAge, cfg.Cache.MaxAge)
	}
	if cfg.Parser.ChunkSize != DefaultChunkSize {
		t.Errorf("expected chunk size %d, got %d", DefaultChunkSize, cfg.Parser.ChunkSize)
	}
	if cfg.Parser.ProgressEvery != DefaultProgressEvery || cfg.Parser.ProgressPeriod != DefaultProgressPeriod {
		t.Errorf("unexpected progress defaults: %+v", cfg.Parser)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("expected log level %s, got %s", DefaultLogLevel, cfg.Log.Level)
	}
	if cfg.Telemetry.Enabled {
		t.Error("telemetry must be disabled by default")
	}
}

// TestLoad_ValidMinimal tests that file values override defaults and
// unspecified keys keep their defaults.
func TestLoad_ValidMinimal(t *testing.T) {
	isolate(t)

	cfg, err := NewLoader(filepath.Join("testdata", "valid-minimal.yaml")).Load()
	if err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}

	if cfg.Cache.Backend != BackendBadger {
		t.Errorf("expected backend badger, got %s", cfg.Cache.Backend)
	}
	if cfg.Cache.MaxAge != 48*time.Hour {
		t.Errorf("expected max age 48h, got %s", cfg.Cache.MaxAge)
	}
	if cfg.Cache.CleanupInterval != DefaultCleanupInterval {
		t.Errorf("expected default cleanup interval, got %s", cfg.Cache.CleanupInterval)
	}
	if cfg.Parser.ChunkSize != 4096 || cfg.Parser.ProgressEvery != 25 {
		t.Errorf("unexpected parser config: %+v", cfg.Parser)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
}

func TestLoad_ValidFull(t *testing.T) {
	isolate(t)

	cfg, err := NewLoader(filepath.Join("testdata", "valid-full.yaml")).Load()
	if err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}

	want := RedisConfig{Addr: "cache.internal:6380", Password: "s3cret", DB: 2}
	if cfg.Cache.Redis != want {
		t.Errorf("expected redis %+v, got %+v", want, cfg.Cache.Redis)
	}
	if cfg.Cache.MaxEntries != 200 {
		t.Errorf("expected max_entries 200, got %d", cfg.Cache.MaxEntries)
	}
	if !cfg.Parser.HashContent || cfg.Parser.ProgressPeriod != time.Second {
		t.Errorf("unexpected parser config: %+v", cfg.Parser)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Exporter != "http" || cfg.Telemetry.SamplingRate != 0.5 {
		t.Errorf("unexpected telemetry config: %+v", cfg.Telemetry)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	t.Setenv(EnvCacheBackend, "Memory")
	t.Setenv(EnvChunkSize, "128")
	t.Setenv(EnvCacheMaxAge, "90m")
	t.Setenv(EnvCacheMaxEntries, "40")
	t.Setenv(EnvHashContent, "yes")
	t.Setenv(EnvLogLevel, "ERROR")

	loader := NewLoader(filepath.Join("testdata", "valid-minimal.yaml"))
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}

	if cfg.Cache.Backend != BackendMemory {
		t.Errorf("expected env backend memory, got %s", cfg.Cache.Backend)
	}
	if cfg.Parser.ChunkSize != 128 {
		t.Errorf("expected env chunk size 128, got %d", cfg.Parser.ChunkSize)
	}
	if cfg.Cache.MaxAge != 90*time.Minute {
		t.Errorf("expected env max age 90m, got %s", cfg.Cache.MaxAge)
	}
	if cfg.Cache.MaxEntries != 40 {
		t.Errorf("expected env max entries 40, got %d", cfg.Cache.MaxEntries)
	}
	if !cfg.Parser.HashContent {
		t.Error("expected hash content enabled from env")
	}
	if cfg.Log.Level != "error" {
		t.Errorf("expected normalized log level error, got %s", cfg.Log.Level)
	}
	// file value survives where env is silent
	if cfg.Parser.ProgressEvery != 25 {
		t.Errorf("expected file progress_every 25, got %d", cfg.Parser.ProgressEvery)
	}

	for _, key := range []string{EnvCacheBackend, EnvChunkSize, EnvRedisAddr, EnvOTLPEndpoint} {
		if _, ok := loader.ConsumedEnvKeys[key]; !ok {
			t.Errorf("expected %s to be tracked as consumed", key)
		}
	}
}

func TestLoad_ExpandsCacheDir(t *testing.T) {
	root := t.TempDir()
	t.Setenv("M3UINGEST_TEST_ROOT", root)
	t.Setenv(EnvCacheDir, "${M3UINGEST_TEST_ROOT}/nested")
	t.Setenv(EnvLogLevel, "")

	cfg, err := NewLoader("").Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(root, "nested"); cfg.Cache.Dir != want {
		t.Errorf("expected cache dir %s, got %s", want, cfg.Cache.Dir)
	}
}

// TestLoad_UnknownKeyFails tests that strict parsing rejects unknown fields.
func TestLoad_UnknownKeyFails(t *testing.T) {
	isolate(t)

	_, err := NewLoader(filepath.Join("testdata", "invalid-unknown-key.yaml")).Load()
	if err == nil {
		t.Fatal("expected error due to unknown key, got nil")
	}
	if !errors.Is(err, ErrUnknownConfigField) {
		t.Fatalf("expected ErrUnknownConfigField, got: %v", err)
	}
	if !strings.Contains(err.Error(), "unexpectedCacheKey") {
		t.Errorf("expected error to name the unknown key, got: %v", err)
	}
}

func TestLoad_InvalidTypeFails(t *testing.T) {
	isolate(t)

	_, err := NewLoader(filepath.Join("testdata", "invalid-type.yaml")).Load()
	if err == nil {
		t.Fatal("expected error due to wrong type, got nil")
	}
	if errors.Is(err, ErrUnknownConfigField) || errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected plain parse error, got: %v", err)
	}
}

func TestLoad_ValidationFails(t *testing.T) {
	isolate(t)

	_, err := NewLoader(filepath.Join("testdata", "invalid-validation.yaml")).Load()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got: %v", err)
	}

	var ve validate.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validate.ValidationError in chain, got %T", err)
	}
	fields := map[string]bool{}
	for _, e := range ve.Errors() {
		fields[e.Field] = true
	}
	for _, f := range []string{"cache.backend", "parser.chunk_size", "log.level"} {
		if !fields[f] {
			t.Errorf("expected validation failure for %s, got %v", f, ve.Errors())
		}
	}
}

func TestLoad_MultipleDocumentsFail(t *testing.T) {
	isolate(t)

	_, err := NewLoader(filepath.Join("testdata", "multi-document.yaml")).Load()
	if !errors.Is(err, ErrTrailingContent) {
		t.Fatalf("expected multiple documents error, got: %v", err)
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := NewLoader(filepath.Join("testdata", "empty.yaml")).Load()
	if err != nil {
		t.Fatalf("expected empty file to load, got: %v", err)
	}
	if cfg.Cache.Backend != BackendFile {
		t.Errorf("expected default backend, got %s", cfg.Cache.Backend)
	}
}

func TestLoad_RejectsNonYAML(t *testing.T) {
	_, err := NewLoader("config.toml").Load()
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format error, got: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
