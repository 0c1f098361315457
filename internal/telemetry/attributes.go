// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for consistent tracing across ingests.
const (
	// Source attributes
	SourcePathKey = "playlist.source"
	SourceSizeKey = "playlist.size_bytes"
	IngestIDKey   = "ingest.id"

	// Cache attributes
	CacheBackendKey = "cache.backend"
	CacheHitKey     = "cache.hit"

	// Parse attributes
	ParseEncodingKey   = "parse.encoding"
	ParseEntriesKey    = "parse.entries"
	ParseCategoriesKey = "parse.categories"
	ParseSkippedKey    = "parse.skipped_lines"
	ParseBytesKey      = "parse.bytes_read"
	ParseCancelledKey  = "parse.cancelled"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// SourceAttributes creates span attributes describing the ingested source.
// Empty values are omitted.
func SourceAttributes(path, ingestID string, size int64) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if path != "" {
		attrs = append(attrs, attribute.String(SourcePathKey, path))
	}
	if ingestID != "" {
		attrs = append(attrs, attribute.String(IngestIDKey, ingestID))
	}
	if size > 0 {
		attrs = append(attrs, attribute.Int64(SourceSizeKey, size))
	}
	return attrs
}

// CacheAttributes creates cache lookup span attributes.
func CacheAttributes(backend string, hit bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(CacheBackendKey, backend),
		attribute.Bool(CacheHitKey, hit),
	}
}

// ParseAttributes creates attributes summarizing a parse result.
func ParseAttributes(encoding string, entries, categories, skipped int, bytesRead int64, cancelled bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ParseEncodingKey, encoding),
		attribute.Int(ParseEntriesKey, entries),
		attribute.Int(ParseCategoriesKey, categories),
		attribute.Int(ParseSkippedKey, skipped),
		attribute.Int64(ParseBytesKey, bytesRead),
		attribute.Bool(ParseCancelledKey, cancelled),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

// RecordError marks span as failed with err.
func RecordError(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(ErrorAttributes(err, errorType)...)
}
