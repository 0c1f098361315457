// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldIngestID = "ingest_id"
	FieldCacheKey = "cache_key"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldBackend   = "backend"

	// Source fields
	FieldSource   = "source"
	FieldSize     = "size"
	FieldEncoding = "encoding"

	// Parse fields
	FieldEntries    = "entries"
	FieldCategories = "categories"
	FieldLine       = "line"
	FieldReason     = "reason"
	FieldPercent    = "percent"
	FieldDuration   = "duration_ms"
)
