// SPDX-License-Identifier: MIT

package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// maxDecodedRecord bounds the decompressed size of a record.
const maxDecodedRecord = 512 << 20

// encodeRecord serializes rec as brotli-compressed JSON.
func encodeRecord(rec *Record) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if err := json.NewEncoder(w).Encode(rec); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("encode cache record: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress cache record: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeRecord parses data written by encodeRecord. Any failure, including a
// version mismatch, means the record is unusable.
func decodeRecord(data []byte) (*Record, error) {
	r := io.LimitReader(brotli.NewReader(bytes.NewReader(data)), maxDecodedRecord)
	var rec Record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode cache record: %w", err)
	}
	if rec.Version != recordVersion {
		return nil, fmt.Errorf("decode cache record: version %d, want %d", rec.Version, recordVersion)
	}
	return &rec, nil
}
