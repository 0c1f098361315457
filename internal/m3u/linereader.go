// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package m3u

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// DefaultChunkSize is the raw read size used by the line reader.
const DefaultChunkSize = 32 * 1024

var utf8BOMBytes = []byte("\uFEFF")

// LineReader turns a byte source into decoded, trimmed, non-empty lines, one raw
// chunk at a time. Chunk boundaries never split or duplicate a line.
// A LineReader is not safe for concurrent use.
type LineReader struct {
	src       io.Reader
	dec       *encoding.Decoder
	chunk     []byte
	carry     []byte // raw bytes the decoder could not consume yet
	dst       []byte
	buf       []byte // decoded trailing fragment without a newline yet
	bytesRead int64
	started   bool
	done      bool
}

// NewLineReader returns a reader decoding src with enc. chunkSize <= 0 selects
// DefaultChunkSize.
func NewLineReader(src io.Reader, enc Encoding, chunkSize int) *LineReader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	dstSize := chunkSize * 4
	if dstSize < 256 {
		dstSize = 256
	}
	return &LineReader{
		src:   src,
		dec:   enc.NewDecoder(),
		chunk: make([]byte, chunkSize),
		dst:   make([]byte, dstSize),
	}
}

// BytesRead returns the number of raw bytes consumed from the source.
func (r *LineReader) BytesRead() int64 { return r.bytesRead }

// ReadChunk reads one chunk from the source and returns the lines it completed.
// At end of stream the buffered fragment is flushed and io.EOF is returned
// together with any final lines. Other errors are returned as-is; lines decoded
// before the failure are still returned.
func (r *LineReader) ReadChunk() ([]string, error) {
	if r.done {
		return nil, io.EOF
	}

	n, readErr := r.src.Read(r.chunk)
	r.bytesRead += int64(n)
	atEOF := errors.Is(readErr, io.EOF)
	if readErr != nil && !atEOF {
		r.done = true
		return nil, fmt.Errorf("read playlist chunk: %w", readErr)
	}

	r.carry = append(r.carry, r.chunk[:n]...)
	decoded, err := r.decode(atEOF)
	if err != nil {
		r.done = true
		return nil, err
	}

	if !r.started && len(decoded) > 0 {
		r.started = true
		decoded = bytes.TrimPrefix(decoded, utf8BOMBytes)
	}

	r.buf = append(r.buf, decoded...)
	lines := r.splitComplete()

	if atEOF {
		r.done = true
		if last := bytes.TrimSpace(r.buf); len(last) > 0 {
			lines = append(lines, string(last))
		}
		r.buf = nil
		return lines, io.EOF
	}
	return lines, nil
}

// decode runs the carried raw bytes through the streaming decoder. Bytes that
// form an incomplete sequence stay in carry until more input arrives.
func (r *LineReader) decode(atEOF bool) ([]byte, error) {
	var out []byte
	for {
		nDst, nSrc, err := r.dec.Transform(r.dst, r.carry, atEOF)
		out = append(out, r.dst[:nDst]...)
		r.carry = r.carry[nSrc:]
		switch {
		case err == nil:
			return out, nil
		case errors.Is(err, transform.ErrShortDst):
			continue
		case errors.Is(err, transform.ErrShortSrc):
			if atEOF {
				// Unreachable for the x/text decoders used here; keep the
				// leftovers out of the output rather than looping.
				r.carry = nil
			}
			return out, nil
		default:
			return out, fmt.Errorf("decode playlist chunk: %w", err)
		}
	}
}

// splitComplete removes every newline-terminated line from buf and returns the
// trimmed, non-empty ones. The trailing fragment stays buffered.
func (r *LineReader) splitComplete() []string {
	var lines []string
	start := 0
	for {
		i := bytes.IndexByte(r.buf[start:], '\n')
		if i < 0 {
			break
		}
		if line := bytes.TrimSpace(r.buf[start : start+i]); len(line) > 0 {
			lines = append(lines, string(line))
		}
		start += i + 1
	}
	if start > 0 {
		r.buf = append(r.buf[:0], r.buf[start:]...)
	}
	return lines
}
