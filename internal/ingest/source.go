// SPDX-License-Identifier: MIT

package ingest

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"
)

// Compression formats recognised by their magic bytes.
const (
	CompressionNone  = "none"
	CompressionGzip  = "gzip"
	CompressionBzip2 = "bzip2"
	CompressionXZ    = "xz"
)

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// countingReader counts the raw bytes read from the underlying file so
// progress reflects the on-disk size even when the content is decompressed.
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

func (c *countingReader) Count() int64 { return c.n.Load() }

// source is an opened playlist ready for the parser.
type source struct {
	io.Reader
	file        afero.File
	raw         *countingReader
	compression string
}

func (s *source) Close() error { return s.file.Close() }

// openSource opens path on fs and transparently decompresses gzip, bzip2 and
// xz content.
func openSource(fs afero.Fs, path string) (*source, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}

	raw := &countingReader{r: f}
	br := bufio.NewReader(raw)
	// a short peek only means the file is shorter than the longest magic
	magic, _ := br.Peek(len(xzMagic))

	src := &source{Reader: br, file: f, raw: raw, compression: CompressionNone}
	switch {
	case bytes.HasPrefix(magic, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		src.Reader, src.compression = zr, CompressionGzip
	case isBzip2(magic):
		src.Reader, src.compression = bzip2.NewReader(br), CompressionBzip2
	case bytes.HasPrefix(magic, xzMagic):
		xr, err := xz.NewReader(br)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("open xz stream: %w", err)
		}
		src.Reader, src.compression = xr, CompressionXZ
	}
	return src, nil
}

// isBzip2 reports whether magic starts a bzip2 stream: "BZh" followed by the
// block size digit.
func isBzip2(magic []byte) bool {
	return len(magic) > len(bzip2Magic) && bytes.HasPrefix(magic, bzip2Magic) &&
		magic[len(bzip2Magic)] >= '1' && magic[len(bzip2Magic)] <= '9'
}
