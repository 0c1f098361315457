// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package m3u

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// SampleSize is the number of leading bytes inspected by DetectEncoding.
const SampleSize = 1024

// Encoding identifies the text encoding of a playlist source.
type Encoding string

const (
	EncodingUTF8    Encoding = "utf-8"
	EncodingUTF8BOM Encoding = "utf-8-sig"
	EncodingUTF16   Encoding = "utf-16"
	EncodingUTF16LE Encoding = "utf-16le"
	EncodingUTF16BE Encoding = "utf-16be"
	EncodingLatin1  Encoding = "latin-1"
	EncodingCP1252  Encoding = "cp1252"
	EncodingISO8859 Encoding = "iso-8859-1"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// trialOrder is the priority list used when no byte-order mark is present.
var trialOrder = []Encoding{
	EncodingUTF8,
	EncodingUTF16,
	EncodingUTF16LE,
	EncodingUTF16BE,
	EncodingLatin1,
	EncodingCP1252,
	EncodingISO8859,
}

// textEncoding maps e to its x/text implementation. Unknown values fall back to UTF-8.
func (e Encoding) textEncoding() encoding.Encoding {
	switch e {
	case EncodingUTF8BOM:
		return unicode.UTF8BOM
	case EncodingUTF16, EncodingUTF16LE:
		// a BOM, if present, overrides the declared endianness and is consumed
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	case EncodingLatin1, EncodingISO8859:
		return charmap.ISO8859_1
	case EncodingCP1252:
		return charmap.Windows1252
	default:
		return unicode.UTF8
	}
}

// NewDecoder returns a fresh streaming decoder that substitutes U+FFFD for
// invalid input instead of failing.
func (e Encoding) NewDecoder() *encoding.Decoder {
	return e.textEncoding().NewDecoder()
}

// DetectEncoding chooses a decoding for a source from its leading bytes.
// It never fails: without a BOM or a plausible trial decode it returns UTF-8.
func DetectEncoding(sample []byte) Encoding {
	switch {
	case bytes.HasPrefix(sample, bomUTF16LE):
		return EncodingUTF16LE
	case bytes.HasPrefix(sample, bomUTF16BE):
		return EncodingUTF16BE
	case bytes.HasPrefix(sample, bomUTF8):
		return EncodingUTF8BOM
	}

	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}
	for _, enc := range trialOrder {
		text, ok := strictDecode(enc, sample)
		if !ok {
			continue
		}
		if bytes.Contains(text, []byte("#EXTM3U")) || bytes.Contains(text, []byte("#EXTINF")) {
			return enc
		}
	}
	return EncodingUTF8
}

// strictDecode decodes sample and reports false if any input was invalid.
// A sequence cut off by the end of the sample is not treated as invalid.
func strictDecode(enc Encoding, sample []byte) ([]byte, bool) {
	switch enc {
	case EncodingUTF8:
		trimmed := trimIncompleteUTF8(sample)
		return trimmed, utf8.Valid(trimmed)
	case EncodingUTF16, EncodingUTF16LE, EncodingUTF16BE:
		if len(sample)%2 != 0 {
			sample = sample[:len(sample)-1]
		}
		// drop a trailing high surrogate split by the sample boundary
		if n := len(sample); n >= 2 {
			var hi byte
			if enc == EncodingUTF16BE {
				hi = sample[n-2]
			} else {
				hi = sample[n-1]
			}
			if hi >= 0xD8 && hi <= 0xDB {
				sample = sample[:n-2]
			}
		}
	}

	out, err := enc.NewDecoder().Bytes(sample)
	if err != nil {
		return nil, false
	}
	if enc == EncodingUTF16 || enc == EncodingUTF16LE || enc == EncodingUTF16BE {
		if bytes.ContainsRune(out, utf8.RuneError) {
			return nil, false
		}
	}
	return out, true
}

// trimIncompleteUTF8 removes a trailing multi-byte sequence that was cut short.
func trimIncompleteUTF8(b []byte) []byte {
	// a UTF-8 sequence is at most 4 bytes long
	for i := 1; i <= 3 && i <= len(b); i++ {
		c := b[len(b)-i]
		if c < 0x80 {
			return b
		}
		if c >= 0xC0 {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			return b
		}
	}
	return b
}
