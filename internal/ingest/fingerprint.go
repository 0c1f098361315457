// SPDX-License-Identifier: MIT

package ingest

import (
	"io"
	"os"
	"strconv"

	"github.com/ManuGH/m3uingest/internal/cache"
	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

// fingerprint describes the current version of the file at abs. With
// hashContent the whole file is hashed so edits that keep size and mtime are
// still detected.
func fingerprint(fs afero.Fs, abs string, info os.FileInfo, hashContent bool) (cache.Fingerprint, error) {
	fp := cache.Fingerprint{
		Source:  abs,
		Size:    info.Size(),
		ModTime: info.ModTime().UTC(),
	}
	if !hashContent {
		return fp, nil
	}

	f, err := fs.Open(abs)
	if err != nil {
		return fp, err
	}
	defer func() { _ = f.Close() }()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return fp, err
	}
	fp.ContentHash = strconv.FormatUint(h.Sum64(), 16)
	return fp, nil
}
