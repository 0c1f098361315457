// SPDX-License-Identifier: MIT

//go:build !windows

// Package fsutil holds filesystem helpers shared by the cache and the CLI.
package fsutil

import (
	"fmt"
	"os"

	xglog "github.com/ManuGH/m3uingest/internal/log"
	"github.com/google/renameio/v2"
)

// WriteFileAtomic writes data to path with fsync before rename, so a crash
// leaves either the old content or the new one.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(perm))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		// no-op once the file was committed
		if err := pendingFile.Cleanup(); err != nil {
			logger := xglog.WithComponent("fsutil")
			logger.Debug().Err(err).Str("path", path).Msg("cleanup pending file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write pending file: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}
