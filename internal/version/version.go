// Package version reports the build of the m3uingest binary.
package version

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Set with -ldflags "-X github.com/ManuGH/m3uingest/internal/version.Version=...".
var (
	Version = "v0.1.0-dev"
	Commit  = ""
	Date    = ""
)

var vcsOnce sync.Once

// fillFromBuildInfo falls back to the VCS stamp of `go build` when the
// linker flags did not set Commit or Date.
func fillFromBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "" && len(s.Value) >= 7 {
				Commit = s.Value[:7]
			}
		case "vcs.time":
			if Date == "" {
				Date = s.Value
			}
		}
	}
}

// String formats the build metadata for display.
func String() string {
	vcsOnce.Do(fillFromBuildInfo)
	commit, date := Commit, Date
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, commit, date)
}
