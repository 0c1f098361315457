// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"time"

	"github.com/ManuGH/m3uingest/internal/m3u"
)

// noopStore is a Store that does nothing (caching disabled).
type noopStore struct{}

// NewNoopStore creates a Store that never caches anything.
func NewNoopStore() Store {
	return noopStore{}
}

func (noopStore) Load(context.Context, Fingerprint) (*m3u.Playlist, bool) { return nil, false }
func (noopStore) Save(context.Context, Fingerprint, *m3u.Playlist) bool   { return false }
func (noopStore) Invalidate(context.Context, string) bool                 { return false }
func (noopStore) Cleanup(context.Context, time.Duration) int              { return 0 }
func (noopStore) Trim(context.Context, int) int                           { return 0 }
func (noopStore) Stats(context.Context) Stats                             { return Stats{Backend: "none"} }
func (noopStore) Info(context.Context, string) (Info, bool)               { return Info{}, false }
func (noopStore) Backend() string                                         { return "none" }
func (noopStore) Close() error                                            { return nil }
