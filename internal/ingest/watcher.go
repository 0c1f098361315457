// SPDX-License-Identifier: MIT

package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	xglog "github.com/ManuGH/m3uingest/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce collapses the burst of events editors emit for one save.
const DefaultDebounce = 500 * time.Millisecond

// Watcher invalidates the cache record of a watched playlist whenever the file
// is written, replaced or removed.
//
// The parent directory is watched rather than the file itself so that
// editors replacing the file via rename keep being tracked.
type Watcher struct {
	svc      *Service
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   zerolog.Logger

	// OnInvalidate is called after a debounced invalidation, from the watch
	// goroutine. Set it before Start.
	OnInvalidate func(path string)

	mu    sync.Mutex
	paths map[string]struct{}
	dirs  map[string]int

	started  atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a Watcher for s. debounce <= 0 selects DefaultDebounce.
func (s *Service) NewWatcher(debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		svc:      s,
		fsw:      fsw,
		debounce: debounce,
		logger:   xglog.WithComponent("watcher"),
		paths:    make(map[string]struct{}),
		dirs:     make(map[string]int),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Add starts tracking path.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.paths[abs]; ok {
		return nil
	}
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.paths[abs] = struct{}{}

	w.logger.Debug().
		Str(xglog.FieldEvent, "watcher.added").
		Str(xglog.FieldSource, abs).
		Msg("watching playlist")
	return nil
}

func (w *Watcher) tracked(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.paths[path]
	return ok
}

// Start runs the watch loop until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	if w.started.Swap(true) {
		return
	}
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	pending := make(map[string]time.Time)
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	reschedule := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		var next time.Time
		for _, due := range pending {
			if next.IsZero() || due.Before(next) {
				next = due
			}
		}
		if !next.IsZero() {
			timer = time.NewTimer(time.Until(next))
			timerC = timer.C
		}
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			path := filepath.Clean(event.Name)
			if !w.tracked(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug().
				Str(xglog.FieldEvent, "watcher.file_changed").
				Str(xglog.FieldSource, path).
				Str("op", event.Op.String()).
				Msg("playlist changed")
			// debounce: every event pushes the deadline out
			pending[path] = time.Now().Add(w.debounce)
			reschedule()

		case <-timerC:
			now := time.Now()
			for path, due := range pending {
				if due.After(now) {
					continue
				}
				delete(pending, path)
				removed := w.svc.Invalidate(ctx, path)
				w.logger.Info().
					Str(xglog.FieldEvent, "watcher.invalidated").
					Str(xglog.FieldSource, path).
					Bool("removed", removed).
					Msg("cache record invalidated after change")
				if w.OnInvalidate != nil {
					w.OnInvalidate(path)
				}
			}
			timer, timerC = nil, nil
			reschedule()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "watcher.error").
				Msg("playlist watcher error")
		}
	}
}

// Close stops the watch loop, waits for it to exit and releases the
// underlying watcher. It is safe to call more than once and without Start.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stop)
		err = w.fsw.Close()
	})
	if w.started.Load() {
		<-w.done
	}
	return err
}
