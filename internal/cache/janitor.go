// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"sync"
	"time"
)

// Janitor performs periodic Cleanup and Trim of a Store in the background.
type Janitor struct {
	store      Store
	interval   time.Duration
	maxAge     time.Duration
	maxEntries int
	stop       chan struct{}
	done       chan struct{}
	once       sync.Once
}

// StartJanitor runs store.Cleanup(maxAge) and then store.Trim(maxEntries)
// every interval until Stop is called. interval <= 0 returns a stopped Janitor.
func StartJanitor(store Store, interval, maxAge time.Duration, maxEntries int) *Janitor {
	j := &Janitor{
		store:      store,
		interval:   interval,
		maxAge:     maxAge,
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if interval <= 0 {
		close(j.done)
		return j
	}
	go j.run()
	return j
}

// run starts the cleanup loop.
func (j *Janitor) run() {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), j.interval)
			j.store.Cleanup(ctx, j.maxAge)
			j.store.Trim(ctx, j.maxEntries)
			cancel()
		case <-j.stop:
			return
		}
	}
}

// Stop ends the cleanup loop and waits for it to exit. It is safe to call
// more than once.
func (j *Janitor) Stop() {
	j.once.Do(func() { close(j.stop) })
	<-j.done
}
