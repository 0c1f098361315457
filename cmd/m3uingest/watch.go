// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"time"

	"github.com/ManuGH/m3uingest/internal/cache"
	xglog "github.com/ManuGH/m3uingest/internal/log"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <file>...",
		Short: "Keep the cache of playlists current while they change",
		Long: "Ingest the playlists, then re-ingest each one whenever it changes on disk.\n" +
			"Old cache records are cleaned up periodically. Stops on SIGINT or SIGTERM.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := a.service(false)
			if err != nil {
				return err
			}

			for _, r := range svc.IngestAll(ctx, args, nil) {
				if r.Err != nil {
					a.logger.Warn().Err(r.Err).
						Str(xglog.FieldEvent, "watch.initial_ingest_failed").
						Str(xglog.FieldSource, r.Path).
						Msg("initial ingest failed; watching anyway")
					continue
				}
				fmt.Fprintf(a.out, "%s: %d entries\n", r.Path, r.Result.Playlist.Len())
			}

			w, err := svc.NewWatcher(debounce)
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()
			for _, p := range args {
				if err := w.Add(p); err != nil {
					return err
				}
			}

			reingest := make(chan string, len(args))
			w.OnInvalidate = func(path string) {
				select {
				case reingest <- path:
				default:
				}
			}
			w.Start(ctx)

			janitor := cache.StartJanitor(a.store, a.cfg.Cache.CleanupInterval, a.cfg.Cache.MaxAge, a.cfg.Cache.MaxEntries)
			defer janitor.Stop()

			a.logger.Info().
				Str(xglog.FieldEvent, "watch.started").
				Int("playlists", len(args)).
				Msg("watching playlists")

			for {
				select {
				case <-ctx.Done():
					a.logger.Info().Str(xglog.FieldEvent, "watch.stopped").Msg("watch stopped")
					return nil
				case path := <-reingest:
					res, err := svc.Ingest(ctx, path, nil)
					if err != nil {
						a.logger.Warn().Err(err).
							Str(xglog.FieldEvent, "watch.reingest_failed").
							Str(xglog.FieldSource, path).
							Msg("re-ingest failed")
						continue
					}
					if !res.Cancelled {
						fmt.Fprintf(a.out, "%s: %d entries (reloaded)\n", path, res.Playlist.Len())
					}
				}
			}
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period after a change before re-ingesting (default 500ms)")
	return cmd
}
