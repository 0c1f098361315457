// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ManuGH/m3uingest/internal/cache"
	"github.com/ManuGH/m3uingest/internal/config"
	xglog "github.com/ManuGH/m3uingest/internal/log"
	"github.com/ManuGH/m3uingest/internal/persistence/sqlite"
	"github.com/spf13/cobra"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the playlist cache",
	}
	cmd.AddCommand(
		newCacheStatsCmd(a),
		newCacheCleanupCmd(a),
		newCacheInvalidateCmd(a),
		newCacheInfoCmd(a),
		newCacheVerifyCmd(a),
	)
	return cmd
}

func newCacheStatsCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show record count, size and age of the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(false)
			if err != nil {
				return err
			}
			st := svc.Stats(cmd.Context())
			if jsonOut {
				return writeJSON(a.out, st)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "backend:\t%s\n", st.Backend)
			fmt.Fprintf(tw, "entries:\t%d\n", st.Entries)
			fmt.Fprintf(tw, "size:\t%d bytes\n", st.TotalBytes)
			fmt.Fprintf(tw, "oldest:\t%s\n", st.OldestAge.Truncate(time.Second))
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print stats as JSON")
	return cmd
}

func newCacheCleanupCmd(a *app) *cobra.Command {
	var (
		maxAge     time.Duration
		maxEntries int
	)
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove cache records older than --max-age, then the oldest beyond --max-entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(false)
			if err != nil {
				return err
			}
			age := maxAge
			if age <= 0 {
				age = a.cfg.Cache.MaxAge
			}
			limit := maxEntries
			if limit <= 0 {
				limit = a.cfg.Cache.MaxEntries
			}
			removed := svc.Cleanup(cmd.Context(), age)
			trimmed := svc.Trim(cmd.Context(), limit)
			a.logger.Info().
				Str(xglog.FieldEvent, "cache.cleanup").
				Int("removed", removed).
				Int("trimmed", trimmed).
				Dur("max_age", age).
				Int("max_entries", limit).
				Msg("cache cleanup finished")
			if _, err := fmt.Fprintf(a.out, "removed %d records older than %s\n", removed, age); err != nil {
				return err
			}
			if limit > 0 {
				_, err = fmt.Fprintf(a.out, "removed %d records beyond the newest %d\n", trimmed, limit)
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "maximum record age (default from config)")
	cmd.Flags().IntVar(&maxEntries, "max-entries", 0, "keep at most this many records (default from config, 0 keeps all)")
	return cmd
}

func newCacheInvalidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <file>...",
		Short: "Drop the cache records of the given playlists",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(false)
			if err != nil {
				return err
			}
			for _, p := range args {
				state := "not cached"
				if svc.Invalidate(cmd.Context(), p) {
					state = "invalidated"
				}
				fmt.Fprintf(a.out, "%s: %s\n", p, state)
			}
			return nil
		},
	}
}

func newCacheInfoCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Describe the cache record of one playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(false)
			if err != nil {
				return err
			}
			info, ok := svc.Info(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("%s: not cached", args[0])
			}
			if jsonOut {
				return writeJSON(a.out, info)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "source:\t%s\n", info.Fingerprint.Source)
			fmt.Fprintf(tw, "key:\t%s\n", info.Key)
			fmt.Fprintf(tw, "file size:\t%d bytes\n", info.Fingerprint.Size)
			fmt.Fprintf(tw, "modified:\t%s\n", info.Fingerprint.ModTime.Format(time.RFC3339))
			if info.Fingerprint.ContentHash != "" {
				fmt.Fprintf(tw, "content hash:\t%s\n", info.Fingerprint.ContentHash)
			}
			fmt.Fprintf(tw, "cached at:\t%s\n", info.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(tw, "age:\t%s\n", info.Age.Truncate(time.Second))
			fmt.Fprintf(tw, "entries:\t%d\n", info.Entries)
			fmt.Fprintf(tw, "categories:\t%d\n", info.Categories)
			fmt.Fprintf(tw, "record size:\t%d bytes\n", info.SizeBytes)
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the record description as JSON")
	return cmd
}

func newCacheVerifyCmd(a *app) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the SQLite cache database for corruption or ping the Redis cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch a.cfg.Cache.Backend {
			case config.BackendSQLite:
				return a.verifySQLite(full)
			case config.BackendRedis:
				return a.verifyRedis(cmd.Context())
			default:
				return fmt.Errorf("verify needs the %s or %s backend, configured backend is %s",
					config.BackendSQLite, config.BackendRedis, a.cfg.Cache.Backend)
			}
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "run the full integrity check instead of the quick one (sqlite)")
	return cmd
}

func (a *app) verifyRedis(ctx context.Context) error {
	svc, err := a.service(false)
	if err != nil {
		return err
	}
	if err := svc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("redis cache at %s: %w", a.cfg.Cache.Redis.Addr, err)
	}
	_, err = fmt.Fprintf(a.out, "redis %s: ok\n", a.cfg.Cache.Redis.Addr)
	return err
}

func (a *app) verifySQLite(full bool) error {
	path := cache.SQLitePath(a.cfg.Cache.Dir)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("cache database: %w", err)
	}
	mode := sqlite.QuickCheck
	if full {
		mode = sqlite.FullCheck
	}
	problems, err := sqlite.VerifyIntegrity(path, mode)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintln(a.errOut, p)
		}
		return errors.New("cache database is corrupt")
	}
	_, err = fmt.Fprintf(a.out, "%s: ok (%s check)\n", path, mode)
	return err
}
