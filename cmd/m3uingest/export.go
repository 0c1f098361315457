// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/ManuGH/m3uingest/internal/fsutil"
	"github.com/ManuGH/m3uingest/internal/playlist"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		category string
		output   string
		noCache  bool
	)
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write a parsed playlist back out as normalized M3U",
		Example: "  m3uingest export channels.m3u.gz -o channels.m3u\n" +
			"  m3uingest export channels.m3u --category News",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(noCache)
			if err != nil {
				return err
			}
			res, err := svc.Ingest(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			if res.Cancelled {
				return cmd.Context().Err()
			}

			var buf bytes.Buffer
			if category != "" {
				if !slices.Contains(res.Playlist.Categories.Names(), category) {
					return fmt.Errorf("%s: no category %q", args[0], category)
				}
				err = playlist.WriteCategory(&buf, res.Playlist, category)
			} else {
				err = playlist.WriteM3U(&buf, res.Playlist.Entries)
			}
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = a.out.Write(buf.Bytes())
				return err
			}
			if err := fsutil.WriteFileAtomic(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "export only this category")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "parse without reading or writing the cache")
	return cmd
}
