// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/ManuGH/m3uingest/internal/ingest"
	"github.com/ManuGH/m3uingest/internal/m3u"
	"github.com/spf13/cobra"
)

func newParseCmd(a *app) *cobra.Command {
	var (
		jsonOut bool
		noCache bool
		quiet   bool
	)
	cmd := &cobra.Command{
		Use:   "parse <file>...",
		Short: "Parse playlists and print a category summary",
		Long: "Parse each playlist on its own worker. Unchanged playlists are served\n" +
			"from the cache; progress is printed to stderr while parsing.",
		Example: "  m3uingest parse channels.m3u\n  m3uingest parse --json a.m3u b.m3u8.gz",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(noCache)
			if err != nil {
				return err
			}

			progress := newProgressPrinter(a.errOut, !quiet && !jsonOut)
			results := svc.IngestAll(cmd.Context(), args, progress.sinkFor)
			progress.wait()

			if jsonOut {
				summaries := make([]fileSummary, 0, len(results))
				for _, r := range results {
					summaries = append(summaries, summarize(r))
				}
				if err := writeJSON(a.out, summaries); err != nil {
					return err
				}
			} else if err := printSummaries(a.out, results); err != nil {
				return err
			}
			return failures(results)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "parse without reading or writing the cache")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	return cmd
}

type categorySummary struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

type fileSummary struct {
	Path          string            `json:"path"`
	Entries       int               `json:"entries"`
	Categories    []categorySummary `json:"categories"`
	FromCache     bool              `json:"from_cache"`
	Encoding      string            `json:"encoding,omitempty"`
	Skipped       int               `json:"skipped"`
	Cancelled     bool              `json:"cancelled,omitempty"`
	MissingHeader bool              `json:"missing_header,omitempty"`
	Error         string            `json:"error,omitempty"`
}

func summarize(r ingest.FileResult) fileSummary {
	s := fileSummary{
		Path:          r.Path,
		Categories:    []categorySummary{},
		FromCache:     r.Result.FromCache,
		Encoding:      string(r.Result.Encoding),
		Skipped:       r.Result.Skipped,
		Cancelled:     r.Result.Cancelled,
		MissingHeader: r.Result.MissingHeader,
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	if p := r.Result.Playlist; p != nil {
		s.Entries = p.Len()
		for _, name := range p.Categories.Names() {
			s.Categories = append(s.Categories, categorySummary{Name: name, Entries: len(p.Categories.Entries(name))})
		}
	}
	return s
}

func printSummaries(w io.Writer, results []ingest.FileResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range results {
		s := summarize(r)
		switch {
		case s.Error != "":
			fmt.Fprintf(tw, "%s: error: %s\n", s.Path, s.Error)
			continue
		case s.Cancelled:
			fmt.Fprintf(tw, "%s: cancelled after %d entries\n", s.Path, s.Entries)
			continue
		}
		source := "parsed"
		if s.FromCache {
			source = "cache"
		}
		fmt.Fprintf(tw, "%s: %d entries in %d categories (%s)\n", s.Path, s.Entries, len(s.Categories), source)
		for _, c := range s.Categories {
			fmt.Fprintf(tw, "  %s\t%d\n", c.Name, c.Entries)
		}
	}
	return tw.Flush()
}

func failures(results []ingest.FileResult) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d playlists failed", failed, len(results))
	}
	return nil
}

// progressPrinter consumes per-file progress channels and prints every
// report to w. Each file gets its own latest-wins channel sink.
type progressPrinter struct {
	w       io.Writer
	enabled bool

	mu    sync.Mutex
	chans []chan m3u.Progress
	wg    sync.WaitGroup
}

func newProgressPrinter(w io.Writer, enabled bool) *progressPrinter {
	return &progressPrinter{w: w, enabled: enabled}
}

func (p *progressPrinter) sinkFor(path string) m3u.ProgressSink {
	if !p.enabled {
		return nil
	}
	ch := make(chan m3u.Progress, 1)
	p.mu.Lock()
	p.chans = append(p.chans, ch)
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		last := -1
		for pr := range ch {
			if pr.Percent == last {
				continue
			}
			last = pr.Percent
			p.mu.Lock()
			fmt.Fprintf(p.w, "%s: %3d%% (%d entries)\n", path, pr.Percent, pr.Entries)
			p.mu.Unlock()
		}
	}()
	return m3u.ChannelSink(ch)
}

// wait closes all channels once every producer is done and waits for the
// printers to drain them.
func (p *progressPrinter) wait() {
	p.mu.Lock()
	for _, ch := range p.chans {
		close(ch)
	}
	p.chans = nil
	p.mu.Unlock()
	p.wg.Wait()
}
