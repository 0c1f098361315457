// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ManuGH/m3uingest/internal/cache"
	"github.com/ManuGH/m3uingest/internal/config"
	"github.com/ManuGH/m3uingest/internal/ingest"
	xglog "github.com/ManuGH/m3uingest/internal/log"
	"github.com/ManuGH/m3uingest/internal/telemetry"
	"github.com/ManuGH/m3uingest/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	configPath  string
	logLevel    string
	metricsAddr string

	cfg        config.AppConfig
	logger     zerolog.Logger
	store      cache.Store
	tp         *telemetry.Provider
	metricsSrv *http.Server
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "m3uingest",
		Short:         "Parse and cache M3U/M3U8 playlists",
		Long:          "m3uingest parses M3U/M3U8 playlists into categorized channel lists.\nUnchanged playlists are served from a persistent cache.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to config file (YAML)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides config")
	pf.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics at this address, e.g. :9090")

	root.AddCommand(
		newParseCmd(a),
		newCacheCmd(a),
		newExportCmd(a),
		newWatchCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup loads the configuration and brings up logging, tracing and metrics.
func (a *app) setup(ctx context.Context) error {
	cfg, err := config.NewLoader(a.configPath).Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	xglog.Reset()
	xglog.Configure(xglog.Config{Level: cfg.Log.Level, Output: a.errOut, Service: "m3uingest"})
	a.logger = xglog.WithComponent("cli")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.tp = tp

	if a.metricsAddr != "" {
		if err := a.serveMetrics(a.metricsAddr); err != nil {
			return err
		}
	}

	a.logger.Debug().
		Str(xglog.FieldEvent, "config.loaded").
		Str("config_path", a.configPath).
		Str(xglog.FieldBackend, cfg.Cache.Backend).
		Msg("configuration loaded")
	return nil
}

func (a *app) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen for metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Str(xglog.FieldEvent, "metrics.serve_failed").Msg("metrics server stopped")
		}
	}()
	a.logger.Info().
		Str(xglog.FieldEvent, "metrics.listening").
		Str("addr", ln.Addr().String()).
		Msg("serving Prometheus metrics")
	return nil
}

// openStore returns the configured cache store, opening it on first use.
// noCache selects the no-op store.
func (a *app) openStore(noCache bool) (cache.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if noCache {
		a.store = cache.NewNoopStore()
		return a.store, nil
	}
	store, err := cache.Open(a.cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	a.store = store
	return store, nil
}

func (a *app) service(noCache bool) (*ingest.Service, error) {
	store, err := a.openStore(noCache)
	if err != nil {
		return nil, err
	}
	return ingest.New(store, ingest.Options{
		ChunkSize:      a.cfg.Parser.ChunkSize,
		ProgressEvery:  a.cfg.Parser.ProgressEvery,
		ProgressPeriod: a.cfg.Parser.ProgressPeriod,
		HashContent:    a.cfg.Parser.HashContent,
	}), nil
}

// close releases everything setup and openStore acquired.
func (a *app) close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.metricsSrv != nil {
		errs = append(errs, a.metricsSrv.Shutdown(ctx))
		a.metricsSrv = nil
	}
	if a.tp != nil {
		errs = append(errs, a.tp.Shutdown(ctx))
		a.tp = nil
	}
	return errors.Join(errs...)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// no configuration needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintf(a.out, "m3uingest %s\n", version.String())
			return err
		},
	}
}
