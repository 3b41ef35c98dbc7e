// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"arttemplate/pkg/core/config"
	pkgmetrics "arttemplate/pkg/metrics"
	"arttemplate/pkg/server"
	"arttemplate/pkg/templating"
	"arttemplate/pkg/templating/metrics"
)

func newServeCmd(global *globalFlags) *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP render server",
		Long: `Run the HTTP render server.

Templates are resolved from the inline templates of the configuration, the
elements of sources.page, the files below sources.dir and the base URL
sources.url. With watch enabled, changed files in sources.dir are recompiled
without a restart; with sources.refresh set, fetched templates are revalidated
and replaced when the new version compiles.

Recent diagnostics are served on /diagnostics unless server.history is
negative.

Metrics are served on /metrics of the render server, or on a separate
listener when server.metrics_addr is set.

The server runs until receiving SIGTERM or SIGINT.

Example usage:
  arttemplate serve --config arttemplate.yaml
  arttemplate serve --config arttemplate.yaml --addr :9000 --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if watch {
				cfg.Server.Watch = true
			}
			if err := config.ValidateStructure(cfg); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer cancel()

			return serve(ctx, cfg, newLogger(cmd, cfg))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Render server listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Recompile templates when files in sources.dir change")

	return cmd
}

// serve runs the render server, the optional metrics server and the optional
// watcher until ctx is cancelled or one of them fails.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	gomaxprocs := runtime.GOMAXPROCS(0)
	gomemlimit := "unlimited"
	if limit := debug.SetMemoryLimit(-1); limit != math.MaxInt64 {
		gomemlimit = fmt.Sprintf("%d bytes (%.2f MiB)", limit, float64(limit)/(1024*1024))
	}

	logger.Info("arttemplate server starting",
		"addr", cfg.Server.Addr,
		"metrics_addr", cfg.Server.MetricsAddr,
		"sources_dir", cfg.Sources.Dir,
		"sources_url", cfg.Sources.URL,
		"watch", cfg.Server.Watch,
		"log_level", cfg.Logging.Level,
		"gomaxprocs", gomaxprocs,
		"gomemlimit", gomemlimit)

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.New(registry)

	var reporter templating.Reporter = templating.NewLogReporter(logger)
	var history *templating.History
	if cfg.Server.History >= 0 {
		history = templating.NewHistory(cfg.Server.History, reporter)
		reporter = history
	}

	setup, err := buildEngine(cfg, logger,
		templating.WithObserver(engineMetrics),
		templating.WithReporter(reporter))
	if err != nil {
		return err
	}

	if cfg.Sources.Preload {
		if err := setup.engine.Preload(ctx, setup.chain); err != nil {
			return err
		}
		logger.Info("templates preloaded", "count", len(setup.engine.IDs()))
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithShutdownTimeout(cfg.Server.GetShutdownTimeout()),
	}
	if cfg.Server.MetricsAddr == "" {
		opts = append(opts, server.WithMetrics(registry))
	}
	if history != nil {
		opts = append(opts, server.WithHistory(history))
	}
	renderServer := server.New(cfg.Server.Addr, setup.engine, opts...)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return renderServer.Start(gctx)
	})

	if cfg.Server.MetricsAddr != "" {
		metricsServer := pkgmetrics.NewServer(cfg.Server.MetricsAddr, registry)
		g.Go(func() error {
			return metricsServer.Start(gctx)
		})
	}

	if cfg.Server.Watch && setup.dir != nil {
		watcher := server.NewWatcher(setup.engine, setup.dir, logger)
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	if refresh := cfg.Sources.GetRefresh(); refresh > 0 && setup.remote != nil {
		poller := server.NewPoller(setup.engine, setup.remote, refresh, logger)
		g.Go(func() error {
			return poller.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("arttemplate server shutdown complete")
	return nil
}
