package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/healthagg/cache"
	"github.com/jonwraymond/healthagg/config"
	"github.com/jonwraymond/healthagg/health"
	"github.com/jonwraymond/healthagg/observe"
	"github.com/jonwraymond/healthagg/registry"
)

const shutdownTimeout = 10 * time.Second

// minPruneInterval bounds how often expired reports are swept.
const minPruneInterval = time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry and health report over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, opts.configPath)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "override the listen address")
	return cmd
}

// server bundles what serve runs, so tests can drive the handler directly.
type server struct {
	httpServer *http.Server
	registry   *registry.Registry
	reports    *cache.MemoryCache
	observer   observe.Observer
}

func newServer(ctx context.Context, cfg *config.Config) (*server, error) {
	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, err
	}

	reg := registry.New(cfg.Services...)
	reports := newReportCache(cfg)
	agg, err := newAggregator(cfg, reg, obs, reports)
	if err != nil {
		shutdownObserver(obs)
		return nil, err
	}

	var metrics http.Handler
	if cfg.Observe.Metrics.Enabled && cfg.Observe.Metrics.Exporter == "prometheus" {
		metrics = observe.MetricsHandler()
	}

	return &server{
		httpServer: &http.Server{
			Addr: cfg.Listen,
			Handler: health.NewHandler(agg, health.HandlerConfig{
				Logger:         obs.Logger(),
				MetricsHandler: metrics,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		},
		registry: reg,
		reports:  reports,
		observer: obs,
	}, nil
}

func serve(ctx context.Context, cfg *config.Config, configPath string) error {
	srv, err := newServer(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownObserver(srv.observer)

	logger := srv.observer.Logger()

	if cfg.Watch && configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, logger, func(updated *config.Config) {
				srv.registry.Replace(updated.Services)
				logger.Info(ctx, "registry reloaded from config",
					observe.F("total", srv.registry.Len()),
				)
			})
			if err != nil {
				logger.Error(ctx, "config watcher stopped", observe.F("error", err.Error()))
			}
		}()
	}

	if srv.reports != nil {
		go pruneReports(ctx, srv.reports, pruneInterval(cfg.ReportCacheTTL), logger)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "healthagg listening",
			observe.F("addr", cfg.Listen),
			observe.F("services", srv.registry.Len()),
			observe.F("policy", cfg.AggregationPolicy().String()),
		)
		errCh <- srv.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "healthagg shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.httpServer.Shutdown(shutdownCtx)
}

// newReportCache returns nil when report caching is disabled.
func newReportCache(cfg *config.Config) *cache.MemoryCache {
	if !cfg.CachePolicy().ShouldCache() {
		return nil
	}
	return cache.NewMemoryCache()
}

func pruneInterval(ttl time.Duration) time.Duration {
	if ttl < minPruneInterval {
		return minPruneInterval
	}
	return ttl
}

// pruneReports sweeps expired reports every interval until ctx is done.
func pruneReports(ctx context.Context, reports *cache.MemoryCache, interval time.Duration, logger observe.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := reports.Prune(); n > 0 {
				logger.Debug(ctx, "pruned expired reports", observe.F("removed", n))
			}
		}
	}
}
