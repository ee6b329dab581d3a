// Package main implements the healthagg command line interface.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/healthagg/cache"
	"github.com/jonwraymond/healthagg/config"
	"github.com/jonwraymond/healthagg/health"
	"github.com/jonwraymond/healthagg/observe"
	"github.com/jonwraymond/healthagg/registry"
)

// Version is set at build time.
var Version = "dev"

// errUnhealthy makes a one-shot check exit non-zero without extra output.
var errUnhealthy = errors.New("system unhealthy")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errUnhealthy) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "healthagg",
		Short:         "healthagg probes upstream services and reports aggregated health",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newCheckCmd(opts),
		newValidateCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.configPath == "" {
				return errors.New("--config is required")
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %d services, policy %s\n",
				len(cfg.Services), cfg.AggregationPolicy())
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of healthagg",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "healthagg version %s\n", Version)
			return err
		},
	}
}

// loadConfig reads path. With no path it returns the defaults seeded with
// config.DefaultServices.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Defaults()
		cfg.Services = config.DefaultServices()
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

// newAggregator builds the engine described by cfg over reg. A nil reports
// cache disables report caching.
func newAggregator(cfg *config.Config, reg *registry.Registry, obs observe.Observer, reports *cache.MemoryCache) (*health.Aggregator, error) {
	aggCfg := health.AggregatorConfig{
		Policy:         cfg.AggregationPolicy(),
		MaxConcurrency: cfg.Probe.MaxConcurrency,
		Prober:         health.NewHTTPProber(cfg.ProberConfig()),
		Observer:       obs,
		CachePolicy:    cfg.CachePolicy(),
	}
	if reports != nil {
		aggCfg.ReportCache = reports
	}
	return health.NewAggregator(reg, aggCfg)
}

func shutdownObserver(obs observe.Observer) {
	_ = obs.Shutdown(context.Background())
}
