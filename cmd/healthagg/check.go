package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/healthagg/health"
	"github.com/jonwraymond/healthagg/observe"
	"github.com/jonwraymond/healthagg/registry"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var policy string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe the configured services once and print the report",
		Long: "Probe the configured services once and print the JSON report to stdout.\n" +
			"Exits non-zero when the system is unhealthy.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			if policy != "" {
				if _, err := health.ParsePolicy(policy); err != nil {
					return err
				}
				cfg.Policy = policy
			}

			// stdout carries the report; everything else goes to stderr.
			cfg.Observe.Metrics.Enabled = false
			cfg.Observe.Logging.Output = cmd.ErrOrStderr()
			cfg.Observe.ExportWriter = cmd.ErrOrStderr()

			obs, err := observe.NewObserver(cmd.Context(), cfg.Observe)
			if err != nil {
				return err
			}
			defer shutdownObserver(obs)

			// A single round has nothing to reuse.
			agg, err := newAggregator(cfg, registry.New(cfg.Services...), obs, nil)
			if err != nil {
				return err
			}

			report, err := agg.Check(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}

			if report.SystemStatus == health.StatusUnhealthy {
				return errUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&policy, "policy", "", "override the aggregation policy (three-tier|binary)")
	return cmd
}
