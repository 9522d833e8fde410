package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tagvet/tagvet/telemetry"
	"github.com/tagvet/tagvet/types"
)

var (
	daemonInterval    time.Duration
	daemonMetricsAddr string
	daemonSeverity    string
	daemonPolicy      string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run continuous tag compliance scanning",
	Long: `Daemon scans the whole estate at a fixed interval, records every run
in the scan history, and serves Prometheus metrics.

Endpoints:
- /metrics  Prometheus scrape endpoint
- /health   liveness check

Shuts down gracefully on SIGINT/SIGTERM.`,
	Example: `  tagvet daemon                        # Scan every 30 minutes
  tagvet daemon --interval 5m          # Custom interval
  tagvet daemon --metrics-addr :9090   # Custom metrics address`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().DurationVar(&daemonInterval, "interval", 30*time.Minute, "Scan interval")
	daemonCmd.Flags().StringVar(&daemonMetricsAddr, "metrics-addr", ":2112", "Metrics HTTP server address")
	daemonCmd.Flags().StringVar(&daemonSeverity, "severity", types.SeverityLow, "Minimum violation severity to report")
	daemonCmd.Flags().StringVar(&daemonPolicy, "policy", "", "Tag policy file (default: built-in owner/env policy)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	otelShutdown, err := telemetry.InitOTEL(ctx, telemetry.Config{
		ServiceName:    "tagvet",
		ServiceVersion: version,
		Insecure:       true,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutCtx)
	}()

	rt, err := newRuntime(ctx, daemonPolicy)
	if err != nil {
		return err
	}
	defer rt.close()

	logger := telemetry.NewLogger("daemon")
	logger.Info().
		Dur("interval", daemonInterval).
		Str("metrics_addr", daemonMetricsAddr).
		Bool("multi_region", rt.cfg.MultiRegionEnabled).
		Msg("daemon starting")

	var g run.Group

	// Scan loop: one immediate scan, then one per tick.
	loopCtx, loopCancel := context.WithCancel(ctx)
	g.Add(func() error {
		ticker := time.NewTicker(daemonInterval)
		defer ticker.Stop()

		scanOnce(loopCtx, rt, logger)
		for {
			select {
			case <-ticker.C:
				scanOnce(loopCtx, rt, logger)
			case <-loopCtx.Done():
				return loopCtx.Err()
			}
		}
	}, func(error) {
		loopCancel()
	})

	// Metrics and health server.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(telemetry.PrometheusRegistry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := &http.Server{
		Addr:              daemonMetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Add(func() error {
		return server.ListenAndServe()
	}, func(error) {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutCtx)
	})

	err = g.Run()
	if errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
		logger.Info().Msg("daemon stopped")
		return nil
	}
	return err
}

func scanOnce(ctx context.Context, rt *runtime, logger *telemetry.Logger) {
	if ctx.Err() != nil {
		return
	}

	req := types.ScanRequest{Kinds: types.AllKinds(), Severity: daemonSeverity}
	result, err := rt.orch.Scan(ctx, req)
	if result != nil {
		if _, herr := rt.history.Append(result, req); herr != nil {
			logger.Warn().Err(herr).Msg("failed to record scan history")
		}
	}
	if err != nil {
		logger.Error().Err(err).Msg("scheduled scan failed")
		return
	}

	logger.Info().
		Float64("compliance_score", result.ComplianceScore).
		Int("resources", result.TotalResources).
		Int("violations", len(result.Violations)).
		Float64("cost_gap", result.CostGap).
		Msg("scheduled scan complete")
}
