package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"docforge-hq/sentinel/pkg/alert"
	"docforge-hq/sentinel/pkg/config"
	"docforge-hq/sentinel/pkg/guard"
	"docforge-hq/sentinel/pkg/guard/breaker"
	"docforge-hq/sentinel/pkg/guard/costguard"
	"docforge-hq/sentinel/pkg/guard/ledger"
	"docforge-hq/sentinel/pkg/guard/queue"
	"docforge-hq/sentinel/pkg/telemetry/logging"
)

var runFlags struct {
	logLevel      string
	metricsListen string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the guard daemon",
	Long: `Start the guard daemon with the specified configuration.

The daemon runs the fallback queue processor, the ledger retention
pruner, the configuration hot-reload watcher, and (when enabled) the
Prometheus metrics endpoint.

Examples:
  # Start with default config
  sentinel run

  # Start with custom config
  sentinel run --config /etc/sentinel/config.yaml

  # Override the metrics listen address
  sentinel run --metrics-listen 0.0.0.0:9090

  # Validate config without starting
  sentinel run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.metricsListen, "metrics-listen", "", "override metrics listen address")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

// policyFromConfig converts the budget section of the configuration into
// the immutable policy the cost guard enforces.
func policyFromConfig(budget config.BudgetConfig) costguard.Policy {
	return costguard.Policy{
		Estimates:             budget.Estimates,
		PerDocumentCap:        budget.PerDocumentCap,
		DailyCap:              budget.DailyCap,
		MonthlyCap:            budget.MonthlyCap,
		DailyAlertThreshold:   budget.DailyAlertThreshold,
		MonthlyAlertThreshold: budget.MonthlyAlertThreshold,
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if runFlags.metricsListen != "" {
		cfg.Telemetry.Metrics.ListenAddress = runFlags.metricsListen
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Sentinel v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cost ledger
	store, err := ledger.NewSQLiteStoreWithConfig(ledger.SQLiteConfig{
		DBPath:      cfg.Guard.Ledger.DBPath,
		BusyTimeout: cfg.Guard.Ledger.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to open cost ledger: %w", err)
	}
	defer store.Close()
	fmt.Printf("✓ Cost ledger opened (%s)\n", cfg.Guard.Ledger.DBPath)

	// Retention pruner
	if cfg.Guard.Ledger.Retention.Schedule != "" && cfg.Guard.Ledger.Retention.Days > 0 {
		pruner := ledger.NewPruner(store, ledger.RetentionConfig{
			RetentionDays: cfg.Guard.Ledger.Retention.Days,
			PruneSchedule: cfg.Guard.Ledger.Retention.Schedule,
		})
		if err := pruner.Start(ctx); err != nil {
			logger.Warn("failed to start retention pruner", "error", err)
		} else {
			defer pruner.Stop()
			logger.Info("retention pruner started",
				"schedule", cfg.Guard.Ledger.Retention.Schedule,
				"retention_days", cfg.Guard.Ledger.Retention.Days,
			)
		}
	}

	// Cost guard with console alerting
	costs := costguard.NewCostGuard(store, policyFromConfig(cfg.Guard.Budget), alert.NewConsoleNotifier(logger))

	// Circuit breakers
	breakers := breaker.NewRegistry(breaker.Config{
		FailureThreshold: cfg.Guard.Breaker.FailureThreshold,
		ResetTimeout:     cfg.Guard.Breaker.ResetTimeout,
		CallTimeout:      cfg.Guard.Breaker.CallTimeout,
	})

	// Fallback queue
	q, err := queue.New(queue.Config{
		DBPath:             cfg.Guard.Queue.DBPath,
		RetryInterval:      cfg.Guard.Queue.RetryInterval,
		DefaultMaxAttempts: cfg.Guard.Queue.DefaultMaxAttempts,
		DefaultTTL:         cfg.Guard.Queue.DefaultTTL,
		BatchSize:          cfg.Guard.Queue.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("failed to open fallback queue: %w", err)
	}
	defer q.Close()

	if err := q.Start(ctx); err != nil {
		return fmt.Errorf("failed to start queue processor: %w", err)
	}
	defer q.Stop()
	fmt.Printf("✓ Fallback queue started (%s)\n", cfg.Guard.Queue.DBPath)

	// Execution guard
	var metrics *guard.Metrics
	if cfg.Telemetry.Metrics.Enabled {
		metrics = guard.NewMetrics()
	}
	g := guard.New(costs, breakers, q, metrics)

	// Config hot reload: swap the budget policy without a restart.
	if cfg.Guard.Reload.Enabled {
		watcher, err := config.NewWatcher(cfgFile, cfg.Guard.Reload.Debounce, logger)
		if err != nil {
			logger.Warn("failed to start config watcher", "error", err)
		} else {
			go func() {
				err := watcher.Watch(ctx, func(newCfg *config.Config) {
					g.SetPolicy(policyFromConfig(newCfg.Guard.Budget))
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("config watcher exited", "error", err)
				}
			}()
			defer watcher.Stop()
			fmt.Println("✓ Config hot reload enabled")
		}
	}

	// Metrics endpoint
	var metricsSrv *http.Server
	errChan := make(chan error, 1)
	if cfg.Telemetry.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "ok")
		})
		metricsSrv = &http.Server{
			Addr:    cfg.Telemetry.Metrics.ListenAddress,
			Handler: mux,
		}
		go func() {
			slog.Info("starting metrics endpoint", "address", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- fmt.Errorf("metrics endpoint error: %w", err)
			}
		}()
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Telemetry.Metrics.ListenAddress)

		// Keep the queue depth gauges fresh between scrapes.
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := g.QueueStats(ctx); err != nil {
						logger.Warn("queue stats refresh failed", "error", err)
					}
				}
			}
		}()
	}

	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		if metricsSrv != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics endpoint shutdown failed", "error", err)
			}
		}

		fmt.Println("✓ Stopped")
		return nil
	}
}
