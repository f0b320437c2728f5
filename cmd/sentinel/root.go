package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel - budget-aware execution guard for document pipelines",
	Long: `Sentinel protects document generation and QA pipelines from runaway
spend and cascading downstream failures.

Every billable call goes through the guard, which provides:
  - Hard budget caps (per document, daily, monthly) checked before spend
  - Alert thresholds with console notifications
  - Per-service circuit breakers with single-probe recovery
  - A durable fallback queue with bounded retries and TTL expiration
  - An append-only cost ledger with scheduled retention pruning`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
