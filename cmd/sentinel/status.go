package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docforge-hq/sentinel/pkg/config"
	"docforge-hq/sentinel/pkg/guard/costguard"
	"docforge-hq/sentinel/pkg/guard/ledger"
	"docforge-hq/sentinel/pkg/guard/queue"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current spend and fallback queue state",
	Long: `Show current budget usage against the configured caps and the
fallback queue's per-status job counts, read directly from the ledger
and queue databases.`,
	RunE: showStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func showStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := ledger.NewSQLiteStoreWithConfig(ledger.SQLiteConfig{
		DBPath:      cfg.Guard.Ledger.DBPath,
		BusyTimeout: cfg.Guard.Ledger.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to open cost ledger: %w", err)
	}
	defer store.Close()

	costs := costguard.NewCostGuard(store, policyFromConfig(cfg.Guard.Budget), nil)

	daily, err := costs.DailySpend(ctx)
	if err != nil {
		return fmt.Errorf("failed to read daily spend: %w", err)
	}
	monthly, err := costs.MonthlySpend(ctx)
	if err != nil {
		return fmt.Errorf("failed to read monthly spend: %w", err)
	}

	fmt.Println("Budget")
	printWindow("  Daily", daily, cfg.Guard.Budget.DailyCap)
	printWindow("  Monthly", monthly, cfg.Guard.Budget.MonthlyCap)

	q, err := queue.New(queue.Config{
		DBPath: cfg.Guard.Queue.DBPath,
	})
	if err != nil {
		return fmt.Errorf("failed to open fallback queue: %w", err)
	}
	defer q.Close()

	stats, err := q.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read queue stats: %w", err)
	}

	fmt.Println("\nFallback queue")
	fmt.Printf("  Queued:      %d\n", stats.Queued)
	fmt.Printf("  In progress: %d\n", stats.InProgress)
	fmt.Printf("  Completed:   %d\n", stats.Completed)
	fmt.Printf("  Failed:      %d\n", stats.Failed)
	fmt.Printf("  Expired:     %d\n", stats.Expired)
	fmt.Printf("  Total:       %d\n", stats.Total)

	return nil
}

func printWindow(label string, spend, limit float64) {
	if limit <= 0 {
		fmt.Printf("%s: $%.2f (no cap)\n", label, spend)
		return
	}
	fmt.Printf("%s: $%.2f of $%.2f (%.0f%%)\n", label, spend, limit, spend/limit*100)
}
