package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig contains configuration for the retention pruner.
type RetentionConfig struct {
	// RetentionDays is the number of days to retain cost events.
	// 0 means keep events forever (no pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM).
	PruneSchedule string
}

// Pruner is the explicit, out-of-band archival process for the cost log.
// It is the only component allowed to delete cost events; everything else
// treats the ledger as append-only.
type Pruner struct {
	store  Store
	config RetentionConfig
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewPruner creates a retention pruner for the given store.
func NewPruner(store Store, config RetentionConfig) *Pruner {
	return &Pruner{
		store:  store,
		config: config,
		cron:   cron.New(),
		logger: slog.Default().With("component", "guard.ledger.retention"),
	}
}

// PruneOnce deletes cost events older than the retention window.
// It returns the number of events removed.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	if p.config.RetentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)
	removed, err := p.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention prune failed: %w", err)
	}

	if removed > 0 {
		p.logger.Info("pruned cost events",
			"removed", removed,
			"cutoff", cutoff,
			"retention_days", p.config.RetentionDays,
		)
	}

	return removed, nil
}

// Start begins scheduled pruning based on the cron expression.
// If PruneSchedule is empty or retention is disabled, Start does nothing.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("pruner already running")
	}

	if p.config.PruneSchedule == "" || p.config.RetentionDays <= 0 {
		p.logger.Info("retention pruning not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(p.config.PruneSchedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", p.config.PruneSchedule, err)
	}

	_, err := p.cron.AddFunc(p.config.PruneSchedule, func() {
		if _, err := p.PruneOnce(ctx); err != nil {
			p.logger.Error("scheduled prune failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	p.cron.Start()
	p.running = true
	p.logger.Info("retention pruning scheduled",
		"schedule", p.config.PruneSchedule,
		"retention_days", p.config.RetentionDays,
	)

	return nil
}

// Stop halts scheduled pruning and waits for any in-flight prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	stopCtx := p.cron.Stop()
	<-stopCtx.Done()
	p.running = false
}
