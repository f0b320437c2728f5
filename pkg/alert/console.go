// Package alert provides notifier implementations for budget alerts.
//
// Delivery transports beyond the console sink (email, chat webhooks,
// paging) are intentionally out of scope; operators integrate those by
// implementing costguard.Notifier.
package alert

import (
	"context"
	"log/slog"

	"docforge-hq/sentinel/pkg/guard/costguard"
)

// ConsoleNotifier delivers budget alerts to the structured log. Critical
// alerts (a cap exceeded after the fact) log at error level, warnings at
// warn level.
type ConsoleNotifier struct {
	logger *slog.Logger
}

// NewConsoleNotifier creates a console notifier. A nil logger uses the
// process default.
func NewConsoleNotifier(logger *slog.Logger) *ConsoleNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsoleNotifier{
		logger: logger.With("component", "alert.console"),
	}
}

// Notify implements costguard.Notifier.
func (n *ConsoleNotifier) Notify(ctx context.Context, a costguard.Alert) {
	attrs := []any{
		"window", a.Scope,
		"current_spend_usd", a.CurrentSpend,
		"threshold_usd", a.Threshold,
		"cap_usd", a.Cap,
		"cap_used_pct", a.CapPercentage * 100,
	}

	if a.Severity == costguard.SeverityCritical {
		n.logger.ErrorContext(ctx, "budget cap exceeded", attrs...)
		return
	}
	n.logger.WarnContext(ctx, "budget alert threshold crossed", attrs...)
}
