package alert

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"docforge-hq/sentinel/pkg/guard/costguard"
)

func TestConsoleNotifier_WarningLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	n := NewConsoleNotifier(logger)
	n.Notify(context.Background(), costguard.Alert{
		Severity:      costguard.SeverityWarning,
		Scope:         "daily",
		CurrentSpend:  20.00,
		Threshold:     20.00,
		Cap:           25.00,
		CapPercentage: 0.80,
	})

	out := buf.String()
	if !strings.Contains(out, `"level":"WARN"`) {
		t.Errorf("Expected WARN level, got: %s", out)
	}
	if !strings.Contains(out, "threshold crossed") {
		t.Errorf("Expected threshold message, got: %s", out)
	}
	if !strings.Contains(out, `"window":"daily"`) {
		t.Errorf("Expected window attribute, got: %s", out)
	}
}

func TestConsoleNotifier_CriticalLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	n := NewConsoleNotifier(logger)
	n.Notify(context.Background(), costguard.Alert{
		Severity:      costguard.SeverityCritical,
		Scope:         "monthly",
		CurrentSpend:  510.00,
		Threshold:     500.00,
		Cap:           500.00,
		CapPercentage: 1.02,
	})

	out := buf.String()
	if !strings.Contains(out, `"level":"ERROR"`) {
		t.Errorf("Expected ERROR level, got: %s", out)
	}
	if !strings.Contains(out, "cap exceeded") {
		t.Errorf("Expected cap exceeded message, got: %s", out)
	}
}

func TestConsoleNotifier_NilLogger(t *testing.T) {
	n := NewConsoleNotifier(nil)
	// Must not panic.
	n.Notify(context.Background(), costguard.Alert{Severity: costguard.SeverityWarning, Scope: "daily"})
}
