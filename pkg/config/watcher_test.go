package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ReloadOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	if err := os.WriteFile(path, []byte("guard:\n  budget:\n    daily_cap: 10.0\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	w, err := NewWatcher(path, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Stop()

	reloaded := make(chan *Config, 1)
	go func() {
		_ = w.Watch(context.Background(), func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watch loop time to start before writing.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("guard:\n  budget:\n    daily_cap: 20.0\n"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Guard.Budget.DailyCap != 20.0 {
			t.Errorf("Expected reloaded daily cap 20.0, got %.2f", cfg.Guard.Budget.DailyCap)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}
}

func TestWatcher_InvalidConfigKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	if err := os.WriteFile(path, []byte("guard:\n  budget:\n    daily_cap: 10.0\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	w, err := NewWatcher(path, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Stop()

	reloaded := make(chan *Config, 1)
	go func() {
		_ = w.Watch(context.Background(), func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	time.Sleep(100 * time.Millisecond)

	// Broken YAML must not trigger the callback.
	if err := os.WriteFile(path, []byte("guard: [broken"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	select {
	case <-reloaded:
		t.Error("Expected no reload for invalid configuration")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcher_StopWaitsForExit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	w, err := NewWatcher(path, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = w.Watch(context.Background(), func(*Config) {})
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch loop did not exit after Stop")
	}

	// Second Stop is a no-op.
	w.Stop()
}

func TestNewWatcher_EmptyPath(t *testing.T) {
	if _, err := NewWatcher("", 0, nil); err == nil {
		t.Error("Expected error for empty path")
	}
}
