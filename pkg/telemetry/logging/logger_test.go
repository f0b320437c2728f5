package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("test message", "key", "value")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "test message" {
		t.Errorf("Expected msg %q, got %v", "test message", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Errorf("Expected key=value, got %v", entry["key"])
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Debug("debug message")

	if !strings.Contains(buf.String(), "debug message") {
		t.Errorf("Expected text output to contain message, got %q", buf.String())
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("should be filtered")
	if buf.Len() != 0 {
		t.Errorf("Expected info to be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("should appear")
	if buf.Len() == 0 {
		t.Error("Expected warn to be logged at warn level")
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	if err == nil {
		t.Error("Expected error for invalid level")
	}
}

func TestNew_InvalidFormat(t *testing.T) {
	_, err := New(Config{Format: "xml"})
	if err == nil {
		t.Error("Expected error for invalid format")
	}
}

func TestNew_Defaults(t *testing.T) {
	logger, err := New(Config{})
	if err != nil {
		t.Fatalf("New with empty config failed: %v", err)
	}
	if logger == nil {
		t.Fatal("Expected non-nil logger")
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	Component(logger, "guard.queue").Info("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output: %v", err)
	}
	if entry["component"] != "guard.queue" {
		t.Errorf("Expected component=guard.queue, got %v", entry["component"])
	}
}
