package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func decodeEntry(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", data, err)
	}
	return entry
}

func TestNewStructuredLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := NewStructuredLogger(Config{
		Level:  slog.LevelInfo,
		Format: FormatJSON,
		Output: &buf,
	})
	defer closer.Close()

	logger.Info("build complete", "target", "widget")

	entry := decodeEntry(t, buf.Bytes())
	if entry["msg"] != "build complete" {
		t.Errorf("expected msg 'build complete', got %v", entry["msg"])
	}
	if entry["target"] != "widget" {
		t.Errorf("expected target 'widget', got %v", entry["target"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("expected time under the 'ts' key")
	}
}

func TestNewStructuredLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewStructuredLogger(Config{
		Level:  slog.LevelInfo,
		Format: FormatText,
		Output: &buf,
	})

	logger.Info("serving", "url", "http://127.0.0.1:8080")

	got := buf.String()
	if !strings.Contains(got, "msg=serving") || !strings.Contains(got, "url=http://127.0.0.1:8080") {
		t.Errorf("unexpected text output: %q", got)
	}
}

func TestNewStructuredLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewStructuredLogger(Config{
		Level:  slog.LevelWarn,
		Format: FormatJSON,
		Output: &buf,
	})

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info record should be filtered at warn level, got %q", buf.String())
	}
}

func TestNewStructuredLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewStructuredLogger(Config{
		Level:     slog.LevelInfo,
		Format:    FormatJSON,
		Output:    &buf,
		Component: "bundle",
	})

	logger.Info("test message")

	if entry := decodeEntry(t, buf.Bytes()); entry["component"] != "bundle" {
		t.Errorf("expected component 'bundle', got %v", entry["component"])
	}
}

func TestNewStructuredLogger_File(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "ccbuild.log")

	logger, closer := NewStructuredLogger(Config{
		Level:  slog.LevelDebug,
		Format: FormatText,
		Output: &buf,
		File:   path,
	})
	logger.With("target", "widget").Debug("resolved descriptor", "mode", "production")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !strings.Contains(buf.String(), "resolved descriptor") {
		t.Errorf("expected record on the primary output, got %q", buf.String())
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("log file is empty")
	}
	entry := decodeEntry(t, scanner.Bytes())
	if entry["msg"] != "resolved descriptor" || entry["target"] != "widget" || entry["mode"] != "production" {
		t.Errorf("unexpected file entry: %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected LogFormat
	}{
		{"json", FormatJSON},
		{"text", FormatText},
		{"TEXT", FormatText},
		{"pretty", FormatText},
		{"unknown", FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFormat(tt.input); got != tt.expected {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestWithBuildID(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewStructuredLogger(Config{Format: FormatJSON, Output: &buf})

	WithComponent(WithBuildID(logger, "b-123"), "verify").Info("checked")

	entry := decodeEntry(t, buf.Bytes())
	if entry["build_id"] != "b-123" {
		t.Errorf("expected build_id 'b-123', got %v", entry["build_id"])
	}
	if entry["component"] != "verify" {
		t.Errorf("expected component 'verify', got %v", entry["component"])
	}
}

func TestDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not enable any level")
	}
}
