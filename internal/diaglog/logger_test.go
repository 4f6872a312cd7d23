package diaglog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoggerWritesWhenEnabledAndLevelMatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "diagnostics.log")
	logger := New(path)
	defer logger.Close()

	if err := logger.Configure(true, "debug"); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	logger.Debugf("debug message %d", 42)
	logger.Infof("info message")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "[DEBUG] debug message 42") {
		t.Fatalf("expected debug line in log: %q", text)
	}
	if !strings.Contains(text, "[INFO] info message") {
		t.Fatalf("expected info line in log: %q", text)
	}
}

func TestLoggerRespectsLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf)

	if err := logger.Configure(true, "warning"); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	logger.Debugf("debug hidden")
	logger.Infof("info hidden")
	logger.Warnf("warn shown")
	logger.Errorf("error shown")

	text := buf.String()
	if strings.Contains(text, "debug hidden") || strings.Contains(text, "info hidden") {
		t.Fatalf("unexpected filtered lines in log: %q", text)
	}
	if !strings.Contains(text, "[WARN] warn shown") || !strings.Contains(text, "[ERROR] error shown") {
		t.Fatalf("expected warning and error lines in log: %q", text)
	}
}

func TestLoggerDisableStopsWriting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagnostics.log")
	logger := New(path)
	defer logger.Close()

	if err := logger.Configure(true, "debug"); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	logger.Infof("before disable")
	if err := logger.Configure(false, "debug"); err != nil {
		t.Fatalf("Configure disable failed: %v", err)
	}
	logger.Errorf("after disable")
	if logger.Enabled() {
		t.Fatalf("expected logger to be disabled")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "before disable") {
		t.Fatalf("expected line before disable in log: %q", text)
	}
	if strings.Contains(text, "after disable") {
		t.Fatalf("did not expect line after disable in log: %q", text)
	}
}

func TestLoggerLineFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf)
	logger.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.FixedZone("CEST", 7200)) }
	if err := logger.Configure(true, ""); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	logger.Warnf("rejected %s", "profile")

	want := "2024-05-01T10:30:00Z [WARN] rejected profile\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"":        LevelInfo,
		" INFO ":  LevelInfo,
		"warn":    LevelWarn,
		"Warning": LevelWarn,
		"error":   LevelError,
	}
	for raw, want := range tests {
		got, err := ParseLevel(raw)
		if err != nil {
			t.Fatalf("ParseLevel(%q) error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if err := Discard().Configure(true, "verbose"); err == nil {
		t.Fatalf("Configure must reject unknown levels")
	}
}
