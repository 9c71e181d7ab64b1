package log

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConvertStringToLogLevel(t *testing.T) {
	level, err := convertStringToLogLevel("DEBUG")
	if err != nil || level != slog.LevelDebug {
		t.Errorf("Expected DEBUG without error, got %v %v", level, err)
	}

	level, err = convertStringToLogLevel("trace")
	if err == nil {
		t.Errorf("Expected error for unknown level")
	}
	if level != slog.LevelInfo {
		t.Errorf("Expected INFO as fallback, got %v", level)
	}
}

func TestInitLogger_CreatesFile(t *testing.T) {
	previous := slog.Default()
	defer slog.SetDefault(previous)

	logPath := filepath.Join(t.TempDir(), "logs", "kernel.log")
	InitLogger(logPath, "INFO")

	slog.Info("## PID: 1 - Prueba de log")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Expected log file to exist: %v", err)
	}
	if !strings.Contains(string(content), "Prueba de log") {
		t.Errorf("Expected log line in file, got %q", string(content))
	}
}
