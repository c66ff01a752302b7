package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	InitLogger(path, false)
	Log.Infow("hello from test", "key", "value")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "hello from test") {
		t.Errorf("Expected message in log file, got %q", content)
	}
	if !strings.Contains(content, "INFO") {
		t.Errorf("Expected capital level in log file, got %q", content)
	}
}

func TestInitLoggerDropsDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")

	InitLogger(path, false)
	Log.Debug("not written")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if strings.Contains(string(data), "not written") {
		t.Error("Debug messages should not reach the log file")
	}
}
