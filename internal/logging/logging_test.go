package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayushman-7/AI-Model-deployment/internal/config"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	cfg := config.Default().Log
	cfg.Level = "loud"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	cfg := config.Default().Log
	cfg.File = path

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("model loaded")
	logger.Debug("below level")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "model loaded") {
		t.Fatalf("log file missing entry: %s", data)
	}
	if strings.Contains(string(data), "below level") {
		t.Fatalf("debug entry written at info level: %s", data)
	}
}
