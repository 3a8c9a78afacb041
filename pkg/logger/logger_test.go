package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(&Config{Level: "verbose"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestSetLevelSharedWithChildren(t *testing.T) {
	log, err := New(&Config{Level: LevelError, Quiet: true})
	if err != nil {
		t.Fatal(err)
	}
	child := log.WithFields(zap.String("component", "test"))

	if child.Core().Enabled(zap.DebugLevel) {
		t.Fatal("debug should be disabled at error level")
	}
	if err := log.SetLevel(LevelDebug); err != nil {
		t.Fatal(err)
	}
	if !child.Core().Enabled(zap.DebugLevel) {
		t.Fatal("child should follow the parent's level change")
	}
	if log.Level() != LevelDebug {
		t.Fatalf("expected debug, got %s", log.Level())
	}
	if err := log.SetLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "test.log")
	log, err := New(&Config{Level: LevelInfo, OutputPath: path, Quiet: true, MaxSize: 1})
	if err != nil {
		t.Fatal(err)
	}

	log.Info("written to file", zap.String("key", "value"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Fatalf("log file missing entry: %s", data)
	}
}

func TestNop(t *testing.T) {
	log := NewNop()
	log.Info("discarded")
	log.Named("child").Warn("also discarded")
}
