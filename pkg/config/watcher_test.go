package config

import (
	"path/filepath"
	"testing"

	"hqconsole/pkg/logger"
)

func TestWatcherReloadAppliesLoggerLevel(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")

	loader := NewLoader()
	cfg, err := loader.Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	log, err := logger.New(&logger.Config{Level: logger.LevelInfo, Quiet: true})
	if err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(loader, cfg, log)
	w.AddHandler(LevelReloader(log))
	w.watching = true

	updated := DefaultConfig()
	updated.Logger.Level = "debug"
	if err := loader.Save(cfgPath, updated); err != nil {
		t.Fatalf("save config: %v", err)
	}

	w.reload(cfgPath)

	if log.Level() != logger.LevelDebug {
		t.Fatalf("expected debug level after reload, got %s", log.Level())
	}
	if w.GetConfig().Logger.Level != "debug" {
		t.Fatalf("expected reloaded config, got level %q", w.GetConfig().Logger.Level)
	}
}

func TestWatcherKeepsPreviousOnInvalidReload(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")

	loader := NewLoader()
	cfg, err := loader.Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	w := NewWatcher(loader, cfg, logger.NewNop())
	w.watching = true

	broken := DefaultConfig()
	broken.Confirm.Mode = "never"
	if err := loader.Save(cfgPath, broken); err != nil {
		t.Fatalf("save config: %v", err)
	}

	w.reload(cfgPath)

	if w.GetConfig() != cfg {
		t.Fatal("expected previous config to be kept")
	}
}
