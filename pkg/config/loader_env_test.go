package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_UsesConfigPathEnvWhenPathEmpty(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "from-env.json")

	seed := DefaultConfig()
	seed.Transport.URL = "ws://hq.example:9000/ws"

	if err := NewLoader().Save(cfgPath, seed); err != nil {
		t.Fatalf("save config: %v", err)
	}

	t.Setenv(ConfigPathEnv, cfgPath)

	got, err := NewLoader().Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got.Transport.URL != "ws://hq.example:9000/ws" {
		t.Fatalf("expected url from file, got %q", got.Transport.URL)
	}
}

func TestLoad_AutoCreatesConfigForExplicitPath(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "custom", "config.json")

	got, err := NewLoader().Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}
	if got.Transport.WriteQueue != DefaultConfig().Transport.WriteQueue {
		t.Fatalf("expected default write queue, got %d", got.Transport.WriteQueue)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	if err := NewLoader().Save(cfgPath, DefaultConfig()); err != nil {
		t.Fatalf("save config: %v", err)
	}

	t.Setenv("HQCONSOLE_CONFIRM_MODE", "deny")
	t.Setenv("HQCONSOLE_TRANSPORT_WRITE_QUEUE", "8")

	got, err := NewLoader().Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got.Confirm.Mode != "deny" {
		t.Fatalf("expected confirm mode from env, got %q", got.Confirm.Mode)
	}
	if got.Transport.WriteQueue != 8 {
		t.Fatalf("expected write queue 8 from env, got %d", got.Transport.WriteQueue)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "partial.json")
	content := `{"hub": {"port": 19000}}`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, err := NewLoader().Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got.Hub.Port != 19000 {
		t.Fatalf("expected hub port 19000, got %d", got.Hub.Port)
	}
	if len(got.Confirm.Destructive) != 2 {
		t.Fatalf("expected default destructive list, got %v", got.Confirm.Destructive)
	}
}
