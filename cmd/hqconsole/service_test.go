package main

import (
	"path/filepath"
	"reflect"
	"testing"

	"hqconsole/pkg/config"
)

func resetHubFlags(t *testing.T) {
	t.Helper()
	savedPath, savedDemo, savedRedis := configPath, hubDemo, hubRedis
	t.Cleanup(func() {
		configPath, hubDemo, hubRedis = savedPath, savedDemo, savedRedis
	})
}

func TestServiceArguments(t *testing.T) {
	dir := t.TempDir()
	flagFile := filepath.Join(dir, "hub.yaml")
	envFile := filepath.Join(dir, "env.json")

	tests := []struct {
		name  string
		path  string
		env   string
		demo  bool
		redis bool
		want  []string
	}{
		{"plain", "", "", false, false, []string{"hub", "run"}},
		{"demo feeder", "", "", true, false, []string{"hub", "run", "--demo"}},
		{"redis relay", "", "", false, true, []string{"hub", "run", "--redis"}},
		{"both sources", "", "", true, true, []string{"hub", "run", "--demo", "--redis"}},
		{"config flag", flagFile, "", false, true, []string{"-c", flagFile, "hub", "run", "--redis"}},
		{"config env", "", envFile, true, false, []string{"-c", envFile, "hub", "run", "--demo"}},
		{"flag beats env", flagFile, envFile, false, false, []string{"-c", flagFile, "hub", "run"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetHubFlags(t)
			configPath, hubDemo, hubRedis = tt.path, tt.demo, tt.redis
			t.Setenv(config.ConfigPathEnv, tt.env)

			got := ServiceConfig().Arguments
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected arguments %v, got %v", tt.want, got)
			}
		})
	}
}

func TestServiceArgumentsResolveToHubRun(t *testing.T) {
	resetHubFlags(t)
	configPath, hubDemo, hubRedis = "", true, true
	t.Setenv(config.ConfigPathEnv, "")

	args := ServiceConfig().Arguments
	cmd, rest, err := rootCmd.Find(args)
	if err != nil {
		t.Fatalf("resolving %v: %v", args, err)
	}
	if cmd != hubRunCmd {
		t.Fatalf("expected the hub run command, got %q", cmd.CommandPath())
	}
	if err := cmd.ParseFlags(rest); err != nil {
		t.Fatalf("parsing %v: %v", rest, err)
	}
	for _, name := range []string{"demo", "redis"} {
		if f := cmd.Flags().Lookup(name); f == nil || f.Value.String() != "true" {
			t.Errorf("expected --%s set on hub run", name)
		}
	}
}

func TestServiceIdentity(t *testing.T) {
	resetHubFlags(t)
	t.Setenv(config.ConfigPathEnv, "")

	cfg := ServiceConfig()
	if cfg.Name != "hqconsole-hub" {
		t.Fatalf("unexpected service name %q", cfg.Name)
	}
	if cfg.DisplayName == "" || cfg.Description == "" {
		t.Fatal("expected display name and description")
	}
}
