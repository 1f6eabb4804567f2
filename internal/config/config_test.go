package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ledgercast/internal/config"
)

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")

	cfg, path, exists, err := config.Load(missing)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected no config file found")
	}
	if path != missing {
		t.Fatalf("expected resolved path %s, got %s", missing, path)
	}
	if cfg.Paths.APIBind != "127.0.0.1:8319" {
		t.Fatalf("unexpected default bind %q", cfg.Paths.APIBind)
	}
	if cfg.Sync.PollInterval != 2 || cfg.Sync.PollFailureThreshold != 3 {
		t.Fatalf("unexpected sync defaults: %#v", cfg.Sync)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %#v", cfg.Logging)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"
log_dir = "` + dir + `/logs"
api_bind = " 127.0.0.1:9000 "

[sync]
poll_interval = 5
poll_backoff_max = 60

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file found")
	}
	if cfg.Paths.APIBind != "127.0.0.1:9000" {
		t.Fatalf("bind not trimmed: %q", cfg.Paths.APIBind)
	}
	if cfg.Sync.PollInterval != 5 || cfg.Sync.PollBackoffMax != 60 {
		t.Fatalf("sync values not applied: %#v", cfg.Sync)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging values not normalized: %#v", cfg.Logging)
	}
	// Unset sections keep their defaults.
	if cfg.Worker.StepInterval != 750 {
		t.Fatalf("unexpected worker default: %#v", cfg.Worker)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "zero poll interval",
			content: "[sync]\npoll_interval = 0\n",
			wantErr: "poll_interval",
		},
		{
			name:    "backoff below interval",
			content: "[sync]\npoll_interval = 10\npoll_backoff_max = 5\n",
			wantErr: "poll_backoff_max",
		},
		{
			name:    "bad log format",
			content: "[logging]\nformat = \"xml\"\n",
			wantErr: "logging.format",
		},
		{
			name:    "zero claim interval",
			content: "[worker]\nclaim_interval = 0\n",
			wantErr: "claim_interval",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[paths]") {
		t.Fatalf("sample config missing paths section: %s", data)
	}

	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
