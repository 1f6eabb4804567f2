package testsupport

import (
	"testing"

	"ledgercast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Worker pacing and poll cadence are shortened so lifecycle tests finish
// quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = base + "/data"
	cfg.Paths.LogDir = base + "/logs"
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Worker.ClaimInterval = 1
	cfg.Worker.StepInterval = 5
	cfg.Sync.PollInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithStepInterval overrides the synthesizer step pacing in milliseconds.
func WithStepInterval(ms int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Worker.StepInterval = ms
	}
}

// WithPollSettings overrides the sync polling knobs.
func WithPollSettings(interval, threshold, backoffMax int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sync.PollInterval = interval
		cfg.Sync.PollFailureThreshold = threshold
		cfg.Sync.PollBackoffMax = backoffMax
	}
}
