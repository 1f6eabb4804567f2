package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.ClaimInterval <= 0 {
		return errors.New("worker.claim_interval must be positive")
	}
	if c.Worker.StepInterval <= 0 {
		return errors.New("worker.step_interval_ms must be positive")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.PollInterval <= 0 {
		return errors.New("sync.poll_interval must be positive")
	}
	if c.Sync.PollFailureThreshold <= 0 {
		return errors.New("sync.poll_failure_threshold must be positive")
	}
	if c.Sync.PollBackoffMax < c.Sync.PollInterval {
		return fmt.Errorf("sync.poll_backoff_max must be at least sync.poll_interval (%d)", c.Sync.PollInterval)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
