package main

import (
	"fmt"
	"strings"
	"sync"

	"ledgercast/internal/config"
	"ledgercast/internal/job"
	"ledgercast/internal/syncer"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// apiAddress resolves the daemon address from the flag, falling back to the
// configured bind.
func (c *commandContext) apiAddress() (string, error) {
	if c.apiFlag != nil {
		if addr := strings.TrimSpace(*c.apiFlag); addr != "" {
			return addr, nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return cfg.Paths.APIBind, nil
}

func (c *commandContext) newClient() (*syncer.Client, error) {
	addr, err := c.apiAddress()
	if err != nil {
		return nil, err
	}
	return syncer.NewClient(addr), nil
}

func (c *commandContext) syncOptions() syncer.Options {
	cfg, err := c.ensureConfig()
	if err != nil {
		return syncer.Options{}
	}
	return syncer.OptionsFromConfig(cfg)
}

// pairFromArgs validates the positional <target> <type> arguments.
func pairFromArgs(args []string) (string, job.Type, error) {
	target := strings.TrimSpace(args[0])
	if target == "" {
		return "", "", fmt.Errorf("target is required")
	}
	jobType, ok := job.ParseType(args[1])
	if !ok {
		return "", "", fmt.Errorf("unknown job type %q (expected report or podcast)", args[1])
	}
	return target, jobType, nil
}
