package main

import (
	"strings"
	"sync"

	"vcfmerge/internal/config"
	"vcfmerge/internal/services"
)

// commandContext defers configuration loading until a command actually needs
// it, so scaffolding commands like `config init` work before a valid file
// exists.
type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// flagPath returns the trimmed --config value.
func (c *commandContext) flagPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// ensureConfig loads and validates the configuration once per invocation.
// Load failures classify as configuration errors so the process exits with
// the dedicated code. Loading has no filesystem side effects; commands that
// need the configured directories create them themselves.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(c.flagPath())
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "load configuration", "", err)
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}
