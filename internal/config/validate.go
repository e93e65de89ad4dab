package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. File existence is checked at
// run time, not here, so inspection commands work before inputs are in place.
func (c *Config) Validate() error {
	if err := c.validateInput(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validatePhone(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateInput() error {
	if c.Input.Source == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/vcfmerge/config.toml"
		}
		return fmt.Errorf("input.source is required. Edit %s (create with 'vcfmerge config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateOutput() error {
	if c.Output.Path == "" {
		return errors.New("output.path must be set")
	}
	if c.Output.Split && c.Output.SplitDir == "" {
		return errors.New("output.split_dir must be set when output.split is true")
	}
	return nil
}

func (c *Config) validatePhone() error {
	if c.Phone.MinDigits < 1 {
		return errors.New("phone.min_digits must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
