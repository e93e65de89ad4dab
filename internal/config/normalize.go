package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOutput()
	c.normalizeBackup()
	c.normalizeEncoding()
	c.normalizePhone()
	c.normalizeConflict()
	c.normalizeMojibake()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	c.Input.Source = strings.TrimSpace(c.Input.Source)
	if c.Input.Source != "" {
		if c.Input.Source, err = expandPath(c.Input.Source); err != nil {
			return fmt.Errorf("input.source: %w", err)
		}
	}
	c.Input.Update = strings.TrimSpace(c.Input.Update)
	if c.Input.Update != "" {
		if c.Input.Update, err = expandPath(c.Input.Update); err != nil {
			return fmt.Errorf("input.update: %w", err)
		}
	}
	c.Output.Path = strings.TrimSpace(c.Output.Path)
	if c.Output.Path != "" {
		if c.Output.Path, err = expandPath(c.Output.Path); err != nil {
			return fmt.Errorf("output.path: %w", err)
		}
	}
	if strings.TrimSpace(c.Output.SplitDir) == "" {
		c.Output.SplitDir = defaultSplitDir
	}
	if c.Output.SplitDir, err = expandPath(c.Output.SplitDir); err != nil {
		return fmt.Errorf("output.split_dir: %w", err)
	}
	c.Logging.Dir = strings.TrimSpace(c.Logging.Dir)
	if c.Logging.Dir != "" {
		if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeOutput() {
	c.Output.Version = strings.TrimSpace(c.Output.Version)
	if c.Output.Version == "" {
		c.Output.Version = defaultCardVersion
	}
}

func (c *Config) normalizeBackup() {
	if strings.TrimSpace(c.Backup.Suffix) == "" {
		c.Backup.Suffix = defaultBackupSuffix
	}
}

func (c *Config) normalizeEncoding() {
	c.Encoding.FallbackCharset = strings.ToLower(strings.TrimSpace(c.Encoding.FallbackCharset))
	if c.Encoding.FallbackCharset == "" {
		c.Encoding.FallbackCharset = defaultFallbackCharset
	}
}

func (c *Config) normalizePhone() {
	c.Phone.MobilePrefixes = dedupeTrimmed(c.Phone.MobilePrefixes, func(s string) string { return s })
}

func (c *Config) normalizeConflict() {
	c.Conflict.PreferUpdate = dedupeTrimmed(c.Conflict.PreferUpdate, strings.ToUpper)
	c.Conflict.PreferSource = dedupeTrimmed(c.Conflict.PreferSource, strings.ToUpper)
}

func (c *Config) normalizeMojibake() {
	if len(c.Mojibake.Replacements) == 0 {
		return
	}
	kept := c.Mojibake.Replacements[:0]
	for _, rep := range c.Mojibake.Replacements {
		if rep.From == "" {
			continue
		}
		kept = append(kept, rep)
	}
	c.Mojibake.Replacements = kept
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	c.Logging.TraceIdentities = dedupeTrimmed(c.Logging.TraceIdentities, func(s string) string { return s })
}

// dedupeTrimmed trims each entry, applies the canonical form, and drops
// empties and duplicates while preserving first-seen order.
func dedupeTrimmed(values []string, canon func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	kept := values[:0]
	for _, v := range values {
		v = canon(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		kept = append(kept, v)
	}
	return kept
}
