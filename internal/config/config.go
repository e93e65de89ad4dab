package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Input names the card files fed into a run. Update is optional; a run with
// only a source file normalizes that one file in place.
type Input struct {
	Source string `toml:"source"`
	Update string `toml:"update"`
}

// Output controls where and how merged cards are written.
type Output struct {
	Path     string `toml:"path"`
	Split    bool   `toml:"split"`
	SplitDir string `toml:"split_dir"`
	Version  string `toml:"version"`
}

// Backup controls the timestamped copy taken of an existing output file
// before it is overwritten.
type Backup struct {
	Enabled bool   `toml:"enabled"`
	Suffix  string `toml:"suffix"`
}

// Encoding controls the whole-file fallback decode used when an input file is
// not valid UTF-8.
type Encoding struct {
	FallbackEnabled bool   `toml:"fallback_enabled"`
	FallbackCharset string `toml:"fallback_charset"`
}

// Phone holds the validation thresholds for candidate phone numbers.
type Phone struct {
	MinDigits       int      `toml:"min_digits"`
	CheckDuplicates bool     `toml:"check_duplicates"`
	MobilePrefixes  []string `toml:"mobile_prefixes"`
}

// Conflict lists which fields prefer which side when both input files carry a
// value for the same contact.
type Conflict struct {
	PreferUpdate []string `toml:"prefer_update"`
	PreferSource []string `toml:"prefer_source"`
}

// TextReplacement is one literal rewrite applied by the mojibake repairer.
type TextReplacement struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

// Mojibake controls the text repair pass.
type Mojibake struct {
	Enabled      bool              `toml:"enabled"`
	Replacements []TextReplacement `toml:"replacements"`
}

// Reports toggles the post-run output validation and merge audit reports.
type Reports struct {
	Validation bool `toml:"validation"`
	Audit      bool `toml:"audit"`
}

// Logging configures log output shape and routing.
type Logging struct {
	Level           string   `toml:"level"`
	Format          string   `toml:"format"`
	Dir             string   `toml:"dir"`
	RetentionDays   int      `toml:"retention_days"`
	TraceIdentities []string `toml:"trace_identities"`
}

type Config struct {
	Input    Input    `toml:"input"`
	Output   Output   `toml:"output"`
	Backup   Backup   `toml:"backup"`
	Encoding Encoding `toml:"encoding"`
	Phone    Phone    `toml:"phone"`
	Conflict Conflict `toml:"conflict"`
	Mojibake Mojibake `toml:"mojibake"`
	Reports  Reports  `toml:"reports"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vcfmerge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	return LoadWithOverrides(path, Overrides{})
}

// Overrides carries command-line values that take precedence over the file.
// Zero fields leave the loaded value in place.
type Overrides struct {
	Source string
	Update string
	Output string
	Split  bool
}

func (o Overrides) apply(c *Config) {
	if v := strings.TrimSpace(o.Source); v != "" {
		c.Input.Source = v
	}
	if v := strings.TrimSpace(o.Update); v != "" {
		c.Input.Update = v
	}
	if v := strings.TrimSpace(o.Output); v != "" {
		c.Output.Path = v
	}
	if o.Split {
		c.Output.Split = true
	}
}

// LoadWithOverrides is Load with command-line values applied between file
// decode and validation, so overridden paths are expanded and checked the
// same way file values are.
func LoadWithOverrides(path string, overrides Overrides) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	overrides.apply(&cfg)

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vcfmerge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into. The output
// file's parent is created on a best-effort basis so a bare filename in the
// working directory keeps working.
func (c *Config) EnsureDirectories() error {
	if dir := strings.TrimSpace(c.Logging.Dir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Output.Split {
		if err := os.MkdirAll(c.Output.SplitDir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", c.Output.SplitDir, err)
		}
	}
	if dir := filepath.Dir(c.Output.Path); dir != "" && dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
