package testsupport

import (
	"path/filepath"
	"testing"

	"vcfmerge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp paths per test. Input
// files are named but not created; pair with WithSource and WithUpdate or
// write them directly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Input.Source = filepath.Join(base, "source.vcf")
	cfgVal.Output.Path = filepath.Join(base, "contacts_final.vcf")
	cfgVal.Output.SplitDir = filepath.Join(base, "split")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSource writes the source card file with the given content.
func WithSource(content string) ConfigOption {
	return func(b *configBuilder) {
		WriteFile(b.t, b.cfg.Input.Source, content)
	}
}

// WithUpdate configures an update card file and writes its content.
func WithUpdate(content string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Input.Update = filepath.Join(b.baseDir, "update.vcf")
		WriteFile(b.t, b.cfg.Input.Update, content)
	}
}

// WithMissingUpdate configures an update path that does not exist on disk.
func WithMissingUpdate() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Input.Update = filepath.Join(b.baseDir, "update.vcf")
	}
}

// WithSplit enables per-contact split file output.
func WithSplit() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.Split = true
	}
}

// WithReports enables the validation and audit reports.
func WithReports() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reports.Validation = true
		b.cfg.Reports.Audit = true
	}
}

// WithoutRepair disables the mojibake repair pass.
func WithoutRepair() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Mojibake.Enabled = false
	}
}

// WithoutBackup disables the pre-run backup of an existing output file.
func WithoutBackup() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backup.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Input.Source)
}
