package pipeline

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"vcfmerge/internal/config"
	"vcfmerge/internal/export"
	"vcfmerge/internal/fileutil"
	"vcfmerge/internal/ingest"
	"vcfmerge/internal/logging"
	"vcfmerge/internal/merge"
	"vcfmerge/internal/mojibake"
	"vcfmerge/internal/report"
	"vcfmerge/internal/services"
	"vcfmerge/internal/vcard"
)

// Options adjusts a single run without editing configuration.
type Options struct {
	// SkipDedupe leaves spelling-variant duplicates in the output. The merge
	// of update into source still happens; only the whole-set fold is skipped.
	SkipDedupe bool
}

// Result carries the statistics of one completed run.
type Result struct {
	RunID            string
	SourceCount      int
	UpdateCount      int
	MergedCount      int
	DuplicatesFolded int
	Written          int
	OutputPath       string
	ValidationPath   string
	AuditPath        string
	Elapsed          time.Duration
}

// Runner executes the merge pipeline. Stages run strictly in sequence; the
// two input files are never read concurrently.
type Runner struct {
	cfg       *config.Config
	logger    *slog.Logger
	parser    *ingest.Parser
	engine    *merge.Engine
	dedupe    *merge.Deduplicator
	writer    *export.Writer
	validator *report.Validator
	auditor   *report.Auditor
}

// NewRunner wires every stage from one configuration. All stages share a
// single repairer so ingest and export normalize text the same way.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	repairer := newRepairer(cfg, logger)
	engine := merge.NewEngine(cfg, ingest.NewMiner(cfg), logger)
	return &Runner{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		parser:    ingest.NewParser(cfg, repairer, logger),
		engine:    engine,
		dedupe:    merge.NewDeduplicator(engine, logger),
		writer:    export.NewWriter(cfg, repairer, logger),
		validator: report.NewValidator(logger),
		auditor:   report.NewAuditor(logger),
	}
}

// newRepairer converts the configured replacements. Disabled repair still
// yields a usable value; the zero repairer passes text through unchanged.
func newRepairer(cfg *config.Config, logger *slog.Logger) *mojibake.Repairer {
	if !cfg.Mojibake.Enabled {
		return &mojibake.Repairer{}
	}
	replacements := make([]mojibake.Replacement, 0, len(cfg.Mojibake.Replacements))
	for _, rep := range cfg.Mojibake.Replacements {
		replacements = append(replacements, mojibake.Replacement{From: rep.From, To: rep.To})
	}
	return mojibake.New(replacements, logger)
}

// Run executes one full pass and writes the output file. The lock lives next
// to the output so two runs cannot write it at the same time regardless of
// their working directories; a held lock aborts before any mutation, as does
// a missing source file.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)

	if _, err := os.Stat(r.cfg.Input.Source); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "locate source file", r.cfg.Input.Source, err)
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrIO, "pipeline", "create directories", "", err)
	}

	lockPath := r.cfg.Output.Path + ".lock"
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "pipeline", "acquire run lock", lockPath, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "acquire run lock",
			"another run is already writing "+r.cfg.Output.Path, nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release run lock",
				logging.String("lock", lockPath),
				logging.Error(err))
		}
	}()

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("source", r.cfg.Input.Source),
		logging.String("update", r.cfg.Input.Update),
		logging.String("output", r.cfg.Output.Path))

	if r.cfg.Backup.Enabled {
		backupPath, err := fileutil.Backup(r.cfg.Output.Path, r.cfg.Backup.Suffix, time.Now())
		if err != nil {
			return nil, services.Wrap(services.ErrIO, "pipeline", "back up output file", r.cfg.Output.Path, err)
		}
		if backupPath != "" {
			logger.Info("existing output backed up", logging.String("backup", backupPath))
		}
	}

	sets, err := r.collect(ctx, opts)
	if err != nil {
		return nil, err
	}

	written, err := r.writer.Write(services.WithPhase(ctx, "export"), sets.final)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:            runID,
		SourceCount:      sets.source.Len(),
		UpdateCount:      sets.update.Len(),
		MergedCount:      sets.merged,
		DuplicatesFolded: sets.folded,
		Written:          written,
		OutputPath:       r.cfg.Output.Path,
	}

	reportCtx := services.WithPhase(ctx, "report")
	if r.cfg.Reports.Validation {
		scan, err := r.validator.ValidateFile(reportCtx, r.cfg.Output.Path)
		if err != nil {
			return nil, err
		}
		path := report.ValidationPath(r.cfg.Output.Path)
		if err := scan.WriteFile(path); err != nil {
			return nil, err
		}
		result.ValidationPath = path
	}
	if r.cfg.Reports.Audit {
		audit := r.auditor.Audit(reportCtx, sets.source, sets.update, sets.final)
		path := report.AuditPath(r.cfg.Output.Path)
		if err := audit.WriteFile(path); err != nil {
			return nil, err
		}
		result.AuditPath = path
	}

	result.Elapsed = time.Since(start)
	logger.Info("run complete",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("source_contacts", result.SourceCount),
		logging.Int("update_contacts", result.UpdateCount),
		logging.Int("duplicates_folded", result.DuplicatesFolded),
		logging.Int("written", result.Written),
		logging.Duration("elapsed", result.Elapsed))
	return result, nil
}

// Audit runs the read stages and compares field population across them
// without locking or writing anything. Duplicates always fold here so the
// final column mirrors what a default run would write.
func (r *Runner) Audit(ctx context.Context) (*report.AuditResult, error) {
	ctx = services.WithRunID(ctx, uuid.NewString())
	if _, err := os.Stat(r.cfg.Input.Source); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "locate source file", r.cfg.Input.Source, err)
	}
	sets, err := r.collect(ctx, Options{})
	if err != nil {
		return nil, err
	}
	return r.auditor.Audit(services.WithPhase(ctx, "report"), sets.source, sets.update, sets.final), nil
}

// stageSets holds the record sets the read stages produce. source and update
// stay untouched after ingest so the auditor can compare them against final.
type stageSets struct {
	source *vcard.Set
	update *vcard.Set
	final  *vcard.Set
	merged int
	folded int
}

// collect runs both ingests, the name-keyed merge, and the optional
// duplicate fold. A configured update file that is missing on disk degrades
// to a source-only run with a warning.
func (r *Runner) collect(ctx context.Context, opts Options) (*stageSets, error) {
	ingestCtx := services.WithPhase(ctx, "ingest")
	source, err := r.parser.ParseFile(ingestCtx, r.cfg.Input.Source)
	if err != nil {
		return nil, err
	}

	update := vcard.NewSet()
	if path := r.cfg.Input.Update; path != "" {
		if _, statErr := os.Stat(path); statErr != nil {
			logging.WarnWithContext(logging.WithContext(ctx, r.logger),
				"update file missing; merging source only", "update_file_missing",
				logging.String("file", path),
				logging.String(logging.FieldErrorHint, "check input.update in the configuration"),
				logging.String(logging.FieldImpact, "output carries source contacts only"))
		} else {
			update, err = r.parser.ParseFile(ingestCtx, path)
			if err != nil {
				return nil, err
			}
		}
	}

	mergeCtx := services.WithPhase(ctx, "merge")
	combined := source.Clone()
	mergedPairs := 0
	added := 0
	for _, name := range update.Names() {
		rec, ok := update.Get(name)
		if !ok {
			continue
		}
		if existing, found := combined.Get(name); found {
			combined.Put(name, r.engine.Merge(existing, rec))
			mergedPairs++
			continue
		}
		combined.Put(name, rec.Clone())
		added++
	}
	logging.WithContext(mergeCtx, r.logger).Info("record sets combined",
		logging.Int("source_contacts", source.Len()),
		logging.Int("update_contacts", update.Len()),
		logging.Int("merged", mergedPairs),
		logging.Int("added", added),
		logging.Int("total", combined.Len()))

	sets := &stageSets{source: source, update: update, final: combined, merged: combined.Len()}
	if opts.SkipDedupe {
		return sets, nil
	}
	sets.final, sets.folded = r.dedupe.Fold(combined)
	return sets, nil
}
