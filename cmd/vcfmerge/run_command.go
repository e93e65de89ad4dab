package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"vcfmerge/internal/config"
	"vcfmerge/internal/logging"
	"vcfmerge/internal/pipeline"
	"vcfmerge/internal/services"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		sourceFlag string
		updateFlag string
		outputFlag string
		splitFlag  bool
		noDedupe   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Merge the configured contact files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.LoadWithOverrides(ctx.flagPath(), config.Overrides{
				Source: sourceFlag,
				Update: updateFlag,
				Output: outputFlag,
				Split:  splitFlag,
			})
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "cli", "load configuration", "", err)
			}

			start := time.Now()
			logger, logPath, err := newRunLogger(cfg, start)
			if err != nil {
				return services.Wrap(services.ErrIO, "cli", "init logger", "", err)
			}
			if logPath != "" {
				logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
					logging.RetentionTarget{Dir: cfg.Logging.Dir, Pattern: "vcfmerge-*.log", Exclude: []string{logPath}})
			}

			result, err := pipeline.NewRunner(cfg, logger).Run(cmd.Context(), pipeline.Options{SkipDedupe: noDedupe})
			if err != nil {
				return err
			}

			printRunSummary(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceFlag, "source", "", "Source card file (overrides input.source)")
	cmd.Flags().StringVar(&updateFlag, "update", "", "Update card file (overrides input.update)")
	cmd.Flags().StringVar(&outputFlag, "output", "", "Merged output file (overrides output.path)")
	cmd.Flags().BoolVar(&splitFlag, "split", false, "Also write one file per contact")
	cmd.Flags().BoolVar(&noDedupe, "no-dedupe", false, "Keep spelling-variant duplicates instead of folding them")
	return cmd
}

// newRunLogger builds the run logger. Output goes to the console and, when a
// log directory is configured, to a per-run file named after the start time.
// Configured trace identities force the debug level so their records reach
// the handler regardless of the configured level.
func newRunLogger(cfg *config.Config, start time.Time) (*slog.Logger, string, error) {
	level := cfg.Logging.Level
	if len(cfg.Logging.TraceIdentities) > 0 {
		level = "debug"
	}
	opts := logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	var logPath string
	if cfg.Logging.Dir != "" {
		logPath = logging.RunLogPath(cfg.Logging.Dir, start)
		opts.OutputPaths = append(opts.OutputPaths, logPath)
		opts.ErrorOutputPaths = append(opts.ErrorOutputPaths, logPath)
	}
	logger, err := logging.New(opts)
	if err != nil {
		return nil, "", err
	}
	return logger, logPath, nil
}

func printRunSummary(out io.Writer, result *pipeline.Result) {
	headers := []string{"SOURCE", "UPDATE", "MERGED", "FOLDED", "WRITTEN", "ELAPSED"}
	row := []string{
		strconv.Itoa(result.SourceCount),
		strconv.Itoa(result.UpdateCount),
		strconv.Itoa(result.MergedCount),
		strconv.Itoa(result.DuplicatesFolded),
		strconv.Itoa(result.Written),
		result.Elapsed.Round(time.Millisecond).String(),
	}
	aligns := []columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight}
	fmt.Fprintln(out, renderTable(out, headers, [][]string{row}, aligns))
	fmt.Fprintf(out, "Output: %s\n", result.OutputPath)
	if result.ValidationPath != "" {
		fmt.Fprintf(out, "Validation report: %s\n", result.ValidationPath)
	}
	if result.AuditPath != "" {
		fmt.Fprintf(out, "Audit report: %s\n", result.AuditPath)
	}
}
