package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vcfmerge/internal/logging"
	"vcfmerge/internal/pipeline"
)

// newAuditCommand runs the read stages and prints the field-coverage
// comparison. It takes no lock and writes no files, so it is safe to run
// while deciding whether a real run is worthwhile.
func newAuditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Compare field coverage across source, update, and merged sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{Level: "error", Format: cfg.Logging.Format})
			if err != nil {
				return err
			}
			audit, err := pipeline.NewRunner(cfg, logger).Audit(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, audit.Table())
			for _, pair := range audit.Similar {
				fmt.Fprintf(out, "similar: %s ~ %s (%.2f)\n", pair.A, pair.B, pair.Score)
			}
			return nil
		},
	}
}
