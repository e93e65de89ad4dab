package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vcfmerge/internal/logging"
	"vcfmerge/internal/report"
)

// newValidateCommand scans one card file without touching the configuration.
// Findings print to stdout and do not fail the command; only unreadable files
// surface as errors.
func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Scan a card file for structural problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(logging.Options{Level: "error", Format: "console"})
			if err != nil {
				return err
			}
			result, err := report.NewValidator(logger).ValidateFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), result.Render())
			return nil
		},
	}
}
