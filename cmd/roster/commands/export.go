package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/roster/roster/pkg/roster"
)

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all students to CSV or JSON",
		Example: `  roster export csv students.csv
  roster export json s3://backups/students.json`,
	}

	cmd.AddCommand(newExportFormatCommand("csv", (*roster.Service).ExportCSV))
	cmd.AddCommand(newExportFormatCommand("json", (*roster.Service).ExportJSON))

	return cmd
}

func newExportFormatCommand(format string, export func(*roster.Service, context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   format + " PATH",
		Short: fmt.Sprintf("Export all students as %s", format),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := export(e.svc, ctx, args[0]); err != nil {
				return err
			}

			log.Info().Str("path", args[0]).Str("format", format).Msg("Export complete")
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", args[0])
			return nil
		},
	}
}
