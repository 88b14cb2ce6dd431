package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import PATH",
		Short: "Import students from a CSV file",
		Long: `Import students from a CSV file. The first row is treated as a header and
skipped. Every following row must have at least five fields:
id, name, program, gender, status.

The import is all or nothing: a short row or an ID that is already taken
leaves the store unchanged.`,
		Example: `  roster import students.csv
  roster import s3://inbox/students.csv
  roster import sftp://registrar.example.edu/outbox/students.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			reportImports(cmd.OutOrStdout(), e.tel.Events)
			if err := e.svc.ImportCSV(ctx, args[0]); err != nil {
				return err
			}

			log.Info().Str("path", args[0]).Msg("Import complete")
			return nil
		},
	}

	return cmd
}
