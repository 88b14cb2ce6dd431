package commands

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/roster/roster/pkg/roster"
	"github.com/roster/roster/pkg/stores"
)

// recordFlags binds the editable record fields to command flags.
func recordFlags(cmd *cobra.Command, rec *stores.Record) {
	defaults := roster.DefaultRecord()

	cmd.Flags().StringVar(&rec.Name, "name", "", "student name")
	cmd.Flags().StringVar(&rec.Program, "program", defaults.Program,
		fmt.Sprintf("program (%s)", strings.Join(roster.Programs, ", ")))
	cmd.Flags().StringVar(&rec.Gender, "gender", defaults.Gender,
		fmt.Sprintf("gender (%s)", strings.Join(roster.Genders, ", ")))
	cmd.Flags().StringVar(&rec.Status, "status", defaults.Status,
		fmt.Sprintf("status (%s)", strings.Join(roster.Statuses, ", ")))
}

func newAddCommand() *cobra.Command {
	var rec stores.Record

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a student",
		Example: `  roster add --id 2021-0001 --name "Ann Cruz" --program "BS CoE" --gender Female`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.svc.Add(ctx, rec); err != nil {
				return err
			}

			log.Info().Str("id", rec.ID).Msg("Student added")
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", rec.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&rec.ID, "id", "", "student ID")
	recordFlags(cmd, &rec)

	return cmd
}
