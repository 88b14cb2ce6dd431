package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/roster/roster/pkg/stores"
)

func newUpdateCommand() *cobra.Command {
	var changes stores.Record

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a student",
		Long: `Update the name, program, gender or status of a student. Fields without a
flag keep their stored value. The ID itself cannot be changed.`,
		Example: `  roster update 2021-0001 --status "Not Enrolled"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			rec, err := e.svc.Get(ctx, args[0])
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("name") {
				rec.Name = changes.Name
			}
			if flags.Changed("program") {
				rec.Program = changes.Program
			}
			if flags.Changed("gender") {
				rec.Gender = changes.Gender
			}
			if flags.Changed("status") {
				rec.Status = changes.Status
			}

			if err := e.svc.Update(ctx, rec); err != nil {
				return err
			}

			log.Info().Str("id", rec.ID).Msg("Student updated")
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", rec.ID)
			return nil
		},
	}

	recordFlags(cmd, &changes)

	return cmd
}
