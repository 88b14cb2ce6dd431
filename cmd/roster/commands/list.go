package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all students",
		Example: `  # Show the roster as a table
  roster list

  # Machine-readable output
  roster list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			records, err := e.svc.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list students: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, records)
			}

			if len(records) == 0 {
				fmt.Fprintln(out, "No students found")
				return nil
			}
			fmt.Fprintln(out, renderTable(records))
			return nil
		},
	}

	return cmd
}
