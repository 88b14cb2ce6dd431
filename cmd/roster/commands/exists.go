package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExistsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exists ID",
		Short: "Report whether a student ID is taken",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			ok, err := e.svc.Exists(ctx, args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"id": args[0], "exists": ok})
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}

	return cmd
}
