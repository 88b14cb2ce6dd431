package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/roster/roster/pkg/inbox"
)

func newWatchCommand() *cobra.Command {
	var quiet time.Duration

	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Import CSV files dropped into a directory",
		Long: `Watch DIR and import every *.csv file that appears in it. A file is imported
once it has not been written to for the quiet period, then renamed to
<name>.imported, or <name>.failed when the import is rejected.

Files already in DIR are imported at start. When metrics are enabled in the
config, they are served for as long as the watch runs.`,
		Example: `  roster watch ./inbox
  roster watch ./inbox --quiet 2s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			errc := make(chan error, 1)
			stopMetrics := e.tel.Metrics.StartMetricsServer(errc)
			defer func() {
				shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
				defer done()
				if err := stopMetrics(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("Failed to stop metrics server")
				}
			}()

			if e.cfg.Telemetry.Metrics.Enabled {
				log.Info().
					Str("address", e.cfg.Telemetry.Metrics.ListenAddress).
					Str("path", e.cfg.Telemetry.Metrics.Path).
					Msg("Serving metrics")
			}

			// A metrics listener failure stops the watch
			failed := make(chan error, 1)
			go func() {
				select {
				case err := <-errc:
					failed <- err
					cancel()
				case <-ctx.Done():
				}
			}()

			reportImports(cmd.OutOrStdout(), e.tel.Events)
			w := inbox.NewWatcher(args[0], e.svc,
				inbox.WithQuietPeriod(quiet),
				inbox.WithLogger(e.tel.Logger.NewComponentLogger("inbox").Zerolog()),
			)
			if err := w.Run(ctx); err != nil {
				return err
			}

			select {
			case err := <-failed:
				return fmt.Errorf("metrics server failed: %w", err)
			default:
				return nil
			}
		},
	}

	cmd.Flags().DurationVar(&quiet, "quiet", inbox.DefaultQuietPeriod, "time a file must stay unchanged before import")

	return cmd
}
