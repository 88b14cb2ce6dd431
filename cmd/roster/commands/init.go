package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/roster/roster/pkg/stores"
)

const defaultConfigFile = "roster.yaml"

const defaultConfig = `# roster configuration

store:
  driver: %s            # sqlite | postgres | memory
  path: %q
  dsn: %q

# locations:
#   s3:
#     region: us-east-1
#     endpoint: http://localhost:9000
#     path_style: true
#   sftp:
#     user: roster
#     private_key_path: /etc/roster/id_ed25519
#     known_hosts_path: /etc/roster/known_hosts

telemetry:
  logging:
    level: info
    format: console
  metrics:
    enabled: false
    listen_address: ":9090"
  tracing:
    enabled: false
    exporter: stdout
`

func newInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file and the students table",
		Long: `Write a default configuration file and create the students table in the
configured database. An existing config file is left alone unless --force
is given.`,
		Example: `  # SQLite in the current directory
  roster init

  # PostgreSQL
  roster init --dsn postgres://roster@localhost/roster`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = defaultConfigFile
			}

			written, err := writeDefaultConfig(path, force)
			if err != nil {
				return err
			}
			if written {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Created config file: %s\n", path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Using existing config file: %s\n", path)
			}

			// Later lookups read the file just written.
			configPath = path

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			ready := e.cfg.Store.Driver
			if db, ok := sqlBackend(e.store); ok {
				if err := db.HealthCheck(cmd.Context()); err != nil {
					return fmt.Errorf("database health check failed: %w", err)
				}
				ready = string(db.Dialect())
			}

			log.Info().
				Str("config", path).
				Str("driver", e.cfg.Store.Driver).
				Msg("Workspace initialized")
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Store ready (%s)\n", ready)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}

// writeDefaultConfig writes the template to path, reflecting any store flags.
func writeDefaultConfig(path string, force bool) (bool, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat config file: %w", err)
	}

	drv, p := "sqlite", "roster.db"
	if dsn != "" {
		drv = "postgres"
	}
	if driver != "" {
		drv = driver
	}
	if dbPath != "" {
		p = dbPath
	}

	content := fmt.Sprintf(defaultConfig, drv, p, dsn)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}

// sqlBackend returns the SQL store beneath any instrumentation.
func sqlBackend(s stores.Store) (*stores.SQLStore, bool) {
	for {
		switch v := s.(type) {
		case *stores.SQLStore:
			return v, true
		case interface{ Unwrap() stores.Store }:
			s = v.Unwrap()
		default:
			return nil, false
		}
	}
}
