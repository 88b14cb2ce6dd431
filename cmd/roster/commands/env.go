package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/roster/roster/pkg/config"
	"github.com/roster/roster/pkg/location"
	"github.com/roster/roster/pkg/roster"
	"github.com/roster/roster/pkg/stores"
	"github.com/roster/roster/pkg/telemetry"
)

// env holds what a command needs once configuration is resolved.
type env struct {
	cfg   *config.Config
	tel   *telemetry.Telemetry
	store stores.Store
	svc   *roster.Service
}

// loadConfig reads the config file and applies flag overrides. Without
// --config, roster.yaml in the working directory is used when present.
func loadConfig() (*config.Config, error) {
	loader, err := config.NewLoader()
	if err != nil {
		return nil, err
	}

	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	if dsn != "" {
		cfg.Store.DSN = dsn
		cfg.Store.Driver = config.DriverPostgres
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
		cfg.Store.Driver = config.DriverSQLite
	}
	if driver != "" {
		cfg.Store.Driver = driver
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if err := loader.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	_, err := os.Stat(defaultConfigFile)
	switch {
	case err == nil:
		return defaultConfigFile, nil
	case errors.Is(err, os.ErrNotExist):
		return "", nil
	default:
		return "", fmt.Errorf("failed to stat config file: %w", err)
	}
}

// openEnv resolves configuration and opens the configured store.
func openEnv(ctx context.Context) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := telemetry.NewLogger(cfg.Telemetry.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tel, err := telemetry.NewTelemetryWithLogger(&cfg.Telemetry, logger)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	tel.Events.Subscribe(logEvent(tel.Logger.NewComponentLogger("events")), nil)

	locs, err := newLocations(ctx, cfg)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}

	store, err := openStore(ctx, cfg, locs)
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}

	log.Debug().
		Str("driver", cfg.Store.Driver).
		Str("path", cfg.Store.Path).
		Msg("Store opened")

	store = stores.Instrument(store, tel)
	return &env{
		cfg:   cfg,
		tel:   tel,
		store: store,
		svc:   roster.New(store, roster.WithLogger(tel.Logger)),
	}, nil
}

// Close releases the store and flushes telemetry.
func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close store")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.tel.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to flush telemetry")
	}
}

// logEvent writes every store event at debug level.
func logEvent(l *telemetry.Logger) telemetry.EventSubscriber {
	zl := l.Zerolog()
	return func(e telemetry.Event) {
		ev := zl.Debug()
		if e.Level == telemetry.EventLevelError {
			ev = zl.Warn()
		}
		ev.Str("event", e.Type).
			Str("record_id", e.RecordID).
			Str("path", e.Path).
			Fields(e.Data).
			Msg(e.Message)
	}
}

func newLocations(ctx context.Context, cfg *config.Config) (location.Resolver, error) {
	var opts []location.Option
	if cfg.Locations.S3 != nil {
		s3, err := location.NewS3(ctx, cfg.Locations.S3.Location())
		if err != nil {
			return nil, fmt.Errorf("failed to configure s3 locations: %w", err)
		}
		opts = append(opts, location.WithS3(s3))
	}
	if cfg.Locations.SFTP != nil {
		sftp, err := location.NewSFTP(cfg.Locations.SFTP.Location())
		if err != nil {
			return nil, fmt.Errorf("failed to configure sftp locations: %w", err)
		}
		opts = append(opts, location.WithSFTP(sftp))
	}

	if len(opts) == 0 {
		return location.Default, nil
	}
	return location.NewRouter(opts...), nil
}

func openStore(ctx context.Context, cfg *config.Config, locs location.Resolver) (stores.Store, error) {
	if cfg.Store.Driver == config.DriverMemory {
		return stores.NewMemoryStore(stores.WithLocations(locs)), nil
	}

	store, err := stores.OpenSQLStore(ctx, cfg.Store.SQLConfig(), stores.WithLocations(locs))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	return store, nil
}
