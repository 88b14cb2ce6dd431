// Package config loads the roster configuration file.
//
// The file is YAML. It is unified with an embedded CUE schema that fills in
// defaults and rejects unknown keys and out-of-range enums, decoded into
// Config, and finally checked with go-playground/validator for cross-field
// rules such as "path is required for the sqlite driver".
//
// # Usage Example
//
//	loader, err := config.NewLoader()
//	if err != nil {
//	    return err
//	}
//
//	cfg, err := loader.Load("roster.yaml")
//	if err != nil {
//	    return err
//	}
//
//	// Apply command line overrides, then re-check.
//	cfg.Store.Driver = config.DriverPostgres
//	cfg.Store.DSN = dsn
//	if err := loader.Validate(cfg); err != nil {
//	    return err
//	}
//
// # File Structure
//
//	store:
//	  driver: sqlite        # sqlite | postgres | memory
//	  path: roster.db
//	locations:
//	  s3:
//	    region: us-east-1
//	    endpoint: http://localhost:9000
//	    path_style: true
//	telemetry:
//	  logging: {level: info, format: console}
//	  metrics: {enabled: true, listen_address: ":9090"}
package config
