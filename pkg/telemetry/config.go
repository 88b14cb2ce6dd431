package telemetry

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	logLevels     = []string{"trace", "debug", "info", "warn", "error"}
	logFormats    = []string{"console", "json"}
	traceExports  = []string{"otlp", "stdout", "none"}
	defaultExport = 10 * time.Second
)

// Config is the telemetry section of roster.yaml.
type Config struct {
	ServiceName    string `json:"service_name" yaml:"service_name"`
	ServiceVersion string `json:"service_version" yaml:"service_version"`

	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

// LoggingConfig selects level, format (console or json) and output
// (stderr, stdout or a file path).
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	Output string `json:"output" yaml:"output"`
}

// TracingConfig selects the span exporter. Endpoint is only read by otlp.
type TracingConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Exporter string `json:"exporter" yaml:"exporter"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	Insecure bool   `json:"insecure" yaml:"insecure"`

	// ExportTimeout bounds one batch export. Not read from the config file.
	ExportTimeout time.Duration `json:"-" yaml:"-"`
}

// MetricsConfig controls the Prometheus endpoint served by roster watch.
type MetricsConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	ListenAddress string `json:"listen_address" yaml:"listen_address"`
	Path          string `json:"path" yaml:"path"`
	Namespace     string `json:"namespace" yaml:"namespace"`
}

// DefaultConfig logs info to stderr and leaves tracing and metrics off.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "roster",
		ServiceVersion: "dev",
		Logging:        LoggingConfig{Level: "info", Format: "console", Output: "stderr"},
		Tracing:        TracingConfig{Exporter: "none", Insecure: true, ExportTimeout: defaultExport},
		Metrics:        MetricsConfig{ListenAddress: ":9090", Path: "/metrics", Namespace: "roster"},
	}
}

func (c *Config) Validate() error {
	switch {
	case c.ServiceName == "":
		return errors.New("service name is required")
	case !slices.Contains(logLevels, c.Logging.Level):
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	case !slices.Contains(logFormats, c.Logging.Format):
		return fmt.Errorf("invalid log format: %s (must be 'console' or 'json')", c.Logging.Format)
	}

	if c.Tracing.Enabled {
		if !slices.Contains(traceExports, c.Tracing.Exporter) {
			return fmt.Errorf("invalid trace exporter: %s", c.Tracing.Exporter)
		}
		if c.Tracing.Exporter == "otlp" && c.Tracing.Endpoint == "" {
			return errors.New("otlp exporter requires an endpoint")
		}
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddress == "" {
		return errors.New("metrics listen address is required when metrics are enabled")
	}
	return nil
}
