package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roster/roster/pkg/stores"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader()
	require.NoError(t, err)
	return l
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "roster.db", cfg.Store.Path)
	assert.Nil(t, cfg.Locations.S3)
	assert.Equal(t, "roster", cfg.Telemetry.ServiceName)
	assert.Equal(t, "info", cfg.Telemetry.Logging.Level)
	assert.Equal(t, "console", cfg.Telemetry.Logging.Format)
	assert.False(t, cfg.Telemetry.Metrics.Enabled)
	assert.Equal(t, ":9090", cfg.Telemetry.Metrics.ListenAddress)
	assert.Equal(t, "none", cfg.Telemetry.Tracing.Exporter)
	assert.NotZero(t, cfg.Telemetry.Tracing.ExportTimeout)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		check   func(t *testing.T, cfg *Config)
		wantErr string
	}{
		{
			name: "postgres",
			yaml: "store:\n  driver: postgres\n  dsn: postgres://localhost/roster\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, stores.Config{Dialect: stores.DialectPostgres, DSN: "postgres://localhost/roster"}, cfg.Store.SQLConfig())
			},
		},
		{
			name: "memory",
			yaml: "store:\n  driver: memory\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DriverMemory, cfg.Store.Driver)
			},
		},
		{
			name: "s3 defaults",
			yaml: "locations:\n  s3:\n    endpoint: http://localhost:9000\n    path_style: true\n",
			check: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.Locations.S3)
				loc := cfg.Locations.S3.Location()
				assert.Equal(t, "us-east-1", loc.Region)
				assert.Equal(t, "http://localhost:9000", loc.Endpoint)
				assert.True(t, loc.PathStyle)
			},
		},
		{
			name: "sftp defaults",
			yaml: "locations:\n  sftp:\n    user: roster\n    password: pw\n    known_hosts_path: /etc/ssh/ssh_known_hosts\n",
			check: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.Locations.SFTP)
				loc := cfg.Locations.SFTP.Location()
				assert.Equal(t, "roster", loc.User)
				assert.Equal(t, "/etc/ssh/ssh_known_hosts", loc.KnownHostsPath)
				assert.False(t, loc.InsecureIgnoreHostKey)
				assert.Equal(t, 30*time.Second, loc.Timeout)
			},
		},
		{
			name: "telemetry overrides",
			yaml: "telemetry:\n  logging:\n    level: debug\n    format: json\n  metrics:\n    enabled: true\n    listen_address: \":9100\"\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Telemetry.Logging.Level)
				assert.Equal(t, "json", cfg.Telemetry.Logging.Format)
				assert.True(t, cfg.Telemetry.Metrics.Enabled)
				assert.Equal(t, ":9100", cfg.Telemetry.Metrics.ListenAddress)
				assert.Equal(t, "/metrics", cfg.Telemetry.Metrics.Path)
			},
		},
		{
			name:    "unknown driver",
			yaml:    "store:\n  driver: oracle\n",
			wantErr: "schema validation failed",
		},
		{
			name:    "unknown key",
			yaml:    "store:\n  driver: sqlite\n  flavour: vanilla\n",
			wantErr: "schema validation failed",
		},
		{
			name:    "bad log level",
			yaml:    "telemetry:\n  logging:\n    level: loud\n",
			wantErr: "schema validation failed",
		},
		{
			name:    "postgres without dsn",
			yaml:    "store:\n  driver: postgres\n",
			wantErr: "Config.Store.DSN is required",
		},
		{
			name:    "sqlite with empty path",
			yaml:    "store:\n  path: \"\"\n",
			wantErr: "Config.Store.Path is required",
		},
		{
			name:    "half s3 credentials",
			yaml:    "locations:\n  s3:\n    access_key_id: AKIA\n",
			wantErr: "SecretAccessKey is required",
		},
		{
			name:    "sftp without auth",
			yaml:    "locations:\n  sftp:\n    insecure_ignore_host_key: true\n",
			wantErr: "Password is required",
		},
		{
			name:    "sftp without host key policy",
			yaml:    "locations:\n  sftp:\n    password: pw\n",
			wantErr: "KnownHostsPath is required",
		},
		{
			name:    "sftp negative timeout",
			yaml:    "locations:\n  sftp:\n    password: pw\n    insecure_ignore_host_key: true\n    timeout_seconds: -1\n",
			wantErr: "schema validation failed",
		},
		{
			name:    "otlp without endpoint",
			yaml:    "telemetry:\n  tracing:\n    enabled: true\n    exporter: otlp\n",
			wantErr: "requires an endpoint",
		},
		{
			name:    "not yaml",
			yaml:    "store: [unclosed\n",
			wantErr: "failed to parse yaml",
		},
	}

	l := newTestLoader(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := l.Parse([]byte(tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFile(t *testing.T) {
	l := newTestLoader(t)
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  path: /var/lib/roster.db\n"), 0644))

	cfg, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, stores.Config{Dialect: stores.DialectSQLite, Path: "/var/lib/roster.db"}, cfg.Store.SQLConfig())

	_, err = l.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	cfg, err = l.Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
}

func TestValidateAfterOverride(t *testing.T) {
	l := newTestLoader(t)
	cfg := Default()

	cfg.Store.Driver = DriverPostgres
	assert.Error(t, l.Validate(cfg))

	cfg.Store.DSN = "postgres://localhost/roster"
	assert.NoError(t, l.Validate(cfg))

	cfg.Store.Driver = "mysql"
	err := l.Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of")
}
