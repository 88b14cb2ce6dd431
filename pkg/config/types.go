package config

import (
	"time"

	"github.com/roster/roster/pkg/location"
	"github.com/roster/roster/pkg/stores"
	"github.com/roster/roster/pkg/telemetry"
)

// Driver names accepted by store.driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the roster configuration file.
type Config struct {
	// Store selects and configures the record store.
	Store StoreConfig `json:"store" yaml:"store"`

	// Locations configures remote import/export targets.
	Locations LocationsConfig `json:"locations" yaml:"locations"`

	// Telemetry configures logging, tracing, and metrics.
	Telemetry telemetry.Config `json:"telemetry" yaml:"telemetry"`
}

// StoreConfig selects the store variant.
type StoreConfig struct {
	// Driver is sqlite, postgres, or memory.
	Driver string `json:"driver" yaml:"driver" validate:"required,oneof=sqlite postgres memory"`

	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path" validate:"required_if=Driver sqlite"`

	// DSN is the PostgreSQL connection string.
	DSN string `json:"dsn" yaml:"dsn" validate:"required_if=Driver postgres"`
}

// LocationsConfig holds optional remote location backends.
type LocationsConfig struct {
	S3   *S3Config   `json:"s3,omitempty" yaml:"s3,omitempty"`
	SFTP *SFTPConfig `json:"sftp,omitempty" yaml:"sftp,omitempty"`
}

// S3Config configures s3:// locations.
type S3Config struct {
	Region          string `json:"region" yaml:"region" validate:"required"`
	Endpoint        string `json:"endpoint" yaml:"endpoint" validate:"omitempty,url"`
	PathStyle       bool   `json:"path_style" yaml:"path_style"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key" validate:"required_with=AccessKeyID"`
}

// SQLConfig converts a sqlite or postgres store section to the SQL store
// configuration.
func (s StoreConfig) SQLConfig() stores.Config {
	if s.Driver == DriverPostgres {
		return stores.Config{Dialect: stores.DialectPostgres, DSN: s.DSN}
	}
	return stores.Config{Dialect: stores.DialectSQLite, Path: s.Path}
}

// Location converts the section to the location package configuration.
func (s S3Config) Location() location.S3Config {
	return location.S3Config{
		Region:          s.Region,
		Endpoint:        s.Endpoint,
		PathStyle:       s.PathStyle,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
	}
}

// SFTPConfig configures sftp:// locations. Server keys are checked against
// KnownHostsPath unless InsecureIgnoreHostKey is set.
type SFTPConfig struct {
	User                  string `json:"user" yaml:"user"`
	Password              string `json:"password" yaml:"password" validate:"required_without=PrivateKeyPath"`
	PrivateKeyPath        string `json:"private_key_path" yaml:"private_key_path" validate:"required_without=Password"`
	PrivateKeyPassphrase  string `json:"private_key_passphrase" yaml:"private_key_passphrase"`
	KnownHostsPath        string `json:"known_hosts_path" yaml:"known_hosts_path" validate:"required_without=InsecureIgnoreHostKey"`
	InsecureIgnoreHostKey bool   `json:"insecure_ignore_host_key" yaml:"insecure_ignore_host_key"`
	TimeoutSeconds        int    `json:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=0"`
}

func (s SFTPConfig) Location() location.SFTPConfig {
	return location.SFTPConfig{
		User:                  s.User,
		Password:              s.Password,
		PrivateKeyPath:        s.PrivateKeyPath,
		PrivateKeyPassphrase:  s.PrivateKeyPassphrase,
		KnownHostsPath:        s.KnownHostsPath,
		InsecureIgnoreHostKey: s.InsecureIgnoreHostKey,
		Timeout:               time.Duration(s.TimeoutSeconds) * time.Second,
	}
}
