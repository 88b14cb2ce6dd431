package config

// rosterSchema supplies defaults and enum constraints for the configuration
// file. Unknown keys are rejected because definitions are closed.
const rosterSchema = `
#Config: {
	store: {
		driver: *"sqlite" | "postgres" | "memory"
		path:   string | *"roster.db"
		dsn:    string | *""
	}

	locations: {
		s3?:   #S3
		sftp?: #SFTP
	}

	telemetry: {
		service_name:    string & !="" | *"roster"
		service_version: string | *"dev"

		logging: {
			level:  *"info" | "trace" | "debug" | "warn" | "error"
			format: *"console" | "json"
			output: string | *"stderr"
		}

		tracing: {
			enabled:  bool | *false
			exporter: *"none" | "stdout" | "otlp"
			endpoint: string | *""
			insecure: bool | *true
		}

		metrics: {
			enabled:        bool | *false
			listen_address: string | *":9090"
			path:           string & =~"^/" | *"/metrics"
			namespace:      string & =~"^[a-zA-Z_][a-zA-Z0-9_]*$" | *"roster"
		}
	}
}

#S3: {
	region:            string | *"us-east-1"
	endpoint:          string | *""
	path_style:        bool | *false
	access_key_id:     string | *""
	secret_access_key: string | *""
}

#SFTP: {
	user:                     string | *""
	password:                 string | *""
	private_key_path:         string | *""
	private_key_passphrase:   string | *""
	known_hosts_path:         string | *""
	insecure_ignore_host_key: bool | *false
	timeout_seconds:          int & >=0 | *30
}
`
