package config

// Config is the top-level configuration of the pedidos tool.
type Config struct {
	// Backend is the preferred persistence backend (auto, xml, sql).
	// auto uses the relational store when it is reachable at startup.
	Backend string `yaml:"backend" validate:"required,oneof=auto xml sql"`

	// XML configures the file backend.
	XML XMLConfig `yaml:"xml"`

	// SQL configures the relational backend.
	SQL SQLConfig `yaml:"sql"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Events configures the store event stream.
	Events EventsConfig `yaml:"events"`

	// Tracing configures OpenTelemetry span export.
	Tracing TracingConfig `yaml:"tracing"`
}

// XMLConfig configures the XML document store.
type XMLConfig struct {
	// Path is the location of the order document.
	Path string `yaml:"path" validate:"required"`
}

// SQLConfig configures the relational store.
type SQLConfig struct {
	// Enabled controls whether the relational store is built at all.
	Enabled bool `yaml:"enabled"`

	// Driver selects the engine (mysql, sqlite).
	Driver string `yaml:"driver" validate:"required,oneof=mysql sqlite"`

	// Endpoint is the MySQL DSN without credentials, or the sqlite file path.
	Endpoint string `yaml:"endpoint" validate:"required"`

	// Username and Password are the MySQL credentials.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// MaxReconnectAttempts bounds connection attempts per connect cycle.
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts" validate:"gte=1"`

	// ReconnectBackoffMs is the fixed delay between attempts in milliseconds.
	ReconnectBackoffMs int `yaml:"reconnect_backoff_ms" validate:"gte=0"`

	// AutoCreateDatabase creates the target database when the server reports it missing.
	AutoCreateDatabase bool `yaml:"auto_create_database"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level" validate:"oneof=trace debug info warn error"`

	// Format specifies the log format (console, json).
	Format string `yaml:"format" validate:"oneof=console json"`

	// Output specifies where logs are written (stdout, stderr, file path).
	Output string `yaml:"output" validate:"required"`

	// EnableCaller adds file:line caller information to logs.
	EnableCaller bool `yaml:"enable_caller"`
}

// MetricsConfig configures metrics collection.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address for the metrics HTTP endpoint.
	ListenAddress string `yaml:"listen_address" validate:"required_if=Enabled true"`

	// Path is the HTTP path for metrics (default: /metrics).
	Path string `yaml:"path"`

	// Namespace is the metrics namespace prefix.
	Namespace string `yaml:"namespace"`
}

// EventsConfig configures store events.
type EventsConfig struct {
	// Enabled controls whether store events are published.
	Enabled bool `yaml:"enabled"`

	// AuditLog, when set, receives every event as a JSON line.
	AuditLog string `yaml:"audit_log"`

	// BufferSize is the capacity of the event queue.
	BufferSize int `yaml:"buffer_size" validate:"gte=0"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Enabled controls whether spans are recorded.
	Enabled bool `yaml:"enabled"`

	// Exporter selects where spans go (stdout, otlp, none). stdout writes to stderr.
	Exporter string `yaml:"exporter" validate:"oneof=stdout otlp none"`

	// Endpoint is the OTLP gRPC collector address (host:port).
	Endpoint string `yaml:"endpoint,omitempty" validate:"required_if=Exporter otlp"`

	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure,omitempty"`

	// Headers are sent with every OTLP export.
	Headers map[string]string `yaml:"headers,omitempty"`

	// SamplingRate is the fraction of operations traced (0.0 to 1.0).
	SamplingRate float64 `yaml:"sampling_rate" validate:"gte=0,lte=1"`
}
