package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/pharmaorders/pedidos/pkg/stores"
	"github.com/pharmaorders/pedidos/pkg/telemetry"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "pedidos.yaml"

// Environment variables that override file values.
const (
	EnvBackend         = "PEDIDOS_BACKEND"
	EnvXMLPath         = "PEDIDOS_XML_PATH"
	EnvSQLEnabled      = "PEDIDOS_SQL_ENABLED"
	EnvSQLDriver       = "PEDIDOS_SQL_DRIVER"
	EnvSQLEndpoint     = "PEDIDOS_SQL_ENDPOINT"
	EnvSQLUsername     = "PEDIDOS_SQL_USERNAME"
	EnvSQLPassword     = "PEDIDOS_SQL_PASSWORD"
	EnvSQLAttempts     = "PEDIDOS_SQL_MAX_RECONNECT_ATTEMPTS"
	EnvSQLBackoff      = "PEDIDOS_SQL_RECONNECT_BACKOFF_MS"
	EnvSQLAutoCreate   = "PEDIDOS_SQL_AUTO_CREATE_DATABASE"
	EnvTracingEnabled  = "PEDIDOS_TRACING_ENABLED"
	EnvTracingExporter = "PEDIDOS_TRACING_EXPORTER"
	EnvTracingEndpoint = "PEDIDOS_TRACING_ENDPOINT"
	EnvLogLevel        = "LOG_LEVEL"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: "auto",
		XML: XMLConfig{
			Path: "medicamentos.xml",
		},
		SQL: SQLConfig{
			Enabled:              true,
			Driver:               stores.DriverMySQL,
			Endpoint:             stores.DefaultMySQLEndpoint,
			Username:             stores.DefaultMySQLUsername,
			Password:             "",
			MaxReconnectAttempts: stores.DefaultMaxReconnectAttempts,
			ReconnectBackoffMs:   int(stores.DefaultReconnectBackoff / time.Millisecond),
			AutoCreateDatabase:   true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled:       false,
			ListenAddress: ":9090",
			Path:          "/metrics",
			Namespace:     "pedidos",
		},
		Events: EventsConfig{
			Enabled:    true,
			BufferSize: 256,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "stdout",
			SamplingRate: 1.0,
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. A missing file at the default path is
// not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{EnvBackend, &c.Backend},
		{EnvXMLPath, &c.XML.Path},
		{EnvSQLDriver, &c.SQL.Driver},
		{EnvSQLEndpoint, &c.SQL.Endpoint},
		{EnvSQLUsername, &c.SQL.Username},
		{EnvSQLPassword, &c.SQL.Password},
		{EnvTracingExporter, &c.Tracing.Exporter},
		{EnvTracingEndpoint, &c.Tracing.Endpoint},
	}
	for _, e := range strs {
		if v, ok := lookup(e.key); ok {
			*e.dst = v
		}
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{EnvSQLAttempts, &c.SQL.MaxReconnectAttempts},
		{EnvSQLBackoff, &c.SQL.ReconnectBackoffMs},
	}
	for _, e := range ints {
		if v, ok := lookup(e.key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", e.key, err)
			}
			*e.dst = n
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{EnvSQLEnabled, &c.SQL.Enabled},
		{EnvSQLAutoCreate, &c.SQL.AutoCreateDatabase},
		{EnvTracingEnabled, &c.Tracing.Enabled},
	}
	for _, e := range bools {
		if v, ok := lookup(e.key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", e.key, err)
			}
			*e.dst = b
		}
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Backend == "sql" && !c.SQL.Enabled {
		return fmt.Errorf("invalid configuration: backend sql requires sql.enabled")
	}
	return nil
}

// ReconnectBackoff returns the backoff as a duration.
func (c SQLConfig) ReconnectBackoff() time.Duration {
	return time.Duration(c.ReconnectBackoffMs) * time.Millisecond
}

// Write stores the configuration as YAML at path.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// StoreOptions converts the configuration into stores.Open options.
// Logger and Observer are left for the caller.
func (c *Config) StoreOptions() stores.OpenOptions {
	opts := stores.OpenOptions{
		XML:    stores.XMLConfig{Path: c.XML.Path},
		Prefer: c.Backend,
	}
	if c.SQL.Enabled {
		opts.SQL = &stores.SQLConfig{
			Driver:               c.SQL.Driver,
			Endpoint:             c.SQL.Endpoint,
			Username:             c.SQL.Username,
			Password:             c.SQL.Password,
			MaxReconnectAttempts: c.SQL.MaxReconnectAttempts,
			ReconnectBackoff:     c.SQL.ReconnectBackoff(),
			AutoCreateDatabase:   c.SQL.AutoCreateDatabase,
		}
	}
	return opts
}

// Telemetry converts the configuration into a telemetry configuration.
func (c *Config) Telemetry() telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.Logging = telemetry.LoggingConfig{
		Level:        c.Logging.Level,
		Format:       c.Logging.Format,
		Output:       c.Logging.Output,
		EnableCaller: c.Logging.EnableCaller,
	}
	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.ListenAddress = c.Metrics.ListenAddress
	if c.Metrics.Path != "" {
		cfg.Metrics.Path = c.Metrics.Path
	}
	if c.Metrics.Namespace != "" {
		cfg.Metrics.Namespace = c.Metrics.Namespace
	}
	cfg.Events = telemetry.EventsConfig{
		Enabled:    c.Events.Enabled,
		BufferSize: c.Events.BufferSize,
	}
	cfg.Tracing.Enabled = c.Tracing.Enabled
	cfg.Tracing.Exporter = c.Tracing.Exporter
	cfg.Tracing.Endpoint = c.Tracing.Endpoint
	cfg.Tracing.Insecure = c.Tracing.Insecure
	cfg.Tracing.Headers = c.Tracing.Headers
	cfg.Tracing.SamplingRate = c.Tracing.SamplingRate
	return cfg
}
