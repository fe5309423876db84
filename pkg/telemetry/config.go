package telemetry

import (
	"fmt"
	"io"
	"time"
)

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error, fatal).
	Level string

	// Format specifies the log format (console, json).
	Format string

	// Output specifies where logs are written (stdout, stderr, file path).
	Output string

	// EnableCaller adds file:line caller information to logs.
	EnableCaller bool
}

// MetricsConfig configures metrics collection.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool

	// ListenAddress is the address for the metrics HTTP endpoint.
	ListenAddress string

	// Path is the HTTP path for metrics (default: /metrics).
	Path string

	// Namespace is the metrics namespace prefix.
	Namespace string

	// DefaultHistogramBuckets are the default latency buckets in seconds.
	DefaultHistogramBuckets []float64
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Enabled controls whether spans are recorded at all.
	Enabled bool

	// Exporter selects where spans go (stdout, otlp, none).
	Exporter string

	// Endpoint is the OTLP gRPC collector address.
	Endpoint string

	// Insecure disables TLS for the OTLP connection.
	Insecure bool

	// Headers are sent with every OTLP export.
	Headers map[string]string

	// SamplingRate is the fraction of root spans kept (0.0 to 1.0).
	SamplingRate float64

	// MaxExportBatchSize caps spans per export.
	MaxExportBatchSize int

	// ExportTimeout bounds a single export.
	ExportTimeout time.Duration

	// Writer receives stdout exporter output. Nil means os.Stderr.
	Writer io.Writer
}

// DefaultLoggingConfig returns console logging at info level on stderr.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Format: "console",
		Output: "stderr",
	}
}

// DefaultMetricsConfig returns a disabled metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:       false,
		ListenAddress: ":9090",
		Path:          "/metrics",
		Namespace:     "pedidos",
		DefaultHistogramBuckets: []float64{
			0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0,
		},
	}
}

// Validate checks if the logging configuration is valid.
func (c LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true,
	}
	if !validLevels[c.Level] {
		return fmt.Errorf("invalid log level: %s", c.Level)
	}
	if c.Format != "console" && c.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'console' or 'json')", c.Format)
	}
	return nil
}

// DefaultTracingConfig returns a disabled tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		Enabled:            false,
		Exporter:           "stdout",
		SamplingRate:       1.0,
		MaxExportBatchSize: 512,
		ExportTimeout:      30 * time.Second,
	}
}

// Validate checks if the tracing configuration is valid.
func (c TracingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Exporter {
	case "stdout", "none":
	case "otlp":
		if c.Endpoint == "" {
			return fmt.Errorf("otlp exporter requires an endpoint")
		}
	default:
		return fmt.Errorf("invalid trace exporter: %s (must be 'stdout', 'otlp' or 'none')", c.Exporter)
	}
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("invalid sampling rate: %v (must be between 0 and 1)", c.SamplingRate)
	}
	return nil
}
