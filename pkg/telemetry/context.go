package telemetry

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pharmaorders/pedidos/pkg/stores"
)

// Config bundles the telemetry configuration.
type Config struct {
	Logging LoggingConfig
	Metrics MetricsConfig
	Events  EventsConfig
	Tracing TracingConfig
}

// DefaultConfig returns console logging, disabled metrics and tracing, and enabled events.
func DefaultConfig() Config {
	return Config{
		Logging: DefaultLoggingConfig(),
		Metrics: DefaultMetricsConfig(),
		Events:  DefaultEventsConfig(),
		Tracing: DefaultTracingConfig(),
	}
}

// Validate checks the telemetry configuration.
func (c Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddress == "" {
		return fmt.Errorf("metrics listen address is required when metrics are enabled")
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("invalid tracing config: %w", err)
	}
	return nil
}

// Telemetry combines logging, metrics, events and tracing.
type Telemetry struct {
	Logger  zerolog.Logger
	Metrics *Metrics
	Events  *EventPublisher
	Tracer  *Tracer
	Config  Config
}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg Config, serviceVersion string) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tracer, err := NewTracer(cfg.Tracing, serviceVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	return &Telemetry{
		Logger:  logger,
		Metrics: NewMetrics(cfg.Metrics),
		Events:  NewEventPublisher(cfg.Events),
		Tracer:  tracer,
		Config:  cfg,
	}, nil
}

// Observer returns the store observer feeding both metrics and events.
func (t *Telemetry) Observer() stores.Observer {
	return Observers(t.Metrics, t.Events)
}

// Shutdown flushes pending events and spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	eventsErr := t.Events.Shutdown(ctx)
	if err := t.Tracer.Shutdown(ctx); err != nil {
		return err
	}
	return eventsErr
}
