// Package telemetry provides logging, metrics, store events and tracing for pedidos.
//
// # Architecture
//
// The telemetry system has four parts:
//
//  1. Structured Logging - zerolog loggers configured from LoggingConfig
//  2. Metrics Collection - Prometheus counters and histograms for store operations
//  3. Event Publishing - ordered, asynchronous store events for audit logs and watchers
//  4. Tracing - OpenTelemetry spans around store operations and connect cycles
//
// Metrics and EventPublisher both implement stores.Observer. Telemetry.Observer
// combines them so a single value can be handed to stores.Open.
//
// # Usage
//
//	tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig(), version)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	sel, err := stores.Open(ctx, stores.OpenOptions{
//	    Logger:   tel.Logger,
//	    Observer: tel.Observer(),
//	    Tracer:   tel.Tracer.Tracer(),
//	    ...
//	})
//
// # Structured Logging
//
//	logger := telemetry.ComponentLogger(tel.Logger, "cli")
//	logger.Info().Str("backend", "sql").Msg("Backend selected")
//
// Log levels: trace, debug, info, warn, error, fatal. Formats: console, json.
//
// # Metrics
//
// When enabled, metrics are served by Metrics.Serve on MetricsConfig.ListenAddress:
//
//  - pedidos_store_operations_total{backend,operation,result}
//  - pedidos_store_operation_duration_seconds{backend,operation}
//  - pedidos_connect_attempts_total{backend,result}
//
// # Events
//
// Subscribers receive events in publish order from a single goroutine:
//
//	tel.Events.Subscribe(telemetry.JSONLinesSubscriber(auditFile),
//	    telemetry.FilterByLevel(telemetry.EventLevelWarning))
//
// Shutdown drains the queue before returning.
//
// # Tracing
//
// Tracing is off by default. When enabled, spans are exported to stdout
// (stderr in practice, so command output stays clean), to an OTLP gRPC
// collector, or nowhere ("none"). Selector operations produce store.<op>
// spans and SQL connect cycles produce sql.connect spans with one event per
// failed attempt.
package telemetry
