package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pharmaorders/pedidos/pkg/stores"
)

// Metrics provides Prometheus metrics for the order stores. It implements
// stores.Observer.
type Metrics struct {
	config MetricsConfig

	// Store operation metrics
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	// Connection metrics
	connectAttempts *prometheus.CounterVec

	registry *prometheus.Registry
}

var _ stores.Observer = (*Metrics)(nil)

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of store operations",
			},
			[]string{"backend", "operation", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Duration of store operations in seconds",
				Buckets:   buckets,
			},
			[]string{"backend", "operation"},
		),
		connectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connect_attempts_total",
				Help:      "Total number of database connection attempts",
			},
			[]string{"backend", "result"},
		),
	}

	registry.MustRegister(
		m.operations,
		m.operationDuration,
		m.connectAttempts,
	)

	return m
}

// ObserveOperation records one store operation.
func (m *Metrics) ObserveOperation(backend stores.Backend, operation string, duration time.Duration, err error) {
	if m.operations == nil {
		return
	}
	m.operations.WithLabelValues(backend.String(), operation, result(err)).Inc()
	m.operationDuration.WithLabelValues(backend.String(), operation).Observe(duration.Seconds())
}

// ObserveConnectAttempt records one connection attempt.
func (m *Metrics) ObserveConnectAttempt(backend stores.Backend, err error) {
	if m.connectAttempts == nil {
		return
	}
	m.connectAttempts.WithLabelValues(backend.String(), result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Serve exposes the metrics endpoint until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context) error {
	if !m.config.Enabled {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
