package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pharmaorders/pedidos/pkg/config"
	"github.com/pharmaorders/pedidos/pkg/stores"
	"github.com/pharmaorders/pedidos/pkg/telemetry"
)

// session holds everything a command needs to talk to the stores.
type session struct {
	cfg      *config.Config
	tel      *telemetry.Telemetry
	selector *stores.Selector
	logger   zerolog.Logger

	audit         *os.File
	stopMetrics   context.CancelFunc
	metricsResult chan error
}

// loadConfig reads the configuration and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if backendFlag != "" {
		cfg.Backend = backendFlag
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession loads the configuration and opens both stores.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.NewTelemetry(cfg.Telemetry(), buildVersion)
	if err != nil {
		return nil, err
	}
	s := &session{
		cfg:    cfg,
		tel:    tel,
		logger: telemetry.ComponentLogger(tel.Logger, "cli"),
	}

	if cfg.Events.AuditLog != "" {
		f, err := os.OpenFile(cfg.Events.AuditLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			_ = tel.Shutdown(ctx)
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		s.audit = f
		tel.Events.Subscribe(telemetry.JSONLinesSubscriber(f), nil)
	}

	if cfg.Metrics.Enabled {
		metricsCtx, cancel := context.WithCancel(ctx)
		s.stopMetrics = cancel
		s.metricsResult = make(chan error, 1)
		go func() {
			s.metricsResult <- tel.Metrics.Serve(metricsCtx)
		}()
		s.logger.Debug().Str("address", cfg.Metrics.ListenAddress).Msg("Metrics endpoint started")
	}

	opts := cfg.StoreOptions()
	opts.Logger = tel.Logger
	opts.Observer = tel.Observer()
	opts.Tracer = tel.Tracer.Tracer()

	sel, err := stores.Open(ctx, opts)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.selector = sel

	s.logger.Debug().
		Str("backend", sel.Current().String()).
		Str("xml_path", cfg.XML.Path).
		Bool("sql_enabled", cfg.SQL.Enabled).
		Bool("tracing", tel.Tracer.Enabled()).
		Msg("Session opened")
	return s, nil
}

// Close releases the stores and flushes telemetry.
func (s *session) Close() {
	if s.selector != nil {
		if err := s.selector.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close stores")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tel.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Failed to flush telemetry")
	}

	if s.stopMetrics != nil {
		s.stopMetrics()
		if err := <-s.metricsResult; err != nil {
			s.logger.Warn().Err(err).Msg("Metrics endpoint failed")
		}
	}
	if s.audit != nil {
		_ = s.audit.Close()
	}
}
