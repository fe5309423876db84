package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Selector routes every operation to exactly one backend. Switching backends
// neither migrates nor merges data; the two stores diverge independently.
type Selector struct {
	xml      *XMLStore
	sql      *SQLStore
	current  Backend
	logger   zerolog.Logger
	observer Observer
	tracer   trace.Tracer
}

// SelectorConfig holds selector configuration
type SelectorConfig struct {
	XML      *XMLStore
	SQL      *SQLStore // optional
	Initial  Backend
	Logger   zerolog.Logger
	Observer Observer
	Tracer   trace.Tracer
}

// NewSelector creates a selector over the given stores.
func NewSelector(cfg SelectorConfig) (*Selector, error) {
	if cfg.XML == nil {
		return nil, fmt.Errorf("xml store is required")
	}
	initial := cfg.Initial
	if initial == "" {
		initial = BackendXML
	}
	if initial == BackendSQL && cfg.SQL == nil {
		return nil, fmt.Errorf("%w: no sql store configured", ErrBackendUnavailable)
	}
	if initial != BackendXML && initial != BackendSQL {
		return nil, fmt.Errorf("unknown backend %q", initial)
	}

	return &Selector{
		xml:      cfg.XML,
		sql:      cfg.SQL,
		current:  initial,
		logger:   cfg.Logger.With().Str("component", "selector").Logger(),
		observer: cfg.Observer,
		tracer:   tracerOrNoop(cfg.Tracer),
	}, nil
}

// Current returns the selected backend.
func (s *Selector) Current() Backend {
	return s.current
}

// XML returns the file backend.
func (s *Selector) XML() *XMLStore {
	return s.xml
}

// SQL returns the relational backend, or nil when none is configured.
func (s *Selector) SQL() *SQLStore {
	return s.sql
}

// Use switches the preferred backend. Switching to SQL is refused unless the
// relational store answers a liveness check or a full reconnect cycle succeeds.
func (s *Selector) Use(ctx context.Context, b Backend) error {
	switch b {
	case BackendXML:
	case BackendSQL:
		if s.sql == nil {
			return fmt.Errorf("%w: no sql store configured", ErrBackendUnavailable)
		}
		if !s.sql.IsConnected(ctx) {
			if err := s.sql.ConnectWithRetry(ctx); err != nil {
				return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
			}
		}
	default:
		return fmt.Errorf("unknown backend %q", b)
	}

	if s.current != b {
		s.logger.Info().Str("from", s.current.String()).Str("to", b.String()).Msg("Switched backend")
	}
	s.current = b
	return nil
}

func (s *Selector) active() Store {
	if s.current == BackendSQL && s.sql != nil {
		return s.sql
	}
	return s.xml
}

// begin starts a span for op on the selected backend. The returned func
// reports the outcome to the observer and ends the span.
func (s *Selector) begin(ctx context.Context, op string) (context.Context, func(error)) {
	start := time.Now()
	backend := s.current
	ctx, span := s.tracer.Start(ctx, "store."+op, trace.WithAttributes(
		attribute.String("store.backend", backend.String()),
		attribute.String("store.operation", op),
	))
	return ctx, func(err error) {
		if s.observer != nil {
			s.observer.ObserveOperation(backend, op, time.Since(start), err)
		}
		endSpan(span, err)
	}
}

// Add validates the order and stores it in the selected backend.
func (s *Selector) Add(ctx context.Context, order *Order) error {
	ctx, done := s.begin(ctx, "add")
	err := order.Validate()
	if err == nil {
		err = s.active().Add(ctx, order)
	}
	done(err)
	return err
}

// List returns all orders from the selected backend.
func (s *Selector) List(ctx context.Context) ([]*Order, error) {
	ctx, done := s.begin(ctx, "list")
	orders, err := s.active().List(ctx)
	done(err)
	return orders, err
}

// ListFiltered returns the orders matching f from the selected backend.
func (s *Selector) ListFiltered(ctx context.Context, f Filter) ([]*Order, error) {
	ctx, done := s.begin(ctx, "list_filtered")
	orders, err := s.active().ListFiltered(ctx, f)
	done(err)
	return orders, err
}

// SearchByName returns orders whose name contains pattern.
func (s *Selector) SearchByName(ctx context.Context, pattern string) ([]*Order, error) {
	ctx, done := s.begin(ctx, "search")
	orders, err := s.active().SearchByName(ctx, pattern)
	done(err)
	return orders, err
}

// Delete removes orders by name and timestamp. The file backend removes the
// first record matching the exact timestamp; the relational backend removes
// every row with that name on the timestamp's date.
func (s *Selector) Delete(ctx context.Context, name string, ts time.Time) (int64, error) {
	ctx, done := s.begin(ctx, "delete")
	var (
		n   int64
		err error
	)
	if s.current == BackendSQL && s.sql != nil {
		n, err = s.sql.DeleteByNameAndDate(ctx, name, ts)
	} else {
		var removed int
		removed, err = s.xml.DeleteByNameAndTimestamp(ctx, name, ts)
		n = int64(removed)
	}
	done(err)
	return n, err
}

// DeleteByID removes one order by id. Relational backend only.
func (s *Selector) DeleteByID(ctx context.Context, id int64) error {
	ctx, done := s.begin(ctx, "delete_by_id")
	err := s.requireSQL("delete_by_id")
	if err == nil {
		err = s.sql.DeleteByID(ctx, id)
	}
	done(err)
	return err
}

// UpdateQuantity changes the quantity of one order. Relational backend only.
func (s *Selector) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	ctx, done := s.begin(ctx, "update_quantity")
	err := s.requireSQL("update_quantity")
	if err == nil && quantity <= 0 {
		err = fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidOrder, quantity)
	}
	if err == nil {
		err = s.sql.UpdateQuantity(ctx, id, quantity)
	}
	done(err)
	return err
}

// Count returns the number of orders in the selected backend.
func (s *Selector) Count(ctx context.Context) (int, error) {
	ctx, done := s.begin(ctx, "count")
	n, err := s.active().Count(ctx)
	done(err)
	return n, err
}

// Close closes both stores.
func (s *Selector) Close() error {
	var firstErr error
	if s.sql != nil {
		firstErr = s.sql.Close()
	}
	if err := s.xml.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (s *Selector) requireSQL(op string) error {
	if s.current != BackendSQL || s.sql == nil {
		return opError(s.current, op, ErrUnsupported)
	}
	return nil
}
