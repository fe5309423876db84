package stores

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ConnState is the position of a SQLStore in its connection lifecycle.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateCreatingDatabase
	StateConnected
	StateClosed
)

// String implements fmt.Stringer.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateCreatingDatabase:
		return "creating_database"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// SQLConfig holds relational store configuration
type SQLConfig struct {
	Driver               string
	Endpoint             string
	Username             string
	Password             string
	MaxReconnectAttempts int
	ReconnectBackoff     time.Duration
	AutoCreateDatabase   bool

	// Location is the zone order timestamps are reported in and date
	// arguments are interpreted in. Nil means time.Local.
	Location *time.Location

	Logger   zerolog.Logger
	Observer Observer
	Tracer   trace.Tracer
}

// Defaults applied by NewSQLStore to unset fields.
const (
	DefaultMaxReconnectAttempts = 3
	DefaultReconnectBackoff     = 1500 * time.Millisecond
	DefaultMySQLEndpoint        = "tcp(localhost:3306)/drogueria_db"
	DefaultMySQLUsername        = "root"
)

// opener opens and verifies a database handle.
type opener func(ctx context.Context, driverName, dsn string) (*sql.DB, error)

// SQLStore keeps orders in a relational table over a single connection.
// It is not safe for concurrent use.
type SQLStore struct {
	cfg      SQLConfig
	dialect  dialect
	logger   zerolog.Logger
	observer Observer
	tracer   trace.Tracer
	location *time.Location
	open     opener

	db          *sql.DB
	state       ConnState
	schemaReady bool
}

// NewSQLStore validates the configuration and returns a disconnected store.
// Call ConnectWithRetry to connect eagerly; data operations connect lazily.
func NewSQLStore(cfg SQLConfig) (*SQLStore, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverMySQL
	}
	if cfg.Endpoint == "" && cfg.Driver == DriverMySQL {
		cfg.Endpoint = DefaultMySQLEndpoint
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("sql endpoint is required")
	}
	if cfg.MaxReconnectAttempts == 0 {
		cfg.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if cfg.MaxReconnectAttempts < 1 {
		return nil, fmt.Errorf("max reconnect attempts must be at least 1, got %d", cfg.MaxReconnectAttempts)
	}
	if cfg.ReconnectBackoff < 0 {
		return nil, fmt.Errorf("reconnect backoff must not be negative, got %s", cfg.ReconnectBackoff)
	}

	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	d, err := newDialect(cfg)
	if err != nil {
		return nil, err
	}

	return &SQLStore{
		cfg:      cfg,
		dialect:  d,
		logger:   cfg.Logger.With().Str("component", "sql_store").Str("driver", cfg.Driver).Logger(),
		observer: cfg.Observer,
		tracer:   tracerOrNoop(cfg.Tracer),
		location: cfg.Location,
		open:     openDB,
		state:    StateDisconnected,
	}, nil
}

// Backend implements Store.
func (s *SQLStore) Backend() Backend {
	return BackendSQL
}

// State returns the current connection state.
func (s *SQLStore) State() ConnState {
	return s.state
}

func openDB(ctx context.Context, driverName, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One handle, reused serially by every operation.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// connect makes one connection attempt, creating the database first when
// the server reports it missing and auto-creation is enabled.
func (s *SQLStore) connect(ctx context.Context) (*sql.DB, error) {
	if err := s.dialect.prepare(); err != nil {
		return nil, err
	}

	db, err := s.open(ctx, s.dialect.driverName(), s.dialect.dsn())
	if err == nil {
		return db, nil
	}
	if !s.cfg.AutoCreateDatabase || !s.dialect.isUnknownDatabase(err) {
		return nil, err
	}

	s.state = StateCreatingDatabase
	s.logger.Warn().Err(err).Msg("Database does not exist, creating it")
	if cerr := s.createDatabase(ctx); cerr != nil {
		s.state = StateDisconnected
		return nil, fmt.Errorf("failed to create database: %w", cerr)
	}

	db, err = s.open(ctx, s.dialect.driverName(), s.dialect.dsn())
	if err != nil {
		s.state = StateDisconnected
		return nil, err
	}
	s.logger.Info().Msg("Connected after creating database")
	return db, nil
}

func (s *SQLStore) createDatabase(ctx context.Context) error {
	dsn, name, err := s.dialect.serverDSN()
	if err != nil {
		return err
	}

	server, err := s.open(ctx, s.dialect.driverName(), dsn)
	if err != nil {
		return err
	}
	defer server.Close()

	if _, err := server.ExecContext(ctx, s.dialect.createDatabase(name)); err != nil {
		return err
	}
	s.logger.Info().Str("database", name).Msg("Database created")
	return nil
}

// ConnectWithRetry attempts to connect up to MaxReconnectAttempts times with a
// fixed ReconnectBackoff between failures, then guarantees the schema.
func (s *SQLStore) ConnectWithRetry(ctx context.Context) (err error) {
	if s.state == StateClosed {
		return opError(BackendSQL, "connect", ErrStoreClosed)
	}
	if s.db != nil {
		return s.ensureSchema(ctx)
	}

	maxAttempts := s.cfg.MaxReconnectAttempts
	ctx, span := s.tracer.Start(ctx, "sql.connect", trace.WithAttributes(
		attribute.String("db.system", s.cfg.Driver),
		attribute.Int("connect.max_attempts", maxAttempts),
	))
	defer func() { endSpan(span, err) }()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		db, err := s.connect(ctx)
		s.observeConnect(err)
		if err == nil {
			s.db = db
			s.state = StateConnected
			span.SetAttributes(attribute.Int("connect.attempts", attempt))
			s.logger.Info().Int("attempt", attempt).Msg("Database connection established")
			return s.ensureSchema(ctx)
		}

		lastErr = err
		span.AddEvent("connect.attempt_failed", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("error", err.Error()),
		))
		if attempt == maxAttempts {
			break
		}

		s.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", s.cfg.ReconnectBackoff).
			Msg("Connection attempt failed, retrying")

		if err := sleepContext(ctx, s.cfg.ReconnectBackoff); err != nil {
			s.state = StateDisconnected
			return opError(BackendSQL, "connect", err)
		}
	}

	s.state = StateDisconnected
	s.logger.Error().Err(lastErr).Int("attempts", maxAttempts).Msg("Unable to connect to database")
	return opError(BackendSQL, "connect", fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr))
}

// ensureSchema creates the records table once per store instance.
func (s *SQLStore) ensureSchema(ctx context.Context) error {
	if s.schemaReady {
		return nil
	}
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return opError(BackendSQL, "schema", fmt.Errorf("failed to create table: %w", err))
		}
	}
	s.schemaReady = true
	s.logger.Info().Msg("Table 'records' ready")
	return nil
}

// ensureConnection reconnects when there is no live handle.
func (s *SQLStore) ensureConnection(ctx context.Context) error {
	switch {
	case s.state == StateClosed:
		return ErrStoreClosed
	case s.db == nil:
		s.logger.Info().Msg("No open connection, reconnecting")
		return s.ConnectWithRetry(ctx)
	default:
		return s.ensureSchema(ctx)
	}
}

// dropConnection forgets a handle the driver reported as broken so the next
// operation reconnects.
func (s *SQLStore) dropConnection() {
	if s.db != nil {
		_ = s.db.Close()
	}
	s.db = nil
	s.state = StateDisconnected
}

func (s *SQLStore) fail(op string, err error) error {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		s.logger.Warn().Str("operation", op).Msg("Connection lost, will reconnect on next operation")
		s.dropConnection()
	}
	s.logger.Error().Err(err).Str("operation", op).Msg("SQL store operation failed")
	return opError(BackendSQL, op, err)
}

func (s *SQLStore) observeConnect(err error) {
	if s.observer != nil {
		s.observer.ObserveConnectAttempt(BackendSQL, err)
	}
}

// Add inserts the order. The generated id and server timestamp are written
// back into order.
func (s *SQLStore) Add(ctx context.Context, order *Order) error {
	if err := s.ensureConnection(ctx); err != nil {
		return s.fail("add", err)
	}

	query := `
		INSERT INTO records (name, type, quantity, distributor, branches)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		order.Name,
		order.Type,
		order.Quantity,
		order.Distributor,
		joinBranches(order.Branches),
	)
	if err != nil {
		return s.fail("add", fmt.Errorf("failed to insert order: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return s.fail("add", fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rows != 1 {
		return s.fail("add", fmt.Errorf("expected 1 row inserted, got %d", rows))
	}

	id, err := result.LastInsertId()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Inserted order but could not read its id")
		return nil
	}
	order.ID = id
	s.logger.Info().Int64("id", id).Str("name", order.Name).Msg("Order inserted")

	var raw any
	if err := s.db.QueryRowContext(ctx, `SELECT timestamp FROM records WHERE id = ?`, id).Scan(&raw); err != nil {
		s.logger.Warn().Err(err).Int64("id", id).Msg("Could not read back order timestamp")
		return nil
	}
	if ts, err := parseTimestamp(raw, s.dialect.location()); err == nil {
		order.Timestamp = ts.In(s.location)
	}
	return nil
}

const selectOrders = `SELECT id, name, type, quantity, distributor, branches, timestamp FROM records`

const orderByNewest = ` ORDER BY timestamp DESC, id DESC`

// List returns all orders, newest first.
func (s *SQLStore) List(ctx context.Context) ([]*Order, error) {
	return s.query(ctx, "list", selectOrders+orderByNewest)
}

// ListFiltered returns orders matching the filter, newest first.
func (s *SQLStore) ListFiltered(ctx context.Context, f Filter) ([]*Order, error) {
	var (
		conditions []string
		args       []any
	)
	// Stored values use the catalogue spelling, see Order.Validate.
	if f.byType() {
		conditions = append(conditions, "type = ?")
		args = append(args, canonical(KnownTypes, f.Type))
	}
	if f.byDistributor() {
		conditions = append(conditions, "distributor = ?")
		args = append(args, canonical(KnownDistributors, f.Distributor))
	}

	query := selectOrders
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	return s.query(ctx, "list_filtered", query+orderByNewest, args...)
}

// SearchByName returns orders whose name contains pattern, newest first.
// LIKE wildcards in pattern match literally.
func (s *SQLStore) SearchByName(ctx context.Context, pattern string) ([]*Order, error) {
	return s.query(ctx, "search", selectOrders+` WHERE name LIKE ? ESCAPE '!'`+orderByNewest,
		"%"+likeEscaper.Replace(pattern)+"%")
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (s *SQLStore) query(ctx context.Context, op, query string, args ...any) ([]*Order, error) {
	if err := s.ensureConnection(ctx); err != nil {
		return nil, s.fail(op, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("failed to query orders: %w", err))
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		var (
			order    Order
			branches string
			raw      any
		)
		if err := rows.Scan(
			&order.ID,
			&order.Name,
			&order.Type,
			&order.Quantity,
			&order.Distributor,
			&branches,
			&raw,
		); err != nil {
			return nil, s.fail(op, fmt.Errorf("failed to scan order: %w", err))
		}
		ts, err := parseTimestamp(raw, s.dialect.location())
		if err != nil {
			return nil, s.fail(op, err)
		}
		order.Timestamp = ts.In(s.location)
		order.Branches = splitBranches(branches)
		orders = append(orders, &order)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(op, fmt.Errorf("failed to iterate orders: %w", err))
	}
	return orders, nil
}

// DeleteByNameAndDate removes every order with that name whose timestamp
// falls on the same calendar date as date, in date's own location. Time of
// day is ignored.
func (s *SQLStore) DeleteByNameAndDate(ctx context.Context, name string, date time.Time) (int64, error) {
	if err := s.ensureConnection(ctx); err != nil {
		return 0, s.fail("delete", err)
	}

	start, end := dayBounds(date, s.dialect.location())
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE name = ? AND timestamp >= ? AND timestamp < ?`, name, start, end)
	if err != nil {
		return 0, s.fail("delete", fmt.Errorf("failed to delete orders: %w", err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, s.fail("delete", fmt.Errorf("failed to get rows affected: %w", err))
	}

	s.logger.Debug().Str("name", name).Str("date", date.Format(DateLayout)).Int64("deleted", rows).Msg("Orders deleted")
	return rows, nil
}

// DeleteByID removes the order with the given id.
func (s *SQLStore) DeleteByID(ctx context.Context, id int64) error {
	return s.execByID(ctx, "delete_by_id", `DELETE FROM records WHERE id = ?`, id)
}

// UpdateQuantity sets the quantity of the order with the given id.
func (s *SQLStore) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	return s.execByID(ctx, "update_quantity", `UPDATE records SET quantity = ? WHERE id = ?`, quantity, id)
}

func (s *SQLStore) execByID(ctx context.Context, op, query string, args ...any) error {
	if err := s.ensureConnection(ctx); err != nil {
		return s.fail(op, err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return s.fail(op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return s.fail(op, fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rows == 0 {
		return opError(BackendSQL, op, ErrNotFound)
	}
	return nil
}

// Count returns the number of stored orders.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	if err := s.ensureConnection(ctx); err != nil {
		return 0, s.fail("count", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count); err != nil {
		return 0, s.fail("count", fmt.Errorf("failed to count orders: %w", err))
	}
	return count, nil
}

// IsConnected checks the current handle without reconnecting. A handle that
// fails the check is dropped, so the next ConnectWithRetry dials again.
func (s *SQLStore) IsConnected(ctx context.Context) bool {
	if s.db == nil || s.state != StateConnected {
		s.logger.Debug().Str("state", s.state.String()).Msg("No live connection")
		return false
	}

	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		s.logger.Warn().Err(err).Msg("Connection check failed, dropping connection")
		s.dropConnection()
		return false
	}
	return true
}

// Close releases the connection. It is safe to call more than once.
func (s *SQLStore) Close() error {
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	s.schemaReady = false

	if s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	if err := db.Close(); err != nil {
		return opError(BackendSQL, "close", err)
	}
	s.logger.Info().Msg("Database connection closed")
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func joinBranches(branches []string) string {
	return strings.Join(branches, BranchSeparator)
}

func splitBranches(s string) []string {
	parts := strings.Split(s, BranchSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// dayBounds returns the start of t's calendar day and of the next one, both
// rendered as wall clocks in the engine's zone.
func dayBounds(t time.Time, engine *time.Location) (string, string) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 0, 1)
	return start.In(engine).Format(TimestampLayout), end.In(engine).Format(TimestampLayout)
}

// parseTimestamp accepts what the drivers hand back for a TIMESTAMP column.
// Zoneless text is read as a wall clock in loc.
func parseTimestamp(raw any, loc *time.Location) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		return parseTimestampText(v, loc)
	case []byte:
		return parseTimestampText(string(v), loc)
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", raw)
	}
}

func parseTimestampText(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(TimestampLayout, s, loc); err == nil {
		return t, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
