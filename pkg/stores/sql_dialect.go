package stores

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	// SQLite driver
	_ "modernc.org/sqlite"
)

// Supported values for SQLConfig.Driver.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// erBadDB is the MySQL server error for "Unknown database".
const erBadDB = 1049

// dialect isolates what differs between the relational engines.
type dialect interface {
	driverName() string

	// dsn returns the connection string selecting the configured database.
	dsn() string

	// serverDSN returns a connection string with no database selected and
	// the name of the configured database.
	serverDSN() (string, string, error)

	isUnknownDatabase(err error) bool
	createDatabase(name string) string
	schema() []string

	// location is the zone the engine writes timestamp wall clocks in.
	location() *time.Location

	// prepare runs before every connection attempt.
	prepare() error
}

func newDialect(cfg SQLConfig) (dialect, error) {
	switch cfg.Driver {
	case DriverMySQL:
		return newMySQLDialect(cfg)
	case DriverSQLite:
		return &sqliteDialect{path: cfg.Endpoint}, nil
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}
}

type mysqlDialect struct {
	cfg *mysql.Config
}

func newMySQLDialect(cfg SQLConfig) (*mysqlDialect, error) {
	mc, err := mysql.ParseDSN(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql endpoint: %w", err)
	}
	if mc.DBName == "" {
		return nil, fmt.Errorf("mysql endpoint %q does not name a database", cfg.Endpoint)
	}
	if cfg.Username != "" {
		mc.User = cfg.Username
		mc.Passwd = cfg.Password
	}
	mc.ParseTime = true
	// UPDATE reports matched rows, so an unchanged quantity is not "not found".
	mc.ClientFoundRows = true
	return &mysqlDialect{cfg: mc}, nil
}

func (d *mysqlDialect) driverName() string { return DriverMySQL }

func (d *mysqlDialect) dsn() string {
	return d.cfg.FormatDSN()
}

func (d *mysqlDialect) serverDSN() (string, string, error) {
	server := d.cfg.Clone()
	server.DBName = ""
	return server.FormatDSN(), d.cfg.DBName, nil
}

func (d *mysqlDialect) isUnknownDatabase(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == erBadDB
	}
	return err != nil && strings.Contains(err.Error(), "Unknown database")
}

func (d *mysqlDialect) createDatabase(name string) string {
	return fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s DEFAULT CHARSET utf8mb4 COLLATE utf8mb4_unicode_ci",
		quoteIdent(name))
}

func (d *mysqlDialect) schema() []string {
	return []string{`CREATE TABLE IF NOT EXISTS records (
	id INT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	type VARCHAR(100) NOT NULL,
	quantity INT NOT NULL,
	distributor VARCHAR(100) NOT NULL,
	branches TEXT NOT NULL,
	timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_name (name),
	INDEX idx_type (type),
	INDEX idx_distributor (distributor),
	INDEX idx_timestamp (timestamp)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`}
}

func (d *mysqlDialect) location() *time.Location {
	if d.cfg.Loc == nil {
		return time.UTC
	}
	return d.cfg.Loc
}

func (d *mysqlDialect) prepare() error { return nil }

// sqliteDialect is the embedded engine. CURRENT_TIMESTAMP is UTC there.
type sqliteDialect struct {
	path string
}

func (d *sqliteDialect) driverName() string { return DriverSQLite }

func (d *sqliteDialect) dsn() string { return d.path }

func (d *sqliteDialect) serverDSN() (string, string, error) {
	return "", "", fmt.Errorf("sqlite has no server to create databases on")
}

// isUnknownDatabase is always false: opening a missing file creates it.
func (d *sqliteDialect) isUnknownDatabase(error) bool { return false }

func (d *sqliteDialect) createDatabase(string) string { return "" }

func (d *sqliteDialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	distributor TEXT NOT NULL,
	branches TEXT NOT NULL,
	timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE INDEX IF NOT EXISTS idx_records_name ON records(name)`,
		`CREATE INDEX IF NOT EXISTS idx_records_type ON records(type)`,
		`CREATE INDEX IF NOT EXISTS idx_records_distributor ON records(distributor)`,
		`CREATE INDEX IF NOT EXISTS idx_records_timestamp ON records(timestamp)`,
	}
}

func (d *sqliteDialect) location() *time.Location { return time.UTC }

func (d *sqliteDialect) prepare() error {
	if d.path == "" || strings.HasPrefix(d.path, ":memory:") || strings.HasPrefix(d.path, "file:") {
		return nil
	}
	dir := filepath.Dir(d.path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
