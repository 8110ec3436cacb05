// Package store persists teams, users, credentials, image metadata, and
// audit logs through sqlx. SQLite is the default backend; PostgreSQL is
// supported as an alternative for deployments that already run one.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported driver names for Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is the persistence layer. All methods are safe for concurrent use;
// writes are serialized by the underlying database.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the given backend and runs migrations. For DriverSQLite
// the dsn is a file path or ":memory:"; for DriverPostgres it is a standard
// connection string handled by pgx.
func Open(driver, dsn string) (*Store, error) {
	var db *sqlx.DB
	var err error

	switch driver {
	case DriverSQLite:
		db, err = sqlx.Connect("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	case DriverPostgres:
		db, err = sqlx.Connect("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// NewStore opens a SQLite store under dataDir. Pass empty string for
// in-memory, as the tests do.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return Open(DriverSQLite, ":memory:?_journal_mode=WAL")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := filepath.Join(dataDir, "imgvault.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	return Open(DriverSQLite, dsn)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind converts "?" placeholders to the backend's bindvar style.
func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}
