package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/insertdb/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Empty database
// 1 - Initial schema (source, batch, instance, inserted)
const currentSchemaVersion = ir.SchemaVersion

// DefaultBusyTimeout bounds how long a statement waits on a lock held by
// another process (for example an external reader mid-checkpoint).
const DefaultBusyTimeout = 5 * time.Second

// Store is a single SQLite connection with the insertion schema applied.
//
// Store is not safe for concurrent use. Exactly one goroutine (the engine
// worker) may call WithTx at a time.
type Store struct {
	db   *sql.DB
	conn *sql.Conn
	path string
}

// Option configures Open.
type Option func(*options)

type options struct {
	busyTimeout time.Duration
}

// WithBusyTimeout sets the SQLite busy_timeout pragma.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		o.busyTimeout = d
	}
}

// Open creates or opens a SQLite database at the given path and pins the one
// connection the store will ever use. Applies required pragmas and migrations
// automatically; both are idempotent.
//
// The path ":memory:" opens a private in-memory database, which lives exactly
// as long as the Store.
//
// Every failure is returned as an *Error with CodeInitialization. Callers
// should treat it as fatal.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	o := options{busyTimeout: DefaultBusyTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, initError("open database", err)
	}

	// SQLite only supports one writer at a time, and pragmas such as
	// foreign_keys are per-connection, so the pool holds a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, initError("connect to database", err)
	}

	if err := applyPragmas(ctx, conn, o); err != nil {
		conn.Close()
		db.Close()
		return nil, initError("apply pragmas", err)
	}

	if err := applySchema(ctx, conn); err != nil {
		conn.Close()
		db.Close()
		return nil, initError("apply schema", err)
	}

	return &Store{db: db, conn: conn, path: path}, nil
}

// Path returns the path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close releases the connection and closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	var connErr error
	if s.conn != nil {
		connErr = s.conn.Close()
		s.conn = nil
	}
	dbErr := s.db.Close()
	s.db = nil
	if connErr != nil && connErr != sql.ErrConnDone {
		return fmt.Errorf("close connection: %w", connErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close database: %w", dbErr)
	}
	return nil
}

// applyPragmas sets required SQLite configuration on the pinned connection.
func applyPragmas(ctx context.Context, conn *sql.Conn, o options) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(ctx, conn); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(ctx context.Context, conn *sql.Conn) error {
	var version int
	if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d",
			version, currentSchemaVersion)
	}

	// Version 1 is the baseline created by schema.sql; later migrations
	// are applied here in order.

	if version != currentSchemaVersion {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.conn.QueryRowContext(context.Background(), query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
