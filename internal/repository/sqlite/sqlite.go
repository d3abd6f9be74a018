// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. It is the default
// backend and the one every test in this repo runs against (":memory:").
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// SCHEMA:
// The schema lives in migrations/*.sql and is applied with goose on every start.
// goose records applied versions in its own table, so re-running is a no-op.
//
// UNIQUENESS:
// Email uniqueness and item id sequencing are enforced by the schema (UNIQUE
// columns), never by a read-then-write in Go. A rejected write comes back as
// apperror.ErrConflict.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/pressly/goose/v3"
	"github.com/sakif/secondchance/internal/apperror"
	"github.com/sakif/secondchance/internal/repository"

	// Besides its error type, importing the driver runs its init(), which
	// registers it with database/sql under the name "sqlite".
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// compile-time check that *DB is a complete store backend
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and hands out the per-collection adapters.
type DB struct {
	conn  *sql.DB
	users *UserDB
	items *ItemDB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/secondchance.db" → file-based database (persistent)
//   - ":memory:"             → in-memory database (great for tests, lost on close)
func New(ctx context.Context, dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a brand new, empty database.
	// Pinning the pool to one connection keeps the migrated schema visible.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	// Concurrent writers wait for the lock instead of failing with SQLITE_BUSY.
	if _, err := conn.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	if err := migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return newFromConn(conn), nil
}

// newFromConn builds a DB around an already-open pool without touching the
// schema. Tests use it to put a sqlmock connection behind the adapters.
func newFromConn(conn *sql.DB) *DB {
	return &DB{
		conn:  conn,
		users: &UserDB{conn: conn},
		items: &ItemDB{conn: conn},
	}
}

// Users returns the account adapter.
func (db *DB) Users() repository.UserRepository { return db.users }

// Items returns the catalog adapter.
func (db *DB) Items() repository.ItemRepository { return db.items }

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate applies every pending migration embedded in the binary.
func migrate(ctx context.Context, conn *sql.DB) error {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, fsys)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is SQLite rejecting a write because
// of a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// translate maps driver errors onto the apperror taxonomy.
func translate(err error, resource, key, op string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperror.NotFound(resource)
	case isUniqueViolation(err):
		return apperror.Conflict(resource, key)
	default:
		return fmt.Errorf("sqlite: %s: %w", op, err)
	}
}
