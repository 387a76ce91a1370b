// Package store is the storage collaborator for the document API: a
// relational store with JSON-typed columns holding tenants, credentials,
// collections, and objects. Listing endpoints consume exactly one query
// shape, the windowed range query over (created_at, id) in Window.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/gptstore/gptstore/internal/pagination"
)

var (
	// ErrNotFound is returned when a row is absent for the given tenant.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on unique-constraint violations.
	ErrConflict = errors.New("already exists")
)

// Store wraps the SQL database. Supported drivers: sqlite (default, pure Go),
// pgx (PostgreSQL, the original deployment target), mysql.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database and runs migrations. An empty DSN with the
// sqlite driver yields an in-memory store, which tests rely on.
func Open(driver, dsn string) (*Store, error) {
	if driver == "" {
		driver = "sqlite"
	}
	if driver == "sqlite" {
		if dsn == "" {
			dsn = ":memory:"
		}
		// The DSN may already carry its own query parameters.
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS gpts (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			key_hash   TEXT PRIMARY KEY,
			key_prefix TEXT NOT NULL,
			tenant_id  TEXT NOT NULL REFERENCES gpts(id),
			label      TEXT NOT NULL DEFAULT '',
			is_active  BOOLEAN NOT NULL DEFAULT TRUE,
			expires_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			last_used  TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS collections (
			id         TEXT PRIMARY KEY,
			tenant_id  TEXT NOT NULL REFERENCES gpts(id),
			name       TEXT NOT NULL,
			schema     TEXT,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (tenant_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS objects (
			id         TEXT PRIMARY KEY,
			tenant_id  TEXT NOT NULL REFERENCES gpts(id),
			collection TEXT NOT NULL,
			body       TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS objects_tenant_coll_seek
			ON objects (tenant_id, collection, created_at, id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Window is the single query shape the pagination planner needs: rows for a
// tenant-scoped listing, ordered by (created_at, id) in the given direction,
// strictly beyond Boundary when present, at most Limit rows. Callers pass
// limit+1 so the planner can detect further pages.
type Window struct {
	Boundary *pagination.Position
	Order    pagination.Order
	Limit    int
}

// seekClause renders the strict boundary comparison and ORDER BY for a
// window. The id tie-break makes the ordering total, so the resulting cursor
// can neither stall nor loop when timestamps collide.
func (w Window) seekClause() (cond, orderBy string, args []interface{}) {
	dir, cmp := "DESC", "<"
	if w.Order == pagination.OrderAsc {
		dir, cmp = "ASC", ">"
	}
	orderBy = fmt.Sprintf("ORDER BY created_at %s, id %s", dir, dir)
	if w.Boundary != nil {
		cond = fmt.Sprintf("AND (created_at %s ? OR (created_at = ? AND id %s ?))", cmp, cmp)
		args = []interface{}{
			w.Boundary.CreatedAt.UTC(),
			w.Boundary.CreatedAt.UTC(),
			w.Boundary.ID.String(),
		}
	}
	return cond, orderBy, args
}

// now returns the timestamp used for created_at/updated_at columns. Stored
// values are always UTC so that string-typed timestamp columns compare in
// chronological order.
func now() time.Time {
	return time.Now().UTC()
}
