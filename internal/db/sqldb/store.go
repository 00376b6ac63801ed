// Package sqldb opens the relational source (SQLite or PostgreSQL) backing
// the internal search engine and applies its schema.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/db/sqlbuilder"
)

// Config holds connection parameters for the relational source.
type Config struct {
	Driver       string // sqlite | postgres
	DSN          string
	MaxOpenConns int
}

// Store wraps a database/sql pool with its dialect.
type Store struct {
	db      *sql.DB
	dialect sqlbuilder.Dialect
	dsn     string
}

// Open connects to the configured database. It does not run migrations.
func Open(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	d, err := sqlbuilder.DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open(d.Name(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	switch {
	case d == sqlbuilder.SQLite && isMemory(cfg.DSN):
		// Every new connection to :memory: is a fresh database.
		conn.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if d == sqlbuilder.SQLite && !isMemory(cfg.DSN) {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	return &Store{db: conn, dialect: d, dsn: cfg.DSN}, nil
}

// NewStoreForTest wraps an existing pool.
func NewStoreForTest(conn *sql.DB, d sqlbuilder.Dialect) *Store {
	return &Store{db: conn, dialect: d}
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// DB returns the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the SQL dialect of the store.
func (s *Store) Dialect() sqlbuilder.Dialect { return s.dialect }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error { return s.db.Close() }

// WaitForReady polls Ping until the database responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.Ping(ctx); err == nil {
		return nil
	}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Select runs a built statement.
func (s *Store) Select(ctx context.Context, sel *sqlbuilder.Select) (*sql.Rows, error) {
	q, args := sel.Build(s.dialect)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return rows, nil
}

// Count runs a statement selecting a single integer.
func (s *Store) Count(ctx context.Context, sel *sqlbuilder.Select) (int, error) {
	q, args := sel.Build(s.dialect)
	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, &db.Error{Op: db.OpSelect, Err: err}
	}
	return n, nil
}

// Exec runs a statement written with "?" markers.
func (s *Store) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, s.Rebind(query), args...); err != nil {
		return &db.Error{Op: db.OpExec, Err: err}
	}
	return nil
}

// Rebind rewrites "?" markers for the store dialect.
func (s *Store) Rebind(query string) string {
	if s.dialect.Placeholder(1) == "?" {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString(s.dialect.Placeholder(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Tx runs fn in a transaction, rolling back when fn fails.
func (s *Store) Tx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &db.Error{Op: db.OpExec, Err: err}
	}
	if err := fn(&Tx{tx: sqlTx, store: s}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return &db.Error{Op: db.OpExec, Err: err}
	}
	return nil
}

// Tx is a transaction bound to a Store dialect.
type Tx struct {
	tx    *sql.Tx
	store *Store
}

// Exec runs a statement written with "?" markers inside the transaction.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := t.tx.ExecContext(ctx, t.store.Rebind(query), args...); err != nil {
		return &db.Error{Op: db.OpExec, Err: err}
	}
	return nil
}
