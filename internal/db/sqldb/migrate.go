package sqldb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/kailas-cloud/facetdex/internal/db"
	"github.com/kailas-cloud/facetdex/internal/db/sqlbuilder"
)

//go:embed migrations
var migrationsFS embed.FS

func (s *Store) migrationsDir() string {
	if s.dialect == sqlbuilder.Postgres {
		return "migrations/postgres"
	}
	return "migrations/sqlite"
}

func (s *Store) source() (source.Driver, error) {
	src, err := iofs.New(migrationsFS, s.migrationsDir())
	if err != nil {
		return nil, &db.Error{Op: db.OpMigrate, Err: fmt.Errorf("read migrations: %w", err)}
	}
	return src, nil
}

// Migrations returns the embedded schema versions for the store dialect.
func (s *Store) Migrations() ([]uint, error) {
	src, err := s.source()
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	var out []uint
	v, err := src.First()
	for err == nil {
		out = append(out, v)
		v, err = src.Next(v)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, &db.Error{Op: db.OpMigrate, Err: err}
	}
	return out, nil
}

// Migrate applies pending migrations and returns how many ran. A database
// left dirty by a failed migration is reported, not retried.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	versions, err := s.Migrations()
	if err != nil {
		return 0, err
	}
	m, closeMigrator, err := s.migrator()
	if err != nil {
		return 0, &db.Error{Op: db.OpMigrate, Err: err}
	}
	defer closeMigrator()

	before, err := currentVersion(m)
	if err != nil {
		return 0, &db.Error{Op: db.OpMigrate, Err: err}
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, &db.Error{Op: db.OpMigrate, Err: err}
	}
	after, err := currentVersion(m)
	if err != nil {
		return 0, &db.Error{Op: db.OpMigrate, Err: err}
	}

	ran := 0
	for _, v := range versions {
		if v > before && v <= after {
			ran++
		}
	}
	return ran, nil
}

// migrator binds the embedded source to the database. SQLite migrates
// through the store's own pool, which may be an in-memory database, so
// closing leaves that pool open. Postgres migrates over a dedicated pool
// that closing releases.
func (s *Store) migrator() (*migrate.Migrate, func(), error) {
	src, err := s.source()
	if err != nil {
		return nil, nil, err
	}

	var (
		driver database.Driver
		own    *sql.DB
	)
	if s.dialect == sqlbuilder.Postgres {
		own, err = sql.Open(s.dialect.Name(), s.dsn)
		if err == nil {
			driver, err = pgxmigrate.WithInstance(own, &pgxmigrate.Config{})
		}
	} else {
		driver, err = sqlitemigrate.WithInstance(s.db, &sqlitemigrate.Config{})
	}
	if err != nil {
		_ = src.Close()
		if own != nil {
			_ = own.Close()
		}
		return nil, nil, fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.dialect.Name(), driver)
	if err != nil {
		_ = src.Close()
		if own != nil {
			_ = driver.Close()
		}
		return nil, nil, fmt.Errorf("create migrator: %w", err)
	}
	closeFn := func() { _ = src.Close() }
	if own != nil {
		closeFn = func() { _, _ = m.Close() }
	}
	return m, closeFn, nil
}

// currentVersion is 0 before the first migration.
func currentVersion(m *migrate.Migrate) (uint, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if dirty {
		return v, migrate.ErrDirty{Version: int(v)}
	}
	return v, nil
}
