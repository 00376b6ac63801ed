// Package sqlbuilder renders parameterized SELECT statements from a small
// expression tree. It is the only way search compilers reach SQL.
package sqlbuilder

import (
	"fmt"
	"strconv"
)

// Dialect captures the SQL differences between supported drivers.
type Dialect interface {
	// Name returns the database/sql driver name.
	Name() string
	// Placeholder returns the n-th (1-based) bind parameter marker.
	Placeholder(n int) string
	// Like returns the case-insensitive LIKE operator.
	Like() string
	// NumericCast converts a text column to a number, NULL when not numeric.
	NumericCast(col string) string
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string           { return "sqlite" }
func (sqliteDialect) Placeholder(int) string { return "?" }
func (sqliteDialect) Like() string           { return "LIKE" }
func (sqliteDialect) NumericCast(col string) string {
	return fmt.Sprintf("(CASE WHEN %[1]s GLOB '*[0-9]*' AND (%[1]s NOT GLOB '*[^0-9.]*' OR "+
		"(%[1]s GLOB '[-+]*' AND substr(%[1]s, 2) NOT GLOB '*[^0-9.]*')) THEN CAST(%[1]s AS REAL) END)", col)
}

type postgresDialect struct{}

func (postgresDialect) Name() string             { return "pgx" }
func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }
func (postgresDialect) Like() string             { return "ILIKE" }
func (postgresDialect) NumericCast(col string) string {
	return fmt.Sprintf("(CASE WHEN %[1]s ~ '^[-+]{0,1}[0-9]+(\\.[0-9]+){0,1}$' THEN CAST(%[1]s AS DOUBLE PRECISION) END)", col)
}

// Supported dialects.
var (
	SQLite   Dialect = sqliteDialect{}
	Postgres Dialect = postgresDialect{}
)

// DialectFor maps a configured driver ("sqlite", "postgres") to its Dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return nil, fmt.Errorf("sqlbuilder: unsupported driver %q", driver)
	}
}
