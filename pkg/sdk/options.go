package facetdex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver string // "sqlite" or "postgres"
	dsn    string

	redisAddrs    []string
	redisPassword string
	redisPrefix   string

	blevePath string

	maxClauses     int
	excludedFields []string
	pages          []namedPage

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

type namedPage struct {
	name string
	page Page
}

// WithSQLite reads resources from a SQLite database file.
// ":memory:" opens a private in-memory database.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "sqlite"
		c.dsn = path
	})
}

// WithPostgres reads resources from PostgreSQL.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "postgres"
		c.dsn = dsn
	})
}

// WithRedis adds the "redis" engine backed by a Redis search index.
// The index is built with Client.Reindex.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.redisPassword = password
	})
}

// WithRedisPrefix overrides the key prefix of the Redis index.
func WithRedisPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisPrefix = prefix
	})
}

// WithBleve adds the "bleve" engine backed by an embedded index at path.
// ":memory:" keeps the index in memory until Close.
func WithBleve(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.blevePath = path
	})
}

// WithMaxClauses caps the compiled clauses per query on every engine.
// Zero means the engine default.
func WithMaxClauses(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxClauses = n
	})
}

// WithExcludedFields hides property terms from free-text search.
func WithExcludedFields(terms ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.excludedFields = append(c.excludedFields, terms...)
	})
}

// WithPage registers a named search page. The first page registered is the
// default; without any, a page named "default" searches the SQL engine.
func WithPage(name string, p Page) Option {
	return optionFunc(func(c *clientConfig) {
		c.pages = append(c.pages, namedPage{name: name, page: p})
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithMetricsRegisterer registers SDK and search metrics on reg.
// Pass nil to disable (default).
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
