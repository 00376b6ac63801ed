// Package config loads the per-environment YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

// Backends.
const (
	BackendSQL   = "sql"
	BackendRedis = "redis"
	BackendBleve = "bleve"
)

// Config holds the facetdex configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Bleve    BleveConfig    `yaml:"bleve"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Indexing IndexingConfig `yaml:"indexing"`

	Engines map[string]EngineConfig `yaml:"engines"`
	Pages   map[string]PageConfig   `yaml:"pages"`
	// DefaultPage serves /api/v1/search; the first page by name when empty.
	DefaultPage string `yaml:"default_page"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the relational source settings.
type DatabaseConfig struct {
	Driver           string `yaml:"driver"` // sqlite, postgres (default: sqlite)
	DSN              string `yaml:"dsn"`
	MaxOpenConns     int    `yaml:"max_open_conns"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// RedisConfig holds the optional Redis search settings.
type RedisConfig struct {
	Addrs     []string `yaml:"addrs"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
}

// Enabled reports whether Redis is configured.
func (c RedisConfig) Enabled() bool { return len(c.Addrs) > 0 }

// BleveConfig holds the optional embedded index settings.
type BleveConfig struct {
	// Path is the index directory; ":memory:" keeps it in memory.
	Path string `yaml:"path"`
}

// Enabled reports whether a bleve index is configured.
func (c BleveConfig) Enabled() bool { return c.Path != "" }

// IndexingConfig holds reindex settings.
type IndexingConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// EngineConfig configures one named search engine.
type EngineConfig struct {
	Backend        string          `yaml:"backend"` // sql, redis, bleve (default: the engine name)
	ResourceTypes  []string        `yaml:"resource_types"`
	ExcludedFields []string        `yaml:"excluded_fields"`
	MaxClauses     int             `yaml:"max_clauses"`
	DefaultPerPage int             `yaml:"default_per_page"`
	MaxPerPage     int             `yaml:"max_per_page"`
	DateYears      DateYearsConfig `yaml:"date_years"`
}

// DateYearsConfig bounds the years accepted in date rows. Zero ranges take
// the engine defaults.
type DateYearsConfig struct {
	// Fields applies to created/modified.
	Fields YearRange `yaml:"fields"`
	// Values applies to dates compared with property values.
	Values YearRange `yaml:"values"`
}

// YearRange is an inclusive year interval.
type YearRange struct {
	Min int64 `yaml:"min"`
	Max int64 `yaml:"max"`
}

// IsZero reports whether the range is unset.
func (r YearRange) IsZero() bool { return r.Min == 0 && r.Max == 0 }

// PageConfig configures one named search page.
type PageConfig struct {
	Engine        string        `yaml:"engine"`
	ResourceTypes []string      `yaml:"resource_types"`
	Facets        []FacetConfig `yaml:"facets"`
	Suggest       SuggestConfig `yaml:"suggest"`
}

// FacetConfig declares one facet of a page.
type FacetConfig struct {
	Name      string   `yaml:"name"`
	Field     string   `yaml:"field"`
	Label     string   `yaml:"label"`
	Type      string   `yaml:"type"`  // value, range, resource_class, resource_type, item_set
	Order     string   `yaml:"order"` // count_desc, count_asc, alpha_asc, alpha_desc
	Limit     int      `yaml:"limit"`
	Languages []string `yaml:"languages"`
}

// SuggestConfig holds the suggestion settings of a page.
type SuggestConfig struct {
	Field string `yaml:"field"`
	Limit int    `yaml:"limit"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "facetdex.db"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "facetdex:"
	}
	if c.Indexing.BatchSize <= 0 {
		c.Indexing.BatchSize = 500
	}

	if len(c.Engines) == 0 {
		c.Engines = map[string]EngineConfig{BackendSQL: {}}
	}
	for name, e := range c.Engines {
		if e.Backend == "" {
			e.Backend = name
		}
		c.Engines[name] = e
	}
	if len(c.Pages) == 0 {
		c.Pages = map[string]PageConfig{"default": {Engine: c.EngineNames()[0]}}
	}
	for name, p := range c.Pages {
		if p.Engine == "" && len(c.Engines) == 1 {
			p.Engine = c.EngineNames()[0]
		}
		for i := range p.Facets {
			f := &p.Facets[i]
			if f.Type == "" {
				f.Type = string(query.FacetValue)
			}
			if f.Order == "" {
				f.Order = string(query.OrderCountDesc)
			}
			if f.Limit <= 0 {
				f.Limit = query.DefaultFacetLimit
			}
			if f.Label == "" {
				f.Label = f.Name
			}
		}
		c.Pages[name] = p
	}
	if c.DefaultPage == "" {
		c.DefaultPage = c.PageNames()[0]
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be \"sqlite\" or \"postgres\", got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}

	for _, name := range c.EngineNames() {
		if err := c.validateEngine(name, c.Engines[name]); err != nil {
			return err
		}
	}
	for _, name := range c.PageNames() {
		if err := c.validatePage(name, c.Pages[name]); err != nil {
			return err
		}
	}
	if _, ok := c.Pages[c.DefaultPage]; !ok {
		return fmt.Errorf("default_page %q is not a configured page", c.DefaultPage)
	}
	return nil
}

func (c *Config) validateEngine(name string, e EngineConfig) error {
	switch e.Backend {
	case BackendSQL:
	case BackendRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("engines.%s: backend redis requires redis.addrs", name)
		}
	case BackendBleve:
		if !c.Bleve.Enabled() {
			return fmt.Errorf("engines.%s: backend bleve requires bleve.path", name)
		}
	default:
		return fmt.Errorf("engines.%s.backend must be sql, redis or bleve, got %q", name, e.Backend)
	}
	if e.MaxPerPage > 0 && e.DefaultPerPage > e.MaxPerPage {
		return fmt.Errorf("engines.%s: default_per_page %d exceeds max_per_page %d",
			name, e.DefaultPerPage, e.MaxPerPage)
	}
	for field, r := range map[string]YearRange{"fields": e.DateYears.Fields, "values": e.DateYears.Values} {
		if !r.IsZero() && r.Min > r.Max {
			return fmt.Errorf("engines.%s.date_years.%s: min %d exceeds max %d", name, field, r.Min, r.Max)
		}
	}
	return nil
}

func (c *Config) validatePage(name string, p PageConfig) error {
	if _, ok := c.Engines[p.Engine]; !ok {
		return fmt.Errorf("pages.%s.engine %q is not a configured engine", name, p.Engine)
	}
	seen := make(map[string]bool, len(p.Facets))
	for i, f := range p.Facets {
		switch {
		case f.Name == "":
			return fmt.Errorf("pages.%s.facets[%d]: name is required", name, i)
		case seen[f.Name]:
			return fmt.Errorf("pages.%s.facets: %q declared twice", name, f.Name)
		case !query.FacetType(f.Type).Valid():
			return fmt.Errorf("pages.%s.facets.%s: unknown type %q", name, f.Name, f.Type)
		case !query.FacetOrder(f.Order).Valid():
			return fmt.Errorf("pages.%s.facets.%s: unknown order %q", name, f.Name, f.Order)
		case query.FacetType(f.Type).NeedsField() && f.Field == "":
			return fmt.Errorf("pages.%s.facets.%s: field is required for type %s", name, f.Name, f.Type)
		}
		seen[f.Name] = true
	}
	return nil
}

// EngineNames lists the configured engines, sorted.
func (c *Config) EngineNames() []string { return sortedKeys(c.Engines) }

// PageNames lists the configured pages, sorted.
func (c *Config) PageNames() []string { return sortedKeys(c.Pages) }

// FacetSpecs converts the page facets to query specs.
func (p PageConfig) FacetSpecs() []query.FacetSpec {
	out := make([]query.FacetSpec, 0, len(p.Facets))
	for _, f := range p.Facets {
		out = append(out, query.FacetSpec{
			Name:      f.Name,
			Field:     f.Field,
			Label:     f.Label,
			Type:      query.FacetType(f.Type),
			Order:     query.FacetOrder(f.Order),
			Limit:     f.Limit,
			Languages: f.Languages,
		})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
