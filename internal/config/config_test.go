package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

func validConfig() Config {
	cfg := Config{
		Redis: RedisConfig{Addrs: []string{"localhost:6379"}},
		Bleve: BleveConfig{Path: ":memory:"},
		Engines: map[string]EngineConfig{
			"sql":   {},
			"redis": {},
			"bleve": {},
		},
		Pages: map[string]PageConfig{
			"catalog": {Engine: "sql", Facets: []FacetConfig{{Name: "creator", Field: "dcterms:creator"}}},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "facetdex.db" {
		t.Errorf("expected sqlite facetdex.db, got %s %s", cfg.Database.Driver, cfg.Database.DSN)
	}
	if cfg.Redis.KeyPrefix != "facetdex:" {
		t.Errorf("expected KeyPrefix='facetdex:', got %q", cfg.Redis.KeyPrefix)
	}
	if cfg.Indexing.BatchSize != 500 {
		t.Errorf("expected BatchSize=500, got %d", cfg.Indexing.BatchSize)
	}
	if diff := cmp.Diff(map[string]EngineConfig{"sql": {Backend: BackendSQL}}, cfg.Engines); diff != "" {
		t.Errorf("engines (-want +got):\n%s", diff)
	}
	if cfg.Pages["default"].Engine != "sql" || cfg.DefaultPage != "default" {
		t.Errorf("default page: %+v, %q", cfg.Pages, cfg.DefaultPage)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 9090, ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Driver: "postgres", DSN: "postgres://x", ReadinessTimeout: 15},
		Redis:    RedisConfig{KeyPrefix: "custom:"},
		Indexing: IndexingConfig{BatchSize: 50},
		Engines:  map[string]EngineConfig{"main": {Backend: BackendSQL}},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9090 || cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("http overridden: %+v", cfg.HTTP)
	}
	if cfg.Database.DSN != "postgres://x" {
		t.Errorf("dsn overridden: %q", cfg.Database.DSN)
	}
	if cfg.Redis.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Redis.KeyPrefix)
	}
	if cfg.Indexing.BatchSize != 50 {
		t.Errorf("expected BatchSize=50, got %d", cfg.Indexing.BatchSize)
	}
	if cfg.Pages["default"].Engine != "main" {
		t.Errorf("default page engine: %q", cfg.Pages["default"].Engine)
	}
}

func TestApplyDefaults_Facets(t *testing.T) {
	cfg := validConfig()
	want := []query.FacetSpec{{
		Name:  "creator",
		Field: "dcterms:creator",
		Label: "creator",
		Type:  query.FacetValue,
		Order: query.OrderCountDesc,
		Limit: query.DefaultFacetLimit,
	}}
	if diff := cmp.Diff(want, cfg.Pages["catalog"].FacetSpecs()); diff != "" {
		t.Errorf("facets (-want +got):\n%s", diff)
	}
	if cfg.DefaultPage != "catalog" {
		t.Errorf("default page: %q", cfg.DefaultPage)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"unknown backend", func(c *Config) { c.Engines["es"] = EngineConfig{Backend: "elastic"} }, "engines.es.backend"},
		{"redis not configured", func(c *Config) { c.Redis.Addrs = nil }, "requires redis.addrs"},
		{"bleve not configured", func(c *Config) { c.Bleve.Path = "" }, "requires bleve.path"},
		{
			"per page above max",
			func(c *Config) { c.Engines["sql"] = EngineConfig{Backend: BackendSQL, DefaultPerPage: 50, MaxPerPage: 10} },
			"exceeds max_per_page",
		},
		{
			"inverted years",
			func(c *Config) {
				c.Engines["sql"] = EngineConfig{
					Backend:   BackendSQL,
					DateYears: DateYearsConfig{Fields: YearRange{Min: 2000, Max: 1000}},
				}
			},
			"date_years.fields",
		},
		{"page engine missing", func(c *Config) { c.Pages["x"] = PageConfig{Engine: "nope"} }, "pages.x.engine"},
		{"default page missing", func(c *Config) { c.DefaultPage = "nope" }, "default_page"},
		{
			"duplicate facet",
			func(c *Config) {
				p := c.Pages["catalog"]
				p.Facets = append(p.Facets, p.Facets[0])
				c.Pages["catalog"] = p
			},
			"declared twice",
		},
		{
			"facet type",
			func(c *Config) {
				c.Pages["catalog"] = PageConfig{Engine: "sql", Facets: []FacetConfig{{Name: "f", Type: "x", Order: "count_desc"}}}
			},
			"unknown type",
		},
		{
			"facet field",
			func(c *Config) {
				c.Pages["catalog"] = PageConfig{Engine: "sql", Facets: []FacetConfig{{Name: "f", Type: "range", Order: "count_desc"}}}
			},
			"field is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("FACETDEX_TEST_DSN", "file:test.db")
	doc := []byte(`
http:
  port: ${FACETDEX_TEST_PORT:-8181}
database:
  driver: sqlite
  dsn: ${FACETDEX_TEST_DSN}
engines:
  sql:
    max_clauses: 20
    excluded_fields: [dcterms:description]
    date_years:
      fields: {min: 1500, max: 2100}
pages:
  catalog:
    engine: sql
    resource_types: [items]
    facets:
      - name: subject
        field: dcterms:subject
        order: alpha_asc
    suggest:
      field: dcterms:title
      limit: 5
`)
	cfg, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != 8181 {
		t.Errorf("port: %d", cfg.HTTP.Port)
	}
	if cfg.Database.DSN != "file:test.db" {
		t.Errorf("dsn: %q", cfg.Database.DSN)
	}
	want := EngineConfig{
		Backend:        BackendSQL,
		ExcludedFields: []string{"dcterms:description"},
		MaxClauses:     20,
		DateYears:      DateYearsConfig{Fields: YearRange{Min: 1500, Max: 2100}},
	}
	if diff := cmp.Diff(want, cfg.Engines["sql"]); diff != "" {
		t.Errorf("engine (-want +got):\n%s", diff)
	}
	page := cfg.Pages["catalog"]
	if page.Suggest != (SuggestConfig{Field: "dcterms:title", Limit: 5}) {
		t.Errorf("suggest: %+v", page.Suggest)
	}
	if page.Facets[0].Order != string(query.OrderAlphaAsc) {
		t.Errorf("facet order: %q", page.Facets[0].Order)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	if err := os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "database.driver") {
		t.Fatalf("expected driver error, got %v", err)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FACETDEX_SET", "yes")
	got := string(expandEnvVars([]byte("a=${FACETDEX_SET} b=${FACETDEX_UNSET:-dflt} c=${FACETDEX_UNSET}")))
	if got != "a=yes b=dflt c=" {
		t.Errorf("got %q", got)
	}
}
