package facetdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/facetdex/internal/config"
	"github.com/kailas-cloud/facetdex/internal/wire"
)

// Engine names registered by New.
const (
	EngineSQL   = "sql"
	EngineRedis = "redis"
	EngineBleve = "bleve"
)

// Page configures a named search page.
type Page struct {
	// Engine defaults to EngineSQL.
	Engine string
	// ResourceTypes searched when a query names none; empty means all.
	ResourceTypes []string
	Facets        []FacetSpec
	SuggestField  string
	SuggestLimit  int
}

// Client is the facetdex SDK entry point.
type Client struct {
	app *wire.App
	obs *observer
}

// New opens the database and the configured indexes. It does not migrate
// the schema; call Migrate on a fresh database.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cc := &clientConfig{}
	for _, o := range opts {
		o.apply(cc)
	}
	if cc.dsn == "" {
		return nil, errors.New("facetdex: database required (use WithSQLite or WithPostgres)")
	}

	cfg, err := buildConfig(cc)
	if err != nil {
		return nil, err
	}
	obs, err := newObserver(cc.logger, cc.metricsReg)
	if err != nil {
		return nil, fmt.Errorf("facetdex: %w", err)
	}
	app, err := wire.Build(ctx, cfg, wire.Options{Registerer: cc.metricsReg})
	if err != nil {
		return nil, fmt.Errorf("facetdex: %w", err)
	}
	return &Client{app: app, obs: obs}, nil
}

func buildConfig(cc *clientConfig) (config.Config, error) {
	cfg := config.Config{
		Database: config.DatabaseConfig{Driver: cc.driver, DSN: cc.dsn},
		Redis: config.RedisConfig{
			Addrs:     cc.redisAddrs,
			Password:  cc.redisPassword,
			KeyPrefix: cc.redisPrefix,
		},
		Bleve:   config.BleveConfig{Path: cc.blevePath},
		Engines: map[string]config.EngineConfig{},
		Pages:   map[string]config.PageConfig{},
	}
	engine := func(backend string) config.EngineConfig {
		return config.EngineConfig{
			Backend:        backend,
			ExcludedFields: cc.excludedFields,
			MaxClauses:     cc.maxClauses,
		}
	}
	cfg.Engines[EngineSQL] = engine(config.BackendSQL)
	if cfg.Redis.Enabled() {
		cfg.Engines[EngineRedis] = engine(config.BackendRedis)
	}
	if cfg.Bleve.Enabled() {
		cfg.Engines[EngineBleve] = engine(config.BackendBleve)
	}

	for i, np := range cc.pages {
		if i == 0 {
			cfg.DefaultPage = np.name
		}
		p := np.page
		if p.Engine == "" {
			p.Engine = EngineSQL
		}
		pc := config.PageConfig{
			Engine:        p.Engine,
			ResourceTypes: p.ResourceTypes,
			Suggest:       config.SuggestConfig{Field: p.SuggestField, Limit: p.SuggestLimit},
		}
		for _, f := range p.Facets {
			pc.Facets = append(pc.Facets, config.FacetConfig{
				Name:      f.Name,
				Field:     f.Field,
				Label:     f.Label,
				Type:      string(f.Type),
				Order:     string(f.Order),
				Limit:     f.Limit,
				Languages: f.Languages,
			})
		}
		cfg.Pages[np.name] = pc
	}
	if len(cfg.Pages) == 0 {
		cfg.Pages["default"] = config.PageConfig{Engine: EngineSQL}
		cfg.DefaultPage = "default"
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("facetdex: %w", err)
	}
	return cfg, nil
}

// Close releases all resources.
func (c *Client) Close() error {
	if c.app == nil {
		return nil
	}
	return c.app.Close()
}

// Migrate applies pending database migrations and returns how many ran.
func (c *Client) Migrate(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("migrate", start, err, "applied", n) }()
	return c.app.Migrate(ctx)
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.app.SQL.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Pages returns the configured page names, sorted.
func (c *Client) Pages() []string {
	pages := c.app.Search.Pages()
	names := make([]string, len(pages))
	for i, p := range pages {
		names[i] = p.Name
	}
	return names
}

// Search runs q on a page; "" selects the default page. A failing backend
// yields a Response whose Success is false, not an error.
func (c *Client) Search(ctx context.Context, page string, q Query) (resp Response, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err, "page", page) }()
	return c.app.Search.Search(ctx, page, q)
}

// Suggest returns completions for text on a page.
func (c *Client) Suggest(ctx context.Context, page, text string) (resp Response, err error) {
	start := time.Now()
	defer func() { c.obs.observe("suggest", start, err, "page", page) }()
	return c.app.Search.Suggest(ctx, page, text)
}

// Explain renders the backend request q compiles to.
func (c *Client) Explain(ctx context.Context, page string, q Query) (out string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("explain", start, err, "page", page) }()
	return c.app.Search.Explain(ctx, page, q)
}

// Import stores a vocabulary and resources in the database. External
// indexes are stale until Reindex.
func (c *Client) Import(ctx context.Context, cat Catalog, resources []Resource) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("import", start, err, "resources", len(resources)) }()

	if err = c.app.Resources.SaveCatalog(ctx, cat); err != nil {
		return fmt.Errorf("import catalog: %w", err)
	}
	if err = c.app.Resources.Save(ctx, resources); err != nil {
		return fmt.Errorf("import resources: %w", err)
	}
	return nil
}

// ReindexResult reports one rebuilt index.
type ReindexResult struct {
	Engine    string
	Documents int
	Duration  time.Duration
}

// Reindex rebuilds the index of an external engine (EngineRedis or
// EngineBleve) from the database.
func (c *Client) Reindex(ctx context.Context, engine string) (res ReindexResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reindex", start, err, "engine", engine) }()

	r, err := c.app.Indexing.Reindex(ctx, engine)
	if err != nil {
		return ReindexResult{}, err
	}
	return ReindexResult{Engine: r.Engine, Documents: r.Documents, Duration: r.Duration}, nil
}
