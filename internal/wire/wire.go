// Package wire assembles stores, engines and services from configuration.
// The HTTP server, the CLI and the SDK share it.
package wire

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/config"
	dbRedis "github.com/kailas-cloud/facetdex/internal/db/redis"
	"github.com/kailas-cloud/facetdex/internal/db/sqldb"
	"github.com/kailas-cloud/facetdex/internal/domain/datetime"
	"github.com/kailas-cloud/facetdex/internal/metrics"
	"github.com/kailas-cloud/facetdex/internal/repository/blevesearch"
	"github.com/kailas-cloud/facetdex/internal/repository/resource"
	searchrepo "github.com/kailas-cloud/facetdex/internal/repository/search"
	"github.com/kailas-cloud/facetdex/internal/repository/sqlsearch"
	healthuc "github.com/kailas-cloud/facetdex/internal/usecase/health"
	"github.com/kailas-cloud/facetdex/internal/usecase/indexing"
	searchuc "github.com/kailas-cloud/facetdex/internal/usecase/search"
)

// Options tune Build.
type Options struct {
	Logger *zap.Logger
	// Registerer receives the search metrics; nil disables them.
	Registerer prometheus.Registerer
}

// App is the assembled application.
type App struct {
	Config    config.Config
	SQL       *sqldb.Store
	Redis     *dbRedis.Store
	Bleve     *blevesearch.Store
	Resources *resource.Repo
	Search    *searchuc.Service
	Indexing  *indexing.Service
	Health    *healthuc.Service
	// MemoryIndexes name the engines whose index lives in memory and
	// must be rebuilt after start.
	MemoryIndexes []string

	closers []func() error
}

// Build opens every configured store and wires the services. On error the
// stores opened so far are closed.
func Build(ctx context.Context, cfg config.Config, opts Options) (app *App, err error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	opened := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = opened.Close()
			app = nil
		}
	}()
	app = opened

	if err := app.openStores(ctx, cfg, log); err != nil {
		return nil, err
	}
	app.Resources = resource.New(app.SQL)

	var obs searchuc.Observer
	if opts.Registerer != nil {
		m, err := metrics.NewSearch(opts.Registerer)
		if err != nil {
			return nil, fmt.Errorf("search metrics: %w", err)
		}
		obs = m
	}

	engines, targets, err := app.engines(cfg)
	if err != nil {
		return nil, err
	}

	pages := make([]searchuc.Page, 0, len(cfg.Pages))
	for _, name := range cfg.PageNames() {
		p := cfg.Pages[name]
		pages = append(pages, searchuc.Page{
			Name:          name,
			Engine:        p.Engine,
			ResourceTypes: p.ResourceTypes,
			Facets:        p.FacetSpecs(),
			Suggest:       searchuc.SuggestOptions{Field: p.Suggest.Field, Limit: p.Suggest.Limit},
		})
	}
	app.Search, err = searchuc.New(searchuc.Config{
		Engines:     engines,
		Pages:       pages,
		DefaultPage: cfg.DefaultPage,
		Observer:    obs,
		Logger:      log.Named("search"),
	})
	if err != nil {
		return nil, fmt.Errorf("search service: %w", err)
	}

	app.Indexing = indexing.New(app.Resources, log.Named("indexing"), targets...).
		WithBatchSize(cfg.Indexing.BatchSize)

	checks := []healthuc.Check{{Name: "database", Pinger: app.SQL}}
	if app.Redis != nil {
		checks = append(checks, healthuc.Check{Name: "redis", Pinger: app.Redis})
	}
	if app.Bleve != nil {
		checks = append(checks, healthuc.Check{Name: "bleve", Pinger: app.Bleve})
	}
	app.Health = healthuc.New(checks...)
	return app, nil
}

func (a *App) openStores(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	store, err := sqldb.Open(sqldb.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.SQL = store
	a.closers = append(a.closers, store.Close)
	timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	log.Info("connected to database", zap.String("driver", cfg.Database.Driver))

	if cfg.Redis.Enabled() {
		rs, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("open redis: %w", err)
		}
		a.Redis = rs
		a.closers = append(a.closers, func() error { rs.Close(); return nil })
		if err := rs.WaitForReady(ctx, timeout); err != nil {
			return fmt.Errorf("redis not ready: %w", err)
		}
		log.Info("connected to redis", zap.Strings("addrs", cfg.Redis.Addrs))
	}

	if cfg.Bleve.Enabled() {
		bs, err := blevesearch.Open(cfg.Bleve.Path)
		if err != nil {
			return fmt.Errorf("open bleve: %w", err)
		}
		a.Bleve = bs
		a.closers = append(a.closers, bs.Close)
		log.Info("opened bleve index", zap.String("path", cfg.Bleve.Path))
	}
	return nil
}

// engines builds one search engine per configured name, and one indexing
// target per external engine.
func (a *App) engines(cfg config.Config) ([]searchuc.Engine, []indexing.Target, error) {
	var (
		engines    []searchuc.Engine
		redisReset []indexing.Resetter
		bleveReset []indexing.Resetter
		redisNames []string
		bleveNames []string
	)
	for _, name := range cfg.EngineNames() {
		ec := cfg.Engines[name]
		fields, values := bounds(ec.DateYears.Fields), bounds(ec.DateYears.Values)
		switch ec.Backend {
		case config.BackendSQL:
			e := sqlsearch.New(a.SQL, sqlsearch.Options{
				Name:           name,
				ResourceTypes:  ec.ResourceTypes,
				ExcludedFields: ec.ExcludedFields,
				MaxClauses:     ec.MaxClauses,
				DefaultPerPage: ec.DefaultPerPage,
				MaxPerPage:     ec.MaxPerPage,
				FieldBounds:    fields,
				ValueBounds:    values,
			})
			engines = append(engines, searchuc.Adapt[*sqlsearch.Request](e))
		case config.BackendRedis:
			if a.Redis == nil {
				return nil, nil, fmt.Errorf("engine %q: redis is not configured", name)
			}
			e := searchrepo.New(a.Redis, searchrepo.Options{
				Name:           name,
				Prefix:         cfg.Redis.KeyPrefix,
				ResourceTypes:  ec.ResourceTypes,
				ExcludedFields: ec.ExcludedFields,
				MaxClauses:     ec.MaxClauses,
				DefaultPerPage: ec.DefaultPerPage,
				MaxPerPage:     ec.MaxPerPage,
				FieldBounds:    fields,
			})
			engines = append(engines, searchuc.Adapt[*searchrepo.Request](e))
			redisReset = append(redisReset, e)
			redisNames = append(redisNames, name)
		case config.BackendBleve:
			if a.Bleve == nil {
				return nil, nil, fmt.Errorf("engine %q: bleve is not configured", name)
			}
			e := blevesearch.New(a.Bleve, blevesearch.Options{
				Name:           name,
				ResourceTypes:  ec.ResourceTypes,
				ExcludedFields: ec.ExcludedFields,
				MaxClauses:     ec.MaxClauses,
				DefaultPerPage: ec.DefaultPerPage,
				MaxPerPage:     ec.MaxPerPage,
				FieldBounds:    fields,
				ValueBounds:    values,
			})
			engines = append(engines, searchuc.Adapt[*blevesearch.Request](e))
			bleveReset = append(bleveReset, e)
			bleveNames = append(bleveNames, name)
		default:
			return nil, nil, fmt.Errorf("engine %q: unknown backend %q", name, ec.Backend)
		}
	}

	// Engines of one backend share its index, so rebuilding through any of
	// them resets all of them.
	var targets []indexing.Target
	if len(redisNames) > 0 {
		x := searchrepo.NewIndexer(a.Redis, cfg.Redis.KeyPrefix)
		for _, name := range redisNames {
			targets = append(targets, indexing.Target{Name: name, Indexer: x, Engines: redisReset})
		}
	}
	if len(bleveNames) > 0 {
		x := blevesearch.NewIndexer(a.Bleve)
		for _, name := range bleveNames {
			targets = append(targets, indexing.Target{Name: name, Indexer: x, Engines: bleveReset})
		}
		if cfg.Bleve.Path == blevesearch.MemoryPath {
			a.MemoryIndexes = append(a.MemoryIndexes, bleveNames[0])
		}
	}
	return engines, targets, nil
}

func bounds(r config.YearRange) datetime.Bounds {
	if r.IsZero() {
		return datetime.Bounds{}
	}
	return datetime.Bounds{MinYear: r.Min, MaxYear: r.Max}
}

// Migrate applies pending relational migrations.
func (a *App) Migrate(ctx context.Context) (int, error) {
	n, err := a.SQL.Migrate(ctx)
	if err != nil {
		return n, fmt.Errorf("migrate: %w", err)
	}
	return n, nil
}

// Close releases every opened store, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
