package wire

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/facetdex/internal/config"
	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/search/comparison"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/repository/resource/resourcetest"
	healthuc "github.com/kailas-cloud/facetdex/internal/usecase/health"
)

const memoryConfig = `
database:
  driver: sqlite
  dsn: ":memory:"
bleve:
  path: ":memory:"
engines:
  sql: {}
  bleve: {}
pages:
  catalog:
    engine: sql
    resource_types: [items]
  archive:
    engine: bleve
    resource_types: [items]
default_page: catalog
`

func buildApp(t *testing.T) *App {
	t.Helper()
	cfg, err := config.Parse([]byte(memoryConfig))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	app, err := Build(context.Background(), cfg, Options{Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	if _, err := app.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	resourcetest.Seed(t, app.Resources)
	return app
}

func melville(t *testing.T) query.Query {
	t.Helper()
	q, err := query.NewBuilder().
		Property(query.Clause{Field: "dcterms:creator", Type: comparison.Eq, Values: []string{"Herman Melville"}}).
		Build()
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	return q
}

func TestBuild_Wiring(t *testing.T) {
	app := buildApp(t)

	if diff := cmp.Diff([]string{"bleve"}, app.Indexing.Engines()); diff != "" {
		t.Errorf("indexing engines (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"bleve"}, app.MemoryIndexes); diff != "" {
		t.Errorf("memory indexes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"bleve", "database"}, app.Health.Names()); diff != "" {
		t.Errorf("health checks (-want +got):\n%s", diff)
	}
	if got := app.Search.DefaultPage(); got != "catalog" {
		t.Errorf("default page = %q, want catalog", got)
	}
	ctx := context.Background()
	if got := app.Health.Check(ctx).Status; got != healthuc.Degraded {
		t.Errorf("health before reindex = %q, want degraded", got)
	}
	for _, name := range app.MemoryIndexes {
		if _, err := app.Indexing.Reindex(ctx, name); err != nil {
			t.Fatalf("reindex %s: %v", name, err)
		}
	}
	if got := app.Health.Check(ctx).Status; got != healthuc.Healthy {
		t.Errorf("health after reindex = %q, want ok", got)
	}
}

func TestBuild_SearchAcrossEngines(t *testing.T) {
	app := buildApp(t)
	ctx := context.Background()

	if _, err := app.Indexing.Reindex(ctx, "bleve"); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	for _, page := range []string{"catalog", "archive"} {
		t.Run(page, func(t *testing.T) {
			resp, err := app.Search.Search(ctx, page, melville(t))
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if !resp.Success() {
				t.Fatalf("search failed: %s", resp.Message())
			}
			if got := resp.Total("items"); got != 2 {
				t.Errorf("items total = %d, want 2", got)
			}
		})
	}
}

func TestBuild_ExactMatchIgnoresCaseOnEveryEngine(t *testing.T) {
	app := buildApp(t)
	ctx := context.Background()

	if _, err := app.Indexing.Reindex(ctx, "bleve"); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	clauses := map[string]query.Clause{
		"eq":   {Field: "dcterms:subject", Type: comparison.Eq, Values: []string{"sea"}},
		"list": {Field: "dcterms:subject", Type: comparison.List, Values: []string{"SEA", "whales"}},
	}
	for _, page := range []string{"catalog", "archive"} {
		for name, cl := range clauses {
			t.Run(page+"/"+name, func(t *testing.T) {
				q, err := query.NewBuilder().Property(cl).Build()
				if err != nil {
					t.Fatalf("build query: %v", err)
				}
				resp, err := app.Search.Search(ctx, page, q)
				if err != nil {
					t.Fatalf("search: %v", err)
				}
				if diff := cmp.Diff([]int64{1, 2}, resp.Results("items")); diff != "" {
					t.Errorf("items (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestBuild_UnknownPage(t *testing.T) {
	app := buildApp(t)
	_, err := app.Search.Search(context.Background(), "nope", melville(t))
	if !errors.Is(err, domain.ErrUnknownPage) {
		t.Errorf("err = %v, want ErrUnknownPage", err)
	}
}

func TestBuild_RedisWithoutAddrs(t *testing.T) {
	cfg, err := config.Parse([]byte(memoryConfig))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Engines["cache"] = config.EngineConfig{Backend: config.BackendRedis}
	if _, err := Build(context.Background(), cfg, Options{}); err == nil {
		t.Fatal("expected error for redis engine without redis")
	}
}
