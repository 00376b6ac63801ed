package facetdex

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/facetdex/internal/domain/search/comparison"
	"github.com/kailas-cloud/facetdex/internal/repository/resource/resourcetest"
)

func newClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	ctx := context.Background()
	c, err := New(ctx, append([]Option{WithSQLite(":memory:")}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	if _, err := c.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := c.Import(ctx, resourcetest.Catalog(), resourcetest.Resources()); err != nil {
		t.Fatalf("Import: %v", err)
	}
	return c
}

func melville(t *testing.T) Query {
	t.Helper()
	q, err := NewQuery().
		ResourceTypes(string(Items)).
		Property(Clause{Field: "dcterms:creator", Type: comparison.Eq, Values: []string{"Herman Melville"}}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return q
}

func TestNew_NoDatabase(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no database provided")
	}
}

func TestNew_InvalidPage(t *testing.T) {
	_, err := New(context.Background(),
		WithSQLite(":memory:"),
		WithPage("archive", Page{Engine: EngineBleve}),
	)
	if err == nil {
		t.Fatal("expected error for a page on an unconfigured engine")
	}
}

func TestBuildConfig(t *testing.T) {
	cc := &clientConfig{}
	for _, o := range []Option{
		WithPostgres("postgres://localhost/facetdex"),
		WithBleve("/var/lib/facetdex/bleve"),
		WithMaxClauses(50),
		WithExcludedFields("dcterms:description"),
		WithPage("catalog", Page{Facets: []FacetSpec{{Name: "subject", Field: "dcterms:subject"}}}),
		WithPage("archive", Page{Engine: EngineBleve}),
	} {
		o.apply(cc)
	}
	cfg, err := buildConfig(cc)
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.Database.Driver)
	}
	if diff := cmp.Diff([]string{EngineBleve, EngineSQL}, cfg.EngineNames()); diff != "" {
		t.Errorf("engines (-want +got):\n%s", diff)
	}
	if got := cfg.Engines[EngineSQL].MaxClauses; got != 50 {
		t.Errorf("max clauses = %d, want 50", got)
	}
	if cfg.DefaultPage != "catalog" {
		t.Errorf("default page = %q, want catalog", cfg.DefaultPage)
	}
	if got := cfg.Pages["catalog"].Engine; got != EngineSQL {
		t.Errorf("catalog engine = %q, want sql", got)
	}
	if got := cfg.Pages["catalog"].Facets[0].Type; got != string(FacetValue) {
		t.Errorf("facet type = %q, want value", got)
	}
}

func TestClient_DefaultPage(t *testing.T) {
	c := newClient(t)
	if diff := cmp.Diff([]string{"default"}, c.Pages()); diff != "" {
		t.Errorf("pages (-want +got):\n%s", diff)
	}
	resp, err := c.Search(context.Background(), "", melville(t))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !resp.Success() {
		t.Fatalf("search failed: %s", resp.Message())
	}
	if got := resp.Total(string(Items)); got != 2 {
		t.Errorf("items total = %d, want 2", got)
	}
}

func TestClient_BleveReindex(t *testing.T) {
	ctx := context.Background()
	c := newClient(t,
		WithBleve(":memory:"),
		WithPage("catalog", Page{}),
		WithPage("archive", Page{Engine: EngineBleve}),
	)

	res, err := c.Reindex(ctx, EngineBleve)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if res.Documents != len(resourcetest.Resources()) {
		t.Errorf("documents = %d, want %d", res.Documents, len(resourcetest.Resources()))
	}

	resp, err := c.Search(ctx, "archive", melville(t))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := resp.Total(string(Items)); got != 2 {
		t.Errorf("items total = %d, want 2", got)
	}
}

func TestClient_ReindexUnknownEngine(t *testing.T) {
	c := newClient(t)
	_, err := c.Reindex(context.Background(), EngineSQL)
	if !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("err = %v, want ErrUnknownEngine", err)
	}
}

func TestClient_UnknownPage(t *testing.T) {
	c := newClient(t)
	_, err := c.Search(context.Background(), "nope", melville(t))
	if !errors.Is(err, ErrUnknownPage) {
		t.Errorf("err = %v, want ErrUnknownPage", err)
	}
}

func TestClient_Explain(t *testing.T) {
	c := newClient(t)
	out, err := c.Explain(context.Background(), "", melville(t))
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if out == "" {
		t.Error("expected compiled SQL")
	}
}

func TestClient_Health(t *testing.T) {
	c := newClient(t)
	h := c.Health(context.Background())
	if h.Status != "ok" {
		t.Errorf("status = %q, want ok", h.Status)
	}
	if h.Checks["database"] != "ok" {
		t.Errorf("database check = %q, want ok", h.Checks["database"])
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newClient(t, WithMetricsRegisterer(reg))
	if _, err := c.Search(context.Background(), "", melville(t)); err != nil {
		t.Fatalf("Search: %v", err)
	}
	ops, err := newSDKMetrics(reg)
	if err != nil {
		t.Fatalf("reuse metrics: %v", err)
	}
	if got := testutil.ToFloat64(ops.operations.WithLabelValues("search", "ok")); got != 1 {
		t.Errorf("search ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ops.operations.WithLabelValues("import", "ok")); got != 1 {
		t.Errorf("import ok = %v, want 1", got)
	}
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery(url.Values{
		"resource_type[]":       {"items"},
		"property[0][property]": {"dcterms:creator"},
		"property[0][type]":     {"eq"},
		"property[0][text]":     {"Herman Melville"},
	})
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	want := []Clause{{Joiner: "and", Field: "dcterms:creator", Type: comparison.Eq, Values: []string{"Herman Melville"}}}
	if diff := cmp.Diff(want, q.Properties(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("properties (-want +got):\n%s", diff)
	}
}

func TestObserver_NilSafe(t *testing.T) {
	// nil observer should not panic.
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("search", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("search", time.Now(), errors.New("fail"))

	if got := testutil.CollectAndCount(obs.metrics.operations, "facetdex_sdk_operations_total"); got != 2 {
		t.Errorf("operation samples = %d, want 2", got)
	}
}

func TestObserver_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("second: %v", err)
	}
}

func TestObserver_WithLogger(t *testing.T) {
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("test.op", time.Now(), nil, "page", "catalog")
	obs.observe("test.op", time.Now(), errors.New("test error"))
}
