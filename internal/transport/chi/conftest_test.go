package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/search/plan"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
	healthuc "github.com/kailas-cloud/facetdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/facetdex/internal/usecase/search"
)

type fakeEngine struct {
	name       string
	explainErr error
	last       query.Query
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Run(_ context.Context, q query.Query) (response.Response, plan.Diagnostics, error) {
	f.last = q
	page, perPage := max(q.Page(), 1), q.Limit()
	if perPage <= 0 {
		perPage = 10
	}
	resp := response.NewBuilder(page, perPage).
		ResourceTypes(q.ResourceTypes()).
		AddResults("items", []int64{1, 2}, 2).
		Build()
	return resp, plan.Diagnostics{}, nil
}

func (f *fakeEngine) Explain(_ context.Context, q query.Query) (string, error) {
	f.last = q
	if f.explainErr != nil {
		return "", f.explainErr
	}
	return fmt.Sprintf("text=%q", q.Text()), nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fixture struct {
	engine  *fakeEngine
	handler http.Handler
}

func newFixture(t *testing.T, apiKeys ...string) *fixture {
	t.Helper()
	eng := &fakeEngine{name: "sql"}
	svc, err := searchuc.New(searchuc.Config{
		Engines: []searchuc.Engine{eng},
		Pages: []searchuc.Page{
			{
				Name:          "catalog",
				Engine:        "sql",
				ResourceTypes: []string{"items"},
				Facets:        []query.FacetSpec{{Name: "creator", Field: "dcterms:creator", Type: query.FacetValue}},
			},
			{Name: "archive", Engine: "sql"},
		},
		DefaultPage: "catalog",
	})
	if err != nil {
		t.Fatalf("search service: %v", err)
	}
	health := healthuc.New(
		healthuc.Check{Name: "database", Pinger: fakePinger{}},
		healthuc.Check{Name: "redis", Pinger: fakePinger{err: errors.New("down")}},
	)
	srv := NewServer(svc, health, nil)
	return &fixture{
		engine:  eng,
		handler: NewRouter(srv, RouterOptions{APIKeys: apiKeys, Metrics: http.NotFoundHandler()}),
	}
}

func (f *fixture) get(t *testing.T, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

// notSupported is returned by an engine that cannot explain.
var notSupported = fmt.Errorf("explain: %w", domain.ErrNotSupported)
