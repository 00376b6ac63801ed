package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/facetdex/internal/domain/search/plan"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

// Compiled is an engine's compiled request.
type Compiled interface {
	Diagnostics() plan.Diagnostics
}

// Querier compiles and executes queries against one backend.
type Querier[R Compiled] interface {
	Name() string
	Compile(ctx context.Context, q query.Query) (R, error)
	Execute(ctx context.Context, req R) (response.Response, error)
	// Failure is the response returned when q cannot be compiled.
	Failure(q query.Query) response.Response
}

// Explainer renders what a query compiles to.
type Explainer interface {
	Explain(ctx context.Context, q query.Query) (string, error)
}

// Observer records search executions.
type Observer interface {
	SearchDone(engine, status string, d time.Duration)
	ClauseCapped(engine, action string)
	IncorrectValue(engine, kind string)
}
