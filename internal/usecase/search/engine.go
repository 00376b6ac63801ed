package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/search/plan"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

// Engine is a named backend the service runs queries on.
type Engine interface {
	Name() string
	Run(ctx context.Context, q query.Query) (response.Response, plan.Diagnostics, error)
	Explainer
}

type querierEngine[R Compiled] struct {
	q Querier[R]
}

// Adapt exposes a Querier as an Engine.
func Adapt[R Compiled](q Querier[R]) Engine {
	return querierEngine[R]{q: q}
}

func (e querierEngine[R]) Name() string { return e.q.Name() }

// Run compiles and executes q. The response is usable even with an error.
func (e querierEngine[R]) Run(ctx context.Context, q query.Query) (response.Response, plan.Diagnostics, error) {
	req, err := e.q.Compile(ctx, q)
	if err != nil {
		return e.q.Failure(q), plan.Diagnostics{}, err
	}
	resp, err := e.q.Execute(ctx, req)
	return resp, req.Diagnostics(), err
}

func (e querierEngine[R]) Explain(ctx context.Context, q query.Query) (string, error) {
	x, ok := any(e.q).(Explainer)
	if !ok {
		return "", fmt.Errorf("explain on engine %q: %w", e.q.Name(), domain.ErrNotSupported)
	}
	return x.Explain(ctx, q)
}
