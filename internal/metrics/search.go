package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every facetdex metric.
const Namespace = "facetdex"

// Search records query executions per engine.
type Search struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	clauseLimit *prometheus.CounterVec
	incorrect   *prometheus.CounterVec
}

// NewSearch registers the search collectors on reg, reusing collectors an
// earlier call registered.
func NewSearch(reg prometheus.Registerer) (*Search, error) {
	s := &Search{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_requests_total",
			Help:      "Search executions by engine and status",
		}, []string{"engine", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_duration_seconds",
			Help:      "Search execution duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"engine"}),
		clauseLimit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_clause_limit_total",
			Help:      "Queries over the clause cap, by action taken",
		}, []string{"engine", "action"}),
		incorrect: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_incorrect_values_total",
			Help:      "Clauses skipped or compiled to never-matching predicates",
		}, []string{"engine", "kind"}),
	}
	for _, c := range []**prometheus.CounterVec{&s.requests, &s.clauseLimit, &s.incorrect} {
		if err := RegisterOrReuse(reg, c); err != nil {
			return nil, err
		}
	}
	if err := RegisterOrReuse(reg, &s.duration); err != nil {
		return nil, err
	}
	return s, nil
}

// SearchDone counts one execution.
func (s *Search) SearchDone(engine, status string, d time.Duration) {
	s.requests.WithLabelValues(engine, status).Inc()
	s.duration.WithLabelValues(engine).Observe(d.Seconds())
}

// ClauseCapped counts one clause-cap action.
func (s *Search) ClauseCapped(engine, action string) {
	s.clauseLimit.WithLabelValues(engine, action).Inc()
}

// IncorrectValue counts one rejected clause.
func (s *Search) IncorrectValue(engine, kind string) {
	s.incorrect.WithLabelValues(engine, kind).Inc()
}

// RegisterOrReuse registers *c on reg, or points *c at the collector already
// registered under the same descriptor.
func RegisterOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("metric already registered with type %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("register metric: %w", err)
	}
	return nil
}
