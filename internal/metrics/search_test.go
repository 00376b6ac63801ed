package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSearch_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewSearch(reg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.SearchDone("sql", "ok", 10*time.Millisecond)
	s.SearchDone("sql", "error", time.Millisecond)
	s.ClauseCapped("sql", "truncated")
	s.IncorrectValue("redis", "unsupported")

	if got := testutil.ToFloat64(s.requests.WithLabelValues("sql", "ok")); got != 1 {
		t.Errorf("ok requests = %v", got)
	}
	if got := testutil.ToFloat64(s.clauseLimit.WithLabelValues("sql", "truncated")); got != 1 {
		t.Errorf("clause limit = %v", got)
	}
	if got := testutil.ToFloat64(s.incorrect.WithLabelValues("redis", "unsupported")); got != 1 {
		t.Errorf("incorrect = %v", got)
	}
	if n := testutil.CollectAndCount(s.duration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestNewSearch_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSearch(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := NewSearch(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	second.SearchDone("bleve", "ok", time.Millisecond)
	if got := testutil.ToFloat64(first.requests.WithLabelValues("bleve", "ok")); got != 1 {
		t.Errorf("shared counter = %v, want 1", got)
	}
}
