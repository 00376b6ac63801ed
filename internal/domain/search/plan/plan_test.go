package plan

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/facetdex/internal/domain/search/comparison"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
)

var allTypes = []string{"items", "item_sets", "media"}

func mustBuild(t *testing.T, b *query.Builder) query.Query {
	t.Helper()
	q, err := b.Build()
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	return q
}

func hasWarning(p Plan, kind WarningKind) bool {
	for _, w := range p.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

func TestBuild_NotRewritesToReciprocal(t *testing.T) {
	for _, typ := range comparison.All() {
		notQ := mustBuild(t, query.NewBuilder().Property(query.Clause{
			Joiner: query.JoinNot, Field: "dcterms:title", Type: typ, Values: []string{"x"},
		}))
		andQ := mustBuild(t, query.NewBuilder().Property(query.Clause{
			Joiner: query.JoinAnd, Field: "dcterms:title", Type: typ.Reciprocal(), Values: []string{"x"},
		}))
		a := Build(notQ, Options{ResourceTypes: allTypes})
		b := Build(andQ, Options{ResourceTypes: allTypes})
		if diff := cmp.Diff(b.Groups, a.Groups); diff != "" {
			t.Errorf("%s: not-joined differs from reciprocal (-and +not):\n%s", typ, diff)
		}
	}
}

func TestBuild_ListNormalization(t *testing.T) {
	q := mustBuild(t, query.NewBuilder().Property(query.Clause{
		Field: "dcterms:subject", Type: comparison.List, Values: []string{" a \nb\n\na", "b", "c"},
	}))
	p := Build(q, Options{ResourceTypes: allTypes})
	if diff := cmp.Diff([]string{"a", "b", "c"}, p.Groups[0][0].Values); diff != "" {
		t.Errorf("values (-want +got):\n%s", diff)
	}
}

func TestBuild_EmptyListIsSkippedSilently(t *testing.T) {
	base := query.Clause{Field: "dcterms:title", Type: comparison.Eq, Values: []string{"x"}}
	with := mustBuild(t, query.NewBuilder().
		Property(base).
		Property(query.Clause{Joiner: query.JoinOr, Field: "dcterms:subject", Type: comparison.List, Values: []string{" ", "\n"}}))
	without := mustBuild(t, query.NewBuilder().Property(base))

	a := Build(with, Options{ResourceTypes: allTypes})
	b := Build(without, Options{ResourceTypes: allTypes})
	if diff := cmp.Diff(b, a); diff != "" {
		t.Errorf("empty list changed the plan (-without +with):\n%s", diff)
	}
}

func TestBuild_UnknownTypeAndMissingValueWarn(t *testing.T) {
	q := mustBuild(t, query.NewBuilder().
		Property(query.Clause{Field: "dcterms:title", Type: "near", Values: []string{"x"}}).
		Property(query.Clause{Field: "dcterms:title", Type: comparison.Eq}).
		Property(query.Clause{Field: "dcterms:title", Type: comparison.Ex}))
	p := Build(q, Options{ResourceTypes: allTypes})
	if p.ClauseCount() != 1 {
		t.Fatalf("ClauseCount = %d, want 1", p.ClauseCount())
	}
	if !hasWarning(p, WarnUnknownType) || !hasWarning(p, WarnMissingValue) {
		t.Errorf("warnings = %v", p.Messages())
	}
}

func TestBuild_TextUsesExcludedFields(t *testing.T) {
	q := mustBuild(t, query.NewBuilder().Text("  ducks "))
	p := Build(q, Options{ResourceTypes: allTypes, ExcludedFields: []string{"dcterms:rights"}})
	want := []query.Clause{{
		Joiner: query.JoinAnd, Except: []string{"dcterms:rights"}, Type: comparison.In, Values: []string{"ducks"},
	}}
	if diff := cmp.Diff(want, p.Groups[0]); diff != "" {
		t.Errorf("text clause (-want +got):\n%s", diff)
	}
}

func sixtyRows(b *query.Builder) *query.Builder {
	for i := 0; i < 60; i++ {
		b.Property(query.Clause{Field: "dcterms:subject", Type: comparison.Eq, Values: []string{fmt.Sprint(i)}})
	}
	return b
}

func TestBuild_ClauseCapTruncates(t *testing.T) {
	q := mustBuild(t, sixtyRows(query.NewBuilder()))
	p := Build(q, Options{ResourceTypes: allTypes, MaxClauses: 50})
	if p.ClauseCount() != 50 {
		t.Errorf("ClauseCount = %d, want 50", p.ClauseCount())
	}
	if !hasWarning(p, WarnTruncated) {
		t.Error("expected truncation warning")
	}
	if hasWarning(p, WarnExclusionsDropped) {
		t.Error("no exclusions were configured")
	}
	if p.Groups[0][49].Value() != "49" {
		t.Errorf("last kept = %q", p.Groups[0][49].Value())
	}
}

func TestBuild_ClauseCapDropsExclusionsFirst(t *testing.T) {
	q := mustBuild(t, sixtyRows(query.NewBuilder().Text("ducks")))
	p := Build(q, Options{ResourceTypes: allTypes, MaxClauses: 50, ExcludedFields: []string{"dcterms:rights"}})
	if !hasWarning(p, WarnExclusionsDropped) {
		t.Fatal("expected exclusions warning")
	}
	if p.ExcludedFields != nil {
		t.Errorf("ExcludedFields = %v", p.ExcludedFields)
	}
	if p.Groups[0][0].Except != nil {
		t.Errorf("text clause still excludes %v", p.Groups[0][0].Except)
	}
	if !hasWarning(p, WarnTruncated) || p.ClauseCount() != 50 {
		t.Errorf("expected truncation to 50 after retry, got %d", p.ClauseCount())
	}
	if p.Warnings[0].Kind != WarnExclusionsDropped {
		t.Errorf("exclusions warning must come first: %v", p.Messages())
	}
}

func TestBuild_ResourceTypeScoping(t *testing.T) {
	q := mustBuild(t, query.NewBuilder().ResourceTypes("media", "annotations", "items"))
	p := Build(q, Options{ResourceTypes: allTypes})
	if diff := cmp.Diff([]string{"media", "items"}, p.ResourceTypes); diff != "" {
		t.Errorf("types (-want +got):\n%s", diff)
	}

	q = mustBuild(t, query.NewBuilder().ResourceTypes("annotations"))
	if p := Build(q, Options{ResourceTypes: allTypes}); !p.Empty() {
		t.Errorf("expected empty scope, got %v", p.ResourceTypes)
	}

	q = mustBuild(t, query.NewBuilder().
		Facet(query.FacetSpec{Name: "type", Type: query.FacetResourceType}).
		ActiveFacet("type", "item_sets"))
	p = Build(q, Options{ResourceTypes: allTypes})
	if diff := cmp.Diff([]string{"item_sets"}, p.ResourceTypes); diff != "" {
		t.Errorf("facet types (-want +got):\n%s", diff)
	}
}

func TestBuild_ActiveFacets(t *testing.T) {
	q := mustBuild(t, query.NewBuilder().
		Facet(query.FacetSpec{Name: "color", Field: "ex:color"}).
		Facet(query.FacetSpec{Name: "year", Field: "dcterms:date", Type: query.FacetRange}).
		Facet(query.FacetSpec{Name: "class", Type: query.FacetResourceClass}).
		ActiveFacet("color", "red", "blue").
		ActiveFacetRange("year", query.Range{From: "1900"}).
		ActiveFacet("class", "foaf:Person"))
	p := Build(q, Options{ResourceTypes: allTypes})

	want := [][]query.Clause{
		{{Joiner: query.JoinAnd, Field: "ex:color", Type: comparison.List, Values: []string{"red", "blue"}}},
		{{Joiner: query.JoinAnd, Field: "dcterms:date", Type: comparison.Gte, Values: []string{"1900"}}},
	}
	if diff := cmp.Diff(want, p.Groups); diff != "" {
		t.Errorf("groups (-want +got):\n%s", diff)
	}
	wantC := []Constraint{{Kind: ConstrainResourceClass, Values: []string{"foaf:Person"}}}
	if diff := cmp.Diff(wantC, p.Constraints); diff != "" {
		t.Errorf("constraints (-want +got):\n%s", diff)
	}

	p = Build(q.WithoutActiveFacet("color"), Options{ResourceTypes: allTypes})
	if p.ClauseCount() != 1 {
		t.Errorf("without color: ClauseCount = %d", p.ClauseCount())
	}
}

func TestBuild_DateTimes(t *testing.T) {
	q := mustBuild(t, query.NewBuilder().
		DateTime(query.DateTimeClause{Joiner: query.JoinNot, Field: query.FieldCreated, Type: comparison.Gt, Value: "2020"}).
		DateTime(query.DateTimeClause{Field: "published", Type: comparison.Gt, Value: "2020"}).
		DateTime(query.DateTimeClause{Field: query.FieldModified, Type: comparison.In, Value: "2020"}).
		DateTime(query.DateTimeClause{Joiner: query.JoinOr, Field: query.FieldModified, Type: comparison.Nex}))
	p := Build(q, Options{ResourceTypes: allTypes})
	want := []query.DateTimeClause{
		{Joiner: query.JoinAnd, Field: query.FieldCreated, Type: comparison.Lte, Value: "2020"},
		{Joiner: query.JoinOr, Field: query.FieldModified, Type: comparison.Nex},
	}
	if diff := cmp.Diff(want, p.DateTimes); diff != "" {
		t.Errorf("date rows (-want +got):\n%s", diff)
	}
	if len(p.Warnings) != 2 {
		t.Errorf("warnings = %v", p.Messages())
	}
}

func TestFold(t *testing.T) {
	and := func(a, b string) string { return "(" + a + " AND " + b + ")" }
	or := func(a, b string) string { return "(" + a + " OR " + b + ")" }
	parts := []Part[string]{
		{Joiner: query.JoinOr, Expr: "A"},
		{Joiner: query.JoinAnd, Expr: "B"},
		{Joiner: query.JoinOr, Expr: "C"},
		{Joiner: "", Expr: "D"},
	}
	got, ok := Fold(parts, and, or)
	if !ok {
		t.Fatal("expected ok")
	}
	if got != "(((A AND B) OR C) AND D)" {
		t.Errorf("Fold = %s", got)
	}
	if _, ok := Fold([]Part[string]{}, and, or); ok {
		t.Error("empty fold must report !ok")
	}
	if !strings.Contains(got, "OR") {
		t.Error("or joiner lost")
	}
}

func TestDiagnostics_Capped(t *testing.T) {
	d := Diagnostics{Warnings: []Warning{
		{Kind: WarnExclusionsDropped},
		{Kind: WarnUnknownType},
		{Kind: WarnTruncated},
	}}
	if diff := cmp.Diff([]WarningKind{WarnExclusionsDropped, WarnTruncated}, d.Capped()); diff != "" {
		t.Errorf("capped (-want +got):\n%s", diff)
	}
	if got := (Diagnostics{}).Capped(); got != nil {
		t.Errorf("empty capped = %v", got)
	}
}
