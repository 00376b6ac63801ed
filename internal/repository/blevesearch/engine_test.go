package blevesearch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/facetdex/internal/domain"
	"github.com/kailas-cloud/facetdex/internal/domain/search/comparison"
	"github.com/kailas-cloud/facetdex/internal/domain/search/query"
	"github.com/kailas-cloud/facetdex/internal/domain/search/response"
)

func TestSearch_ResourceNonNumericValues(t *testing.T) {
	e := newTestEngine(t, Options{})
	tests := []struct {
		name string
		cl   query.Clause
		want []int64
	}{
		{"res mixed", prop("dcterms:relation", comparison.Res, "abc", "2"), []int64{1}},
		{"nres mixed", prop("dcterms:relation", comparison.Nres, "2", "abc"), []int64{2, 3, 4}},
		{"lres mixed", prop("dcterms:relation", comparison.Lres, "x", "1"), []int64{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := runSearch(t, e, items().Property(tt.cl))
			if diff := cmp.Diff(tt.want, resp.Results("items")); diff != "" {
				t.Errorf("items (-want +got):\n%s", diff)
			}
			if !strings.Contains(resp.Message(), `ignored non-numeric resource ids on "dcterms:relation"`) {
				t.Errorf("message = %q", resp.Message())
			}
		})
	}

	resp := runSearch(t, e, items().Property(prop("dcterms:relation", comparison.Nres, "abc")))
	if diff := cmp.Diff([]int64{}, resp.Results("items")); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}
	if !strings.Contains(resp.Message(), "incorrect value: abc") {
		t.Errorf("message = %q", resp.Message())
	}
}

func TestSearch_Properties(t *testing.T) {
	e := newTestEngine(t, Options{})
	notSea := prop("dcterms:subject", comparison.Eq, "Sea")
	notSea.Joiner = query.JoinNot
	orPoetry := prop("dcterms:subject", comparison.Eq, "Poetry")
	orPoetry.Joiner = query.JoinOr

	tests := []struct {
		name string
		b    *query.Builder
		want []int64
	}{
		{"free text", items().Text("melville"), []int64{1, 2}},
		{"eq ignores case", items().Property(prop("dcterms:subject", comparison.Eq, "sea")), []int64{1, 2}},
		{"neq", items().Property(prop("dcterms:subject", comparison.Neq, "Sea")), []int64{3, 4}},
		{"not joiner", items().Property(notSea), []int64{3, 4}},
		{"in", items().Property(prop("dcterms:title", comparison.In, "of")), []int64{3}},
		{"sw", items().Property(prop("dcterms:title", comparison.Sw, "Mo")), []int64{1}},
		{"ew", items().Property(prop("dcterms:title", comparison.Ew, "Dick")), []int64{1}},
		{"numeric field id", items().Property(prop("3", comparison.Eq, "Sea")), []int64{1, 2}},
		{"list", items().Property(prop("dcterms:subject", comparison.List, "Sea\nPoetry")), []int64{1, 2, 3}},
		{"special characters", items().Property(prop("dcterms:subject", comparison.Eq, "100%_done")), []int64{4}},
		{"linked title", items().Property(prop("dcterms:relation", comparison.Eq, "Billy Budd")), []int64{1}},
		{"unknown field", items().Property(prop("dcterms:nope", comparison.Eq, "x")), []int64{}},
		{"ex anywhere", items().Property(prop("", comparison.Ex)), []int64{1, 2, 3, 4}},
		{"nex", items().Property(prop("dcterms:relation", comparison.Nex)), []int64{2, 3, 4}},
		{"res", items().Property(prop("dcterms:relation", comparison.Res, "2")), []int64{1}},
		{"res anywhere", items().Property(prop("", comparison.Res, "2")), []int64{1}},
		{"dtp", items().Property(prop("dcterms:relation", comparison.Dtp, "resource")), []int64{1}},
		{"dtp anywhere", items().Property(prop("", comparison.Dtp, "uri")), []int64{3}},
		{"gt numeric", items().Property(prop("dcterms:extent", comparison.Gt, "100")), []int64{1, 2}},
		{"lte numeric", items().Property(prop("dcterms:extent", comparison.Lte, "112")), []int64{2, 4}},
		{"lt mixed dates", items().Property(prop("dcterms:date", comparison.Lt, "1900")), []int64{1, 3}},
		{"gte text", items().Property(prop("dcterms:title", comparison.Gte, "M")), []int64{1, 4}},
		{"lex anywhere", items().Property(prop("", comparison.Lex)), []int64{2}},
		{"nlex", items().Property(prop("dcterms:relation", comparison.Nlex)), []int64{1, 3, 4}},
		{"lres", items().Property(prop("dcterms:relation", comparison.Lres, "1")), []int64{2}},
		{"lres other subject", items().Property(prop("", comparison.Lres, "3")), []int64{}},
		{
			"or joiner",
			items().Property(prop("dcterms:subject", comparison.Eq, "Sea")).Property(orPoetry),
			[]int64{1, 2, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := runSearch(t, e, tt.b)
			if diff := cmp.Diff(tt.want, resp.Results("items")); diff != "" {
				t.Errorf("items (-want +got):\n%s", diff)
			}
			if resp.Total("items") != len(tt.want) {
				t.Errorf("total = %d, want %d", resp.Total("items"), len(tt.want))
			}
		})
	}
}

func TestSearch_FreeTextExcludedFields(t *testing.T) {
	e := newTestEngine(t, Options{ExcludedFields: []string{"dcterms:creator"}})
	resp := runSearch(t, e, items().Text("melville"))
	if diff := cmp.Diff([]int64{}, resp.Results("items")); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}
	resp = runSearch(t, e, items().Text("whales"))
	if diff := cmp.Diff([]int64{1}, resp.Results("items")); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}
}

func TestSearch_IncorrectResourceID(t *testing.T) {
	e := newTestEngine(t, Options{})
	resp := runSearch(t, e, items().Property(prop("dcterms:relation", comparison.Res, "abc")))
	if len(resp.Results("items")) != 0 {
		t.Errorf("items = %v", resp.Results("items"))
	}
	if !strings.Contains(resp.Message(), "incorrect value: abc") {
		t.Errorf("message = %q", resp.Message())
	}
}

func TestSearch_DateTimes(t *testing.T) {
	e := newTestEngine(t, Options{})
	modified := func(typ comparison.Type) query.DateTimeClause {
		return query.DateTimeClause{Joiner: query.JoinAnd, Field: query.FieldModified, Type: typ}
	}
	tests := []struct {
		row  query.DateTimeClause
		want []int64
	}{
		{created(comparison.Gte, "2020"), []int64{1, 2, 4}},
		{created(comparison.Gt, "2020"), []int64{4}},
		{created(comparison.Lt, "2020"), []int64{3}},
		{created(comparison.Lte, "2020"), []int64{1, 2, 3}},
		{created(comparison.Eq, "2020-06"), []int64{2}},
		{created(comparison.Neq, "2020-01"), []int64{2, 3, 4}},
		{modified(comparison.Ex), []int64{1}},
		{modified(comparison.Nex), []int64{2, 3, 4}},
	}
	for _, tt := range tests {
		resp := runSearch(t, e, items().DateTime(tt.row))
		if diff := cmp.Diff(tt.want, resp.Results("items")); diff != "" {
			t.Errorf("%s %s %s (-want +got):\n%s", tt.row.Field, tt.row.Type, tt.row.Value, diff)
		}
	}
}

func TestSearch_MalformedDateNeverMatches(t *testing.T) {
	e := newTestEngine(t, Options{})
	bad := created(comparison.Gte, "yesterday")
	bad.Joiner = query.JoinOr
	resp := runSearch(t, e, items().DateTime(created(comparison.Gte, "2020")).DateTime(bad))
	if len(resp.Results("items")) != 0 {
		t.Errorf("items = %v", resp.Results("items"))
	}
	if !strings.Contains(resp.Message(), "yesterday") {
		t.Errorf("message = %q", resp.Message())
	}
}

func TestSearch_Scope(t *testing.T) {
	e := newTestEngine(t, Options{})
	tests := []struct {
		name string
		b    *query.Builder
		typ  string
		want []int64
	}{
		{"public", items().Public(true), "items", []int64{1, 2, 4}},
		{"site", items().Site(2), "items", []int64{4}},
		{"sites", items().Sites(1), "items", []int64{1, 2}},
		{"has media", items().HasMedia(true), "items", []int64{1}},
		{"no media", items().HasMedia(false), "items", []int64{2, 3, 4}},
		{"media types", items().MediaTypes("image/jpeg"), "items", []int64{1}},
		{"item sets", items().ItemSets(11), "items", []int64{3}},
		{"classes", items().ResourceClasses("dctype:Image"), "items", []int64{4}},
		{"media inherit sets", query.NewBuilder().ResourceTypes("media").ItemSets(10), "media", []int64{5}},
		{"media text", query.NewBuilder().ResourceTypes("media").Text("cover"), "media", []int64{5}},
		{"set membership", query.NewBuilder().ResourceTypes("item_sets").ItemSets(10), "item_sets", []int64{10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := runSearch(t, e, tt.b)
			if diff := cmp.Diff(tt.want, resp.Results(tt.typ)); diff != "" {
				t.Errorf("%s (-want +got):\n%s", tt.typ, diff)
			}
		})
	}
}

func TestSearch_Sort(t *testing.T) {
	e := newTestEngine(t, Options{})
	tests := []struct {
		field, dir string
		want       []int64
	}{
		{"", "", []int64{1, 2, 3, 4}},
		{"id", "desc", []int64{4, 3, 2, 1}},
		{"title", "asc", []int64{2, 3, 1, 4}},
		{"title", "desc", []int64{4, 1, 3, 2}},
		{"created", "asc", []int64{3, 1, 2, 4}},
		// Items without an extent come last.
		{"dcterms:extent", "asc", []int64{2, 1, 4, 3}},
	}
	for _, tt := range tests {
		resp := runSearch(t, e, items().Sort(tt.field, tt.dir))
		if diff := cmp.Diff(tt.want, resp.Results("items")); diff != "" {
			t.Errorf("sort %s %s (-want +got):\n%s", tt.field, tt.dir, diff)
		}
	}

	resp := runSearch(t, e, items().Sort("weight", "asc"))
	if diff := cmp.Diff([]int64{1, 2, 3, 4}, resp.Results("items")); diff != "" {
		t.Errorf("unknown sort (-want +got):\n%s", diff)
	}
	if !strings.Contains(resp.Message(), `unknown sort field "weight"`) {
		t.Errorf("message = %q", resp.Message())
	}
}

func TestSearch_Pagination(t *testing.T) {
	e := newTestEngine(t, Options{})
	resp := runSearch(t, e, items().Page(2, 3))
	if diff := cmp.Diff([]int64{4}, resp.Results("items")); diff != "" {
		t.Errorf("page 2 (-want +got):\n%s", diff)
	}
	if resp.Total("items") != 4 || resp.PerPage() != 3 || resp.CurrentPage() != 2 {
		t.Errorf("total %d per page %d page %d", resp.Total("items"), resp.PerPage(), resp.CurrentPage())
	}
}

func TestSearch_Facets(t *testing.T) {
	e := newTestEngine(t, Options{})
	resp := runSearch(t, e, query.NewBuilder().ResourceTypes("items", "media").
		Facet(query.FacetSpec{Name: "subject", Field: "dcterms:subject"}).
		Facet(query.FacetSpec{Name: "class", Type: query.FacetResourceClass}).
		Facet(query.FacetSpec{Name: "sets", Type: query.FacetItemSet}).
		ActiveFacet("subject", "Sea"))

	if diff := cmp.Diff([]int64{1, 2}, resp.Results("items")); diff != "" {
		t.Errorf("items (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{}, resp.Results("media")); diff != "" {
		t.Errorf("media (-want +got):\n%s", diff)
	}
	// The subject facet ignores its own selection; the others keep it.
	wantSubject := []response.FacetCount{
		{Value: "Sea", Count: 2}, {Value: "100%_done", Count: 1}, {Value: "Poetry", Count: 1}, {Value: "Whales", Count: 1},
	}
	if diff := cmp.Diff(wantSubject, resp.FacetCounts("subject")); diff != "" {
		t.Errorf("subject (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]response.FacetCount{{Value: "dctype:Text", Count: 2}}, resp.FacetCounts("class")); diff != "" {
		t.Errorf("class (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]response.FacetCount{{Value: "10", Count: 2}}, resp.FacetCounts("sets")); diff != "" {
		t.Errorf("sets (-want +got):\n%s", diff)
	}
}

func TestSearch_FacetLanguagesWarn(t *testing.T) {
	e := newTestEngine(t, Options{})
	resp := runSearch(t, e, items().Facet(query.FacetSpec{Name: "subject", Field: "dcterms:subject", Languages: []string{"en"}}))
	if !strings.Contains(resp.Message(), domain.ErrNotSupported.Error()) {
		t.Errorf("message = %q", resp.Message())
	}
}

func TestSearch_Suggest(t *testing.T) {
	e := newTestEngine(t, Options{})
	resp := runSearch(t, e, items().Public(true).Suggest(query.Suggest{Text: "her"}))
	want := []response.Suggestion{{Value: "Herman Melville", Weight: 2}}
	if diff := cmp.Diff(want, resp.Suggestions()); diff != "" {
		t.Errorf("suggestions (-want +got):\n%s", diff)
	}

	resp = runSearch(t, e, items().Suggest(query.Suggest{Text: "S", Field: "dcterms:subject"}))
	want = []response.Suggestion{{Value: "Sea", Weight: 2}}
	if diff := cmp.Diff(want, resp.Suggestions()); diff != "" {
		t.Errorf("subject suggestions (-want +got):\n%s", diff)
	}

	resp = runSearch(t, e, items().Suggest(query.Suggest{Text: "her", Field: "dcterms:nope"}))
	if got := resp.Suggestions(); got == nil || len(got) != 0 {
		t.Errorf("unknown field suggestions = %#v", got)
	}
}

func TestSearch_MissingIndex(t *testing.T) {
	s, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	e := New(s, Options{})
	q, _ := items().Build()
	resp, err := e.Search(context.Background(), q)
	if !errors.Is(err, domain.ErrBackendExecution) || !errors.Is(err, ErrNotIndexed) {
		t.Fatalf("err = %v", err)
	}
	if resp.Success() || resp.PerPage() != DefaultPerPage {
		t.Errorf("response = success %v per page %d", resp.Success(), resp.PerPage())
	}
}

func TestEngine_MetaCachedUntilReset(t *testing.T) {
	s := newTestStore(t)
	e := New(s, Options{})
	if got := e.ResourceTypes(); got != nil {
		t.Errorf("types before load = %v", got)
	}
	runSearch(t, e, items())
	if diff := cmp.Diff([]string{"items", "item_sets", "media"}, e.ResourceTypes()); diff != "" {
		t.Errorf("types (-want +got):\n%s", diff)
	}
	e.Reset()
	if got := e.ResourceTypes(); got != nil {
		t.Errorf("types after reset = %v", got)
	}

	configured := New(s, Options{ResourceTypes: []string{"media"}})
	if diff := cmp.Diff([]string{"media"}, configured.ResourceTypes()); diff != "" {
		t.Errorf("configured types (-want +got):\n%s", diff)
	}
}

func TestExplain(t *testing.T) {
	e := newTestEngine(t, Options{})
	q, err := items().Property(prop("dcterms:subject", comparison.Eq, "Sea")).
		Facet(query.FacetSpec{Name: "class", Type: query.FacetResourceClass}).
		Sort("weight", "").
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	out, err := e.Explain(context.Background(), q)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	for _, want := range []string{
		"-- items\n",
		`"term":"sea"`,
		`"field":"p3"`,
		"sort=id",
		"-- facet class\n",
		"facet=class:resource_class",
		`-- warning: unknown sort field "weight"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("explain misses %q:\n%s", want, out)
		}
	}
}
