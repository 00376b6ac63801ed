package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func TestSearch_DefaultPage(t *testing.T) {
	f := newFixture(t)
	rr := f.get(t, "/api/v1/search?q=cat&page=2&per_page=5")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: %q", ct)
	}
	body := decode[map[string]any](t, rr)
	if body["success"] != true {
		t.Errorf("success: %v", body["success"])
	}
	if body["current_page"] != float64(2) || body["per_page"] != float64(5) {
		t.Errorf("pagination: %v/%v", body["current_page"], body["per_page"])
	}
	if f.engine.last.Text() != "cat" {
		t.Errorf("text: %q", f.engine.last.Text())
	}
	if _, ok := f.engine.last.Facet("creator"); !ok {
		t.Error("page facets not applied")
	}
}

func TestSearch_NamedPage(t *testing.T) {
	f := newFixture(t)
	rr := f.get(t, "/api/v1/pages/archive/search?resource_type[]=media")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", rr.Code, rr.Body)
	}
	if diff := cmp.Diff([]string{"media"}, f.engine.last.ResourceTypes()); diff != "" {
		t.Errorf("resource types (-want +got):\n%s", diff)
	}
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		status int
		code   ErrorCode
	}{
		{"invalid page number", "/api/v1/search?page=abc", http.StatusBadRequest, CodeInvalidQuery},
		{"unknown page", "/api/v1/pages/nope/search", http.StatusNotFound, CodePageNotFound},
		{"suggest without text", "/api/v1/pages/catalog/suggest", http.StatusBadRequest, CodeBadRequest},
		{"unknown route", "/api/v1/nothing", http.StatusNotFound, CodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := newFixture(t).get(t, tt.target)
			if rr.Code != tt.status {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.status)
			}
			if got := decode[ErrorResponse](t, rr); got.Code != tt.code {
				t.Errorf("code: got %s, want %s", got.Code, tt.code)
			}
		})
	}
}

func TestSearch_UnknownPageMessageIsSafe(t *testing.T) {
	rr := newFixture(t).get(t, "/api/v1/pages/secret-internal/search")
	got := decode[ErrorResponse](t, rr)
	if got.Message != "unknown search page" {
		t.Errorf("message leaks details: %q", got.Message)
	}
}

func TestSuggest(t *testing.T) {
	f := newFixture(t)
	rr := f.get(t, "/api/v1/pages/catalog/suggest?q=ca")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", rr.Code, rr.Body)
	}
	sg := f.engine.last.Suggest()
	if sg == nil || sg.Text != "ca" {
		t.Errorf("suggest: %+v", sg)
	}
}

func TestExplain(t *testing.T) {
	f := newFixture(t)
	rr := f.get(t, "/api/v1/pages/catalog/explain?q=owl")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", rr.Code, rr.Body)
	}
	want := ExplainResponse{Page: "catalog", Explain: `text="owl"`}
	if diff := cmp.Diff(want, decode[ExplainResponse](t, rr)); diff != "" {
		t.Errorf("explain (-want +got):\n%s", diff)
	}

	f.engine.explainErr = notSupported
	rr = f.get(t, "/api/v1/pages/catalog/explain")
	if rr.Code != http.StatusNotImplemented {
		t.Errorf("unsupported explain: got %d", rr.Code)
	}
}

func TestListPages(t *testing.T) {
	rr := newFixture(t).get(t, "/api/v1/pages")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	got := decode[struct {
		Items []PageResponse `json:"items"`
	}](t, rr)
	want := []PageResponse{
		{Name: "archive", Engine: "sql", ResourceTypes: []string{}, Facets: []FacetResponse{}},
		{
			Name: "catalog", Engine: "sql", Default: true, ResourceTypes: []string{"items"},
			Facets: []FacetResponse{{Name: "creator", Field: "dcterms:creator", Type: "value"}},
		},
	}
	if diff := cmp.Diff(want, got.Items); diff != "" {
		t.Errorf("pages (-want +got):\n%s", diff)
	}
}

func TestHealthCheck_Degraded(t *testing.T) {
	rr := newFixture(t).get(t, "/health")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d", rr.Code)
	}
	want := HealthResponse{Status: "degraded", Checks: map[string]string{"database": "ok", "redis": "error"}}
	if diff := cmp.Diff(want, decode[HealthResponse](t, rr)); diff != "" {
		t.Errorf("health (-want +got):\n%s", diff)
	}
}

func TestRouter_Auth(t *testing.T) {
	f := newFixture(t, "secret")
	if rr := f.get(t, "/api/v1/pages"); rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: got %d", rr.Code)
	}
	if rr := f.get(t, "/api/v1/pages", "Authorization", "Bearer secret"); rr.Code != http.StatusOK {
		t.Errorf("token: got %d", rr.Code)
	}
	if rr := f.get(t, "/health"); rr.Code == http.StatusUnauthorized {
		t.Error("health must bypass auth")
	}
}

func TestRouter_RequestID(t *testing.T) {
	rr := newFixture(t).get(t, "/api/v1/pages", "X-Request-Id", "abc-123")
	if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("request id: got %q", got)
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := JSONRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d", rr.Code)
	}
	if got := decode[ErrorResponse](t, rr); got.Code != CodeInternalError {
		t.Errorf("code: got %s", got.Code)
	}
}
