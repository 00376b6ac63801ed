package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := `
database:
  driver: sqlite
  dsn: "` + filepath.Join(dir, "facetdex.db") + `"
engines:
  sql: {}
pages:
  catalog:
    engine: sql
    resource_types: [items]
    facets:
      - name: subject
        field: dcterms:subject
`
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "facetctl dev") {
		t.Errorf("output = %q, want facetctl dev prefix", out)
	}
}

func TestMigrateThenSearch(t *testing.T) {
	cfg := writeConfig(t)
	base := []string{"--env", "test", "--config", cfg}

	out, err := execute(t, append(base, "migrate")...)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.HasPrefix(out, "applied ") {
		t.Errorf("migrate output = %q", out)
	}

	out, err = execute(t, append(base, "search", "q=moby&per_page=5")...)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if body["success"] != true {
		t.Errorf("success = %v, body %s", body["success"], out)
	}
}

func TestCompile(t *testing.T) {
	cfg := writeConfig(t)
	base := []string{"--env", "test", "--config", cfg}
	if _, err := execute(t, append(base, "migrate")...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	out, err := execute(t, append(base, "compile", "q=whales")...)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	for _, want := range []string{"-- items count", "-- items results", "SELECT"} {
		if !strings.Contains(out, want) {
			t.Errorf("compile output missing %q:\n%s", want, out)
		}
	}
}

func TestPages(t *testing.T) {
	out, err := execute(t, "--env", "test", "--config", writeConfig(t), "pages")
	if err != nil {
		t.Fatalf("pages: %v", err)
	}
	if !strings.Contains(out, "catalog") || !strings.Contains(out, "subject") {
		t.Errorf("pages output = %q", out)
	}
}

func TestReindex_NoExternalEngines(t *testing.T) {
	out, err := execute(t, "--env", "test", "--config", writeConfig(t), "reindex")
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if !strings.Contains(out, "no external engines") {
		t.Errorf("reindex output = %q", out)
	}
}

func TestCompile_RequiresQuery(t *testing.T) {
	if _, err := execute(t, "compile"); err == nil {
		t.Fatal("expected argument error")
	}
}
