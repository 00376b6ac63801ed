package plan

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResourceIDs(t *testing.T) {
	ids, rejected := ResourceIDs([]string{"2", "abc", " 7 ", "1.5"})
	if diff := cmp.Diff([]int64{2, 7}, ids); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"abc", "1.5"}, rejected); diff != "" {
		t.Errorf("rejected (-want +got):\n%s", diff)
	}

	ids, rejected = ResourceIDs([]string{"3"})
	if len(rejected) != 0 || len(ids) != 1 {
		t.Errorf("ids=%v rejected=%v", ids, rejected)
	}
}

func TestIgnoredResourceIDs(t *testing.T) {
	w := IgnoredResourceIDs("dcterms:relation", []string{"abc", "x"})
	if w.Kind != WarnIncorrectValue {
		t.Errorf("kind = %s", w.Kind)
	}
	if want := `ignored non-numeric resource ids on "dcterms:relation": abc, x`; w.Message != want {
		t.Errorf("message = %q, want %q", w.Message, want)
	}
	if w := IgnoredResourceIDs("", []string{"abc"}); w.Message != "ignored non-numeric resource ids on any field: abc" {
		t.Errorf("message = %q", w.Message)
	}
}
