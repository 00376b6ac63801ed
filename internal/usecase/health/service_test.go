package health

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

var errDown = errors.New("down")

// --- Tests ---

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		checks []Check
		status Status
		want   map[string]CheckResult
	}{
		{
			name:   "all healthy",
			checks: []Check{{"database", &mockPinger{}}, {"redis", &mockPinger{}}},
			status: Healthy,
			want:   map[string]CheckResult{"database": CheckOK, "redis": CheckOK},
		},
		{
			name:   "redis down",
			checks: []Check{{"database", &mockPinger{}}, {"redis", &mockPinger{err: errDown}}},
			status: Degraded,
			want:   map[string]CheckResult{"database": CheckOK, "redis": CheckError},
		},
		{
			name:   "database down",
			checks: []Check{{"database", &mockPinger{err: errDown}}, {"bleve", &mockPinger{}}},
			status: Degraded,
			want:   map[string]CheckResult{"database": CheckError, "bleve": CheckOK},
		},
		{
			name:   "all down",
			checks: []Check{{"database", &mockPinger{err: errDown}}, {"redis", &mockPinger{err: errDown}}},
			status: Unhealthy,
			want:   map[string]CheckResult{"database": CheckError, "redis": CheckError},
		},
		{
			name:   "only database",
			checks: []Check{{"database", &mockPinger{}}, {"redis", nil}},
			status: Healthy,
			want:   map[string]CheckResult{"database": CheckOK},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.checks...).Check(context.Background())
			if r.Status != tt.status {
				t.Errorf("status: expected %q, got %q", tt.status, r.Status)
			}
			if diff := cmp.Diff(tt.want, r.Checks); diff != "" {
				t.Errorf("checks (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNames_Sorted(t *testing.T) {
	svc := New(Check{"redis", &mockPinger{}}, Check{"database", &mockPinger{}})
	if diff := cmp.Diff([]string{"database", "redis"}, svc.Names()); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
}
