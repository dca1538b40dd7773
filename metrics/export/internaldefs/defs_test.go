package internaldefs

import (
	"strings"
	"testing"

	"github.com/gotg/authflow"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	m := authflow.NewMetrics(authflow.MetricsConfig{Enabled: true})
	snap := m.Snapshot()

	seen := make(map[authflow.MetricID]bool, len(CounterDefs))
	names := make(map[string]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate id %d", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("duplicate name %s", def.Name)
		}
		if !strings.HasPrefix(def.Name, "authflow_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %s", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}
	for id := range snap.Counters {
		if !seen[id] {
			t.Fatalf("counter %d has no export definition", id)
		}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
