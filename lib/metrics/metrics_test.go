package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAccumulate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)

	m.Change("selfInflicted")
	m.Change("selfInflicted")
	m.Change("scheduled")
	m.Pass("change")
	m.Outcome("applied", 3)
	m.Outcome("failed", 0)
	m.Rebuild()
	m.Scheduled(2)

	if got := testutil.ToFloat64(m.changes.WithLabelValues("selfInflicted")); got != 2 {
		t.Fatalf("expected 2 self-inflicted changes, got %v", got)
	}
	if got := testutil.ToFloat64(m.outcomes.WithLabelValues("applied")); got != 3 {
		t.Fatalf("expected 3 applied outcomes, got %v", got)
	}
	if got := testutil.ToFloat64(m.rebuilds); got != 1 {
		t.Fatalf("expected 1 rebuild, got %v", got)
	}
	if got := testutil.ToFloat64(m.pending); got != 2 {
		t.Fatalf("expected gauge 2, got %v", got)
	}
	if got := testutil.CollectAndCount(m.outcomes); got != 1 {
		t.Fatalf("zero outcomes must not create a series, got %d series", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.Change("scheduled")
	m.Pass("save")
	m.Outcome("applied", 1)
	m.Rebuild()
	m.Stale()
	m.Scheduled(1)
}
