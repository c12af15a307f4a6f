package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/HGFantasy/TPF2-Timetables-sub001/core/metrics"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	if err := s.RecordTick(coremetrics.TickEvent{DurationSeconds: 0.01}); err != nil {
		t.Fatalf("record tick: %v", err)
	}
	if err := s.RecordTick(coremetrics.TickEvent{DurationSeconds: 0.02}); err != nil {
		t.Fatalf("record tick: %v", err)
	}
	if got := testutil.ToFloat64(s.ticks); got != 2 {
		t.Fatalf("tick counter = %v", got)
	}

	if err := s.RecordDecision(coremetrics.DecisionEvent{Released: true, Reason: "scheduled"}); err != nil {
		t.Fatalf("record decision: %v", err)
	}
	if err := s.RecordDecision(coremetrics.DecisionEvent{Released: false, Reason: "debounce"}); err != nil {
		t.Fatalf("record decision: %v", err)
	}
	if got := testutil.ToFloat64(s.decisions.WithLabelValues("true", "scheduled")); got != 1 {
		t.Fatalf("released counter = %v", got)
	}
	if got := testutil.ToFloat64(s.decisions.WithLabelValues("false", "debounce")); got != 1 {
		t.Fatalf("held counter = %v", got)
	}

	if err := s.RecordCacheRefresh(coremetrics.CacheEvent{Lines: 3, Recomputed: 2}); err != nil {
		t.Fatalf("record refresh: %v", err)
	}
	if got := testutil.ToFloat64(s.recompute); got != 2 {
		t.Fatalf("recompute counter = %v", got)
	}
	if got := testutil.ToFloat64(s.lines); got != 3 {
		t.Fatalf("lines gauge = %v", got)
	}

	if err := s.RecordRestart(coremetrics.RestartEvent{Cause: "boom"}); err != nil {
		t.Fatalf("record restart: %v", err)
	}
	if got := testutil.ToFloat64(s.restarts); got != 1 {
		t.Fatalf("restart counter = %v", got)
	}
}

func TestPromSinkDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	// Re-registering on the same registry reuses the existing collectors
	// instead of failing.
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("second registration: %v", err)
	}
}
