package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/HGFantasy/TPF2-Timetables-sub001/core/metrics"
)

// PromSink records scheduler and dispatch events in Prometheus metrics.
type PromSink struct {
	ticks     prometheus.Counter
	tickTime  prometheus.Histogram
	decisions *prometheus.CounterVec
	recompute prometheus.Counter
	restarts  prometheus.Counter
	lines     prometheus.Gauge
}

// NewPromSink registers timetable metrics on the default Prometheus
// registerer. The metrics server is started separately.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ticks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_tick_passes_total",
		Help: "Total number of scheduler processing passes",
	})
	tickTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_tick_duration_seconds",
		Help:    "Wall time spent in one processing pass",
		Buckets: prometheus.DefBuckets,
	})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_dispatch_decisions_total",
		Help: "Dispatch decisions by outcome and rule",
	}, []string{"released", "reason"})
	recompute := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_frequency_recomputations_total",
		Help: "Line frequency recomputation calls",
	})
	restarts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_scheduler_restarts_total",
		Help: "Supervisor restarts of the tick task",
	})
	lines := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_active_lines",
		Help: "Lines observed by the frequency cache",
	})

	s := &PromSink{ticks: ticks, tickTime: tickTime, decisions: decisions,
		recompute: recompute, restarts: restarts, lines: lines}
	for _, c := range []prometheus.Collector{ticks, tickTime, decisions, recompute, restarts, lines} {
		if err := register(reg, c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func register(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return err
		}
	}
	return nil
}

// RecordTick counts the pass and observes its duration.
func (s *PromSink) RecordTick(ev coremetrics.TickEvent) error {
	s.ticks.Inc()
	s.tickTime.Observe(ev.DurationSeconds)
	return nil
}

// RecordDecision counts the decision by outcome and rule.
func (s *PromSink) RecordDecision(ev coremetrics.DecisionEvent) error {
	s.decisions.WithLabelValues(strconv.FormatBool(ev.Released), ev.Reason).Inc()
	return nil
}

// RecordCacheRefresh counts recomputation calls and tracks the line set size.
func (s *PromSink) RecordCacheRefresh(ev coremetrics.CacheEvent) error {
	s.recompute.Add(float64(ev.Recomputed))
	s.lines.Set(float64(ev.Lines))
	return nil
}

// RecordRestart counts supervisor restarts.
func (s *PromSink) RecordRestart(coremetrics.RestartEvent) error {
	s.restarts.Inc()
	return nil
}
