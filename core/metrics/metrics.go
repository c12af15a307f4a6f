package metrics

import "github.com/HGFantasy/TPF2-Timetables-sub001/core/model"

// TickEvent summarizes one scheduler processing pass.
type TickEvent struct {
	Now             int64
	Lines           int
	Vehicles        int
	DurationSeconds float64
}

// DecisionEvent records the outcome of one dispatch evaluation.
type DecisionEvent struct {
	Line     model.LineID
	Vehicle  model.VehicleID
	Stop     model.StopIndex
	Released bool
	Reason   string
	Margin   int
	Now      int64
}

// CacheEvent records one frequency-cache reconciliation.
type CacheEvent struct {
	Lines      int
	Recomputed int
	SetChanged bool
	Now        int64
}

// RestartEvent records one supervisor restart of the tick task.
type RestartEvent struct {
	Cause string
	Now   int64
}

// DelayEvent is the observed delay of a vehicle at dispatch time; it
// feeds the external delay-statistics engine.
type DelayEvent struct {
	Line         model.LineID
	Vehicle      model.VehicleID
	Stop         model.StopIndex
	DelaySeconds int
	Now          int64
}

// Sink receives scheduler and dispatch observability events. All
// methods must be safe to call from the tick path; implementations are
// expected to be cheap or buffered.
type Sink interface {
	RecordTick(TickEvent) error
	RecordDecision(DecisionEvent) error
	RecordCacheRefresh(CacheEvent) error
	RecordRestart(RestartEvent) error
}

// DelayRecorder is the boundary to the delay-statistics engine.
type DelayRecorder interface {
	RecordDelay(DelayEvent) error
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) RecordTick(TickEvent) error          { return nil }
func (NopSink) RecordDecision(DecisionEvent) error  { return nil }
func (NopSink) RecordCacheRefresh(CacheEvent) error { return nil }
func (NopSink) RecordRestart(RestartEvent) error    { return nil }
func (NopSink) RecordDelay(DelayEvent) error        { return nil }

// MultiSink fans events out to several sinks, returning the first
// error encountered after delivering to all of them.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink builds a MultiSink from the given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink { return &MultiSink{Sinks: sinks} }

func (m *MultiSink) RecordTick(ev TickEvent) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordTick(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiSink) RecordDecision(ev DecisionEvent) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordDecision(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiSink) RecordCacheRefresh(ev CacheEvent) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordCacheRefresh(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiSink) RecordRestart(ev RestartEvent) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordRestart(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
