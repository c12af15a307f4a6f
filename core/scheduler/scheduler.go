package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/HGFantasy/TPF2-Timetables-sub001/core/dispatch"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/frequency"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/host"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/logger"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/metrics"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/timetable"
)

// State is the scheduler lifecycle state, exposed for logging and
// tests. Terminated only occurs at shutdown; there is no user stop.
type State int

const (
	Idle State = iota
	Running
	Faulted
	Restarting
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Faulted:
		return "faulted"
	case Restarting:
		return "restarting"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// UpdateNotifier emits the cross-boundary "timetable updated" message
// carrying a full store snapshot. It is invoked only when edits are
// pending.
type UpdateNotifier interface {
	PublishUpdate(timetable.Snapshot) error
}

// tickTask holds the in-flight state of the long-lived tick loop. On a
// fault the supervisor discards the whole task and builds a fresh one,
// so a half-finished pass leaves nothing behind.
type tickTask struct {
	lastProcessed int64
	lastGC        int64
}

// Scheduler owns the tick task and supervises its restarts.
type Scheduler struct {
	cfg       Config
	clock     host.Clock
	lines     host.LineProvider
	vehicles  host.VehicleProvider
	releaser  host.Releaser
	store     *timetable.Store
	cache     *frequency.Cache
	evaluator dispatch.Evaluator
	notifier  UpdateNotifier
	sink      metrics.Sink
	log       logger.Logger

	task     *tickTask
	state    State
	restarts int
}

// New wires a Scheduler. notifier and sink may be nil; absent
// collaborators degrade to no-ops.
func New(cfg Config, clock host.Clock, lines host.LineProvider, vehicles host.VehicleProvider,
	releaser host.Releaser, store *timetable.Store, cache *frequency.Cache,
	evaluator dispatch.Evaluator, notifier UpdateNotifier, sink metrics.Sink, log logger.Logger) (*Scheduler, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil || lines == nil || vehicles == nil || releaser == nil {
		return nil, fmt.Errorf("scheduler requires clock, line and vehicle providers and a releaser")
	}
	if store == nil || cache == nil || evaluator == nil {
		return nil, fmt.Errorf("scheduler requires store, cache and evaluator")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	now := clock.Now()
	return &Scheduler{
		cfg:       cfg,
		clock:     clock,
		lines:     lines,
		vehicles:  vehicles,
		releaser:  releaser,
		store:     store,
		cache:     cache,
		evaluator: evaluator,
		notifier:  notifier,
		sink:      sink,
		log:       log,
		task:      &tickTask{lastProcessed: now - cfg.TickSeconds, lastGC: now},
		state:     Idle,
	}, nil
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State { return s.state }

// Restarts returns how many supervisor restarts have occurred.
func (s *Scheduler) Restarts() int { return s.restarts }

// Run resumes the tick task on every frame interval until the context
// is canceled. Hosts that drive their own frame loop call OnFrame
// directly instead.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.state = Terminated
			s.log.Infof("scheduler terminated")
			return
		case <-ticker.C:
			s.OnFrame()
		}
	}
}

// OnFrame is the host-driven resumption point. It gates to one
// processing pass per simulated TickSeconds regardless of how often the
// host resumes it, and absorbs any fault raised by the pass.
func (s *Scheduler) OnFrame() {
	if s.state == Terminated {
		return
	}
	now := s.clock.Now()
	if now-s.task.lastProcessed < s.cfg.TickSeconds {
		return
	}
	s.state = Running
	defer s.supervise(now)
	s.task.lastProcessed = now
	s.pass(now)
	s.maybeGC(now)
	s.replicate()
}

// supervise replaces a dead task. The faulted pass is not retried; the
// fresh task resumes cleanly at the next tick boundary. Restarts are
// logged for operability and counted in metrics, never surfaced to the
// host as a failure.
func (s *Scheduler) supervise(now int64) {
	r := recover()
	if r == nil {
		return
	}
	s.state = Faulted
	s.log.Errorf("tick task faulted at t=%d: %v", now, r)
	s.state = Restarting
	s.task = &tickTask{lastProcessed: now, lastGC: now}
	s.restarts++
	if err := s.sink.RecordRestart(metrics.RestartEvent{Cause: fmt.Sprint(r), Now: now}); err != nil {
		s.log.Warnf("record restart: %v", err)
	}
	s.state = Running
}

// pass is one full processing sweep: reconcile the frequency cache,
// then evaluate every waiting vehicle of every constrained line.
func (s *Scheduler) pass(now int64) {
	start := time.Now()
	live := s.lines.Lines()
	recomputed, changed := s.cache.Refresh(live, now)
	if err := s.sink.RecordCacheRefresh(metrics.CacheEvent{
		Lines: len(live), Recomputed: recomputed, SetChanged: changed, Now: now,
	}); err != nil {
		s.log.Warnf("record cache refresh: %v", err)
	}

	lines := 0
	vehicles := 0
	for _, line := range s.cache.Lines() {
		if !s.store.HasConstraints(line) {
			continue
		}
		lines++
		roster := s.vehicles.Vehicles(line)
		for _, v := range roster {
			if !v.AtTerminal {
				continue
			}
			vehicles++
			dec := s.evaluator.Evaluate(v, line, v.Stop, roster, now)
			if dec.Released {
				s.releaser.Release(v.ID)
			}
			if err := s.sink.RecordDecision(metrics.DecisionEvent{
				Line: line, Vehicle: v.ID, Stop: v.Stop,
				Released: dec.Released, Reason: dec.Reason, Margin: dec.HoldSeconds, Now: now,
			}); err != nil {
				s.log.Warnf("record decision: %v", err)
			}
		}
	}
	if err := s.sink.RecordTick(metrics.TickEvent{
		Now: now, Lines: lines, Vehicles: vehicles,
		DurationSeconds: time.Since(start).Seconds(),
	}); err != nil {
		s.log.Warnf("record tick: %v", err)
	}
}

// maybeGC prunes store entries for dead lines on its own cadence,
// independent of the tick gate.
func (s *Scheduler) maybeGC(now int64) {
	if now-s.task.lastGC < s.cfg.GCIntervalSeconds {
		return
	}
	s.task.lastGC = now
	if removed := s.store.Clean(s.lines.LineExists); removed > 0 {
		s.log.Infof("pruned %d stale timetable entries", removed)
	}
}

// replicate emits a snapshot when edits are pending. The dirty flag is
// consumed before publishing; a publish failure is logged and the next
// edit re-arms replication.
func (s *Scheduler) replicate() {
	if s.notifier == nil || !s.store.ConsumeDirty() {
		return
	}
	if err := s.notifier.PublishUpdate(s.store.Snapshot()); err != nil {
		s.log.Errorf("replicate timetable: %v", err)
	}
}
