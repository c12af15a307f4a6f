// Package app wires the constraint core to its infra adapters and the
// simulated host.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/HGFantasy/TPF2-Timetables-sub001/config"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/dispatch"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/frequency"
	coremetrics "github.com/HGFantasy/TPF2-Timetables-sub001/core/metrics"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/scheduler"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/timetable"
	"github.com/HGFantasy/TPF2-Timetables-sub001/infra/logger"
	"github.com/HGFantasy/TPF2-Timetables-sub001/infra/metrics"
	"github.com/HGFantasy/TPF2-Timetables-sub001/infra/replication"
	"github.com/HGFantasy/TPF2-Timetables-sub001/infra/snapshot"
	"github.com/HGFantasy/TPF2-Timetables-sub001/simulator"
)

// Service owns the session-scoped model objects: one constraint store,
// one frequency cache, one scheduler. It is constructed at session
// start and torn down at session end.
type Service struct {
	Store     *timetable.Store
	Cache     *frequency.Cache
	Evaluator *dispatch.RuleEvaluator
	Scheduler *scheduler.Scheduler
	World     *simulator.World

	cfg       *config.Config
	snapshots *snapshot.SQLiteStore
	publisher *replication.Publisher
	log       logger.Logger
}

// New builds a Service against the in-process simulator host. The
// persisted snapshot, when present, is restored before the first tick
// and the frequency cache is cold-initialized from it.
func New(cfg *config.Config, simCfg simulator.Config) (*Service, error) {
	logg := logger.New("service")
	world := simulator.NewWorld(simCfg)
	store := timetable.NewStore()
	cache := frequency.NewCache(world, cfg.Cache.TTLSeconds)

	snaps, err := snapshot.NewSQLiteStore(cfg.Snapshot.Path)
	if err != nil {
		return nil, fmt.Errorf("snapshot store: %w", err)
	}
	if snap, ok, err := snaps.Load(); err != nil {
		logg.Warnf("snapshot load failed, starting empty: %v", err)
	} else if ok {
		if err := store.Restore(snap); err != nil {
			logg.Warnf("snapshot restore failed, starting empty: %v", err)
		} else {
			logg.Infof("restored %d lines from snapshot", len(snap.Lines))
			cache.ColdInit(world.Lines(), world.Now())
		}
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = coremetrics.NewMultiSink(sinks...)
	}

	var delays coremetrics.DelayRecorder = coremetrics.NopSink{}
	if cfg.Metrics.InfluxEnabled {
		delays = metrics.NewInfluxRecorderWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken,
			cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
	}

	eval := dispatch.NewRuleEvaluator(store, cache, delays, logger.New("dispatch"))

	var notifier scheduler.UpdateNotifier
	var pub *replication.Publisher
	if cfg.Replication.Enabled {
		pub, err = replication.NewPublisher(cfg.Replication, cfg.Settings())
		if err != nil {
			return nil, fmt.Errorf("replication publisher: %w", err)
		}
		notifier = pub
	}

	sched, err := scheduler.New(cfg.Scheduler, world, world, world, world,
		store, cache, eval, notifier, sink, logger.New("scheduler"))
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	return &Service{
		Store:     store,
		Cache:     cache,
		Evaluator: eval,
		Scheduler: sched,
		World:     world,
		cfg:       cfg,
		snapshots: snaps,
		publisher: pub,
		log:       logg,
	}, nil
}

// Run drives the simulated host and the scheduler until the context is
// canceled: one simulated second per frame interval, with the scheduler
// resumed after each advance. Everything runs on this single goroutine,
// so store edits and tick processing never interleave.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	ticker := time.NewTicker(s.cfg.Scheduler.FrameInterval)
	defer ticker.Stop()
	s.log.Infof("session started: %d lines", len(s.World.Lines()))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.World.Advance(1)
			s.Scheduler.OnFrame()
		}
	}
}

// Close persists the final snapshot and releases every adapter.
func (s *Service) Close() error {
	var first error
	if err := s.snapshots.Save(s.Store.Snapshot()); err != nil {
		first = fmt.Errorf("save snapshot: %w", err)
	} else if err := s.snapshots.Prune(s.cfg.Snapshot.Keep); err != nil {
		first = fmt.Errorf("prune snapshots: %w", err)
	}
	if err := s.snapshots.Close(); err != nil && first == nil {
		first = err
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	return first
}
