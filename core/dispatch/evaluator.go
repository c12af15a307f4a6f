package dispatch

import (
	"strings"

	"github.com/HGFantasy/TPF2-Timetables-sub001/core/frequency"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/logger"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/metrics"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/model"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/timetable"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/unbunch"
)

// Decision is the outcome of one evaluation. Released reports whether
// the vehicle may leave now; HoldSeconds is the remaining wait when it
// may not. Reason names the rule that produced the outcome.
type Decision struct {
	Released    bool
	HoldSeconds int
	Reason      string
}

// Evaluator is the dispatch-evaluation entry point the scheduler
// invokes for every vehicle waiting at a terminal.
type Evaluator interface {
	Evaluate(v model.Vehicle, line model.LineID, stop model.StopIndex, roster []model.Vehicle, now int64) Decision
}

type lineStop struct {
	line model.LineID
	stop model.StopIndex
}

// RuleEvaluator applies the constraint store's configuration. It keeps
// the per-stop last-departure record that debounce rules need; that
// record is runtime state, not configuration, and is rebuilt from
// scratch after a session load.
type RuleEvaluator struct {
	store  *timetable.Store
	freq   *frequency.Cache
	delays metrics.DelayRecorder
	log    logger.Logger

	lastDeparture map[lineStop]int64
}

// NewRuleEvaluator wires the evaluator to the store and frequency
// cache. delays may be nil when no statistics engine is attached.
func NewRuleEvaluator(store *timetable.Store, freq *frequency.Cache, delays metrics.DelayRecorder, log logger.Logger) *RuleEvaluator {
	return &RuleEvaluator{
		store:         store,
		freq:          freq,
		delays:        delays,
		log:           log,
		lastDeparture: make(map[lineStop]int64),
	}
}

// Evaluate resolves the decision for one waiting vehicle. An
// unconfigured stop always releases; absence is never an error.
func (e *RuleEvaluator) Evaluate(v model.Vehicle, line model.LineID, stop model.StopIndex, roster []model.Vehicle, now int64) Decision {
	typ := e.store.ConditionType(line, stop)
	if typ == model.ConstraintNone {
		return e.release(line, stop, now, "unconstrained")
	}
	if skip, ok := e.store.SkipPattern(line, stop); ok && skip.Enabled && bypasses(skip, v.LineIndex) {
		return e.release(line, stop, now, "skip")
	}

	switch typ {
	case model.ConstraintArrDep:
		return e.evaluateArrDep(v, line, stop, now)
	case model.ConstraintDebounce:
		cfg, ok := e.store.Debounce(line, stop)
		if !ok {
			return e.release(line, stop, now, "unconstrained")
		}
		return e.holdForGap(line, stop, now, cfg.Seconds(), "debounce")
	case model.ConstraintAutoDebounce:
		target, ok := e.store.Debounce(line, stop)
		if !ok {
			return e.release(line, stop, now, "unconstrained")
		}
		freq, ok := e.freq.Frequency(line)
		if !ok {
			return e.release(line, stop, now, "frequency_unknown")
		}
		margin, ok := unbunch.AutoMargin(freq, target)
		if !ok {
			// Target exceeds headway capacity; the margin is undefined
			// and nothing is enforced.
			return e.release(line, stop, now, "margin_undefined")
		}
		return e.holdForGap(line, stop, now, margin, "auto_debounce")
	}
	return e.release(line, stop, now, "unconstrained")
}

// evaluateArrDep holds the vehicle until its scheduled departure,
// applying the recovery strategy once the observed delay exceeds the
// stop's tolerance.
func (e *RuleEvaluator) evaluateArrDep(v model.Vehicle, line model.LineID, stop model.StopIndex, now int64) Decision {
	arrSec := int(v.ArrivedAt % 3600)
	slots, ok := e.store.ActiveSlots(line, stop, arrSec)
	if !ok {
		return e.release(line, stop, now, "no_slots")
	}

	slot, delay := nearestSlot(slots, arrSec)
	if e.delays != nil {
		if err := e.delays.RecordDelay(metrics.DelayEvent{
			Line: line, Vehicle: v.ID, Stop: stop, DelaySeconds: delay, Now: now,
		}); err != nil {
			e.log.Warnf("record delay: %v", err)
		}
	}

	departAt := v.ArrivedAt + int64(wrapForward(slot.DepartureSeconds(), arrSec))

	tol, _ := e.store.DelayTolerance(line, stop)
	if tol.Enabled && delay > tol.ThresholdSeconds {
		switch e.store.RecoveryMode(line, stop) {
		case model.RecoverCatchUp:
			return e.release(line, stop, now, "catch_up")
		case model.RecoverSkipToNext:
			// The next slot is the one with the smallest strictly
			// positive departure distance; a stop with a single hourly
			// slot wraps to the same slot next cycle.
			departSec := int(departAt % 3600)
			add := 3600
			for _, s := range slots {
				if d := wrapForward(s.DepartureSeconds(), departSec); d > 0 && d < add {
					add = d
				}
			}
			departAt += int64(add)
		case model.RecoverHoldAtTerminus:
			// Keep the original departure; the delay is absorbed here.
		case model.RecoverGradual:
			remaining := departAt - now
			if remaining*2 <= int64(delay) {
				return e.release(line, stop, now, "gradual")
			}
		}
	}

	if now >= departAt {
		return e.release(line, stop, now, "scheduled")
	}
	return Decision{HoldSeconds: int(departAt - now), Reason: "scheduled"}
}

// holdForGap enforces a minimum headway behind the previous departure
// from this stop. The first departure after startup is never held.
func (e *RuleEvaluator) holdForGap(line model.LineID, stop model.StopIndex, now int64, gap int, reason string) Decision {
	last, ok := e.lastDeparture[lineStop{line, stop}]
	if !ok {
		return e.release(line, stop, now, reason)
	}
	elapsed := now - last
	if elapsed >= int64(gap) {
		return e.release(line, stop, now, reason)
	}
	return Decision{HoldSeconds: gap - int(elapsed), Reason: reason}
}

func (e *RuleEvaluator) release(line model.LineID, stop model.StopIndex, now int64, reason string) Decision {
	e.lastDeparture[lineStop{line, stop}] = now
	return Decision{Released: true, Reason: reason}
}

// Reset discards runtime dispatch state. Called after a session load.
func (e *RuleEvaluator) Reset() {
	e.lastDeparture = make(map[lineStop]int64)
}

// nearestSlot returns the slot whose arrival is closest behind the
// given second-of-hour, plus the distance in seconds. With slots
// repeating hourly this distance is the vehicle's observed delay
// against its nearest scheduled arrival.
func nearestSlot(slots []model.Slot, secondOfHour int) (model.Slot, int) {
	best := slots[0]
	bestDist := wrapBackward(secondOfHour, slots[0].ArrivalSeconds())
	for _, s := range slots[1:] {
		if d := wrapBackward(secondOfHour, s.ArrivalSeconds()); d < bestDist {
			best, bestDist = s, d
		}
	}
	return best, bestDist
}

// wrapForward is the distance from "from" forward to "to" within the
// hour cycle; zero when equal.
func wrapForward(to, from int) int {
	return ((to-from)%3600 + 3600) % 3600
}

// wrapBackward is the distance from "at" backward to "ref".
func wrapBackward(at, ref int) int {
	return ((at-ref)%3600 + 3600) % 3600
}

// bypasses reports whether the vehicle at the given roster index may
// ignore the stop. Alternating patterns free every other vehicle;
// slot-based patterns index the dash-separated descriptor (for "A-B",
// token "A" stops and anything else passes), mirroring how the pattern
// is presented to the user.
func bypasses(p model.SkipPattern, rosterIndex int) bool {
	switch p.Kind {
	case model.SkipAlternating:
		return rosterIndex%2 == 1
	case model.SkipSlotBased:
		if p.Pattern == "" {
			return false
		}
		tokens := strings.Split(p.Pattern, "-")
		return tokens[rosterIndex%len(tokens)] != "A"
	}
	return false
}
