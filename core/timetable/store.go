package timetable

import (
	"fmt"
	"sync"

	"github.com/HGFantasy/TPF2-Timetables-sub001/core/model"
)

// SlotField addresses one of the four fields of a model.Slot for
// in-place edits.
type SlotField int

const (
	FieldArrMin SlotField = iota
	FieldArrSec
	FieldDepMin
	FieldDepSec
)

// scheduleMode discriminates flat from periodized slot storage. The two
// representations are mutually exclusive per stop.
type scheduleMode int

const (
	modeFlat scheduleMode = iota
	modePeriodized
)

// entry holds the full constraint configuration for one (line, stop).
// Which fields are meaningful is determined by typ; the others are
// ignored, not cleared.
type entry struct {
	typ      model.ConstraintType
	mode     scheduleMode
	slots    []model.Slot
	periods  []model.TimePeriod
	skip     model.SkipPattern
	debounce model.DebounceConfig

	tolerance model.DelayTolerance

	recovery    model.RecoveryMode
	hasRecovery bool
}

// Store is the authoritative owner of all per-line, per-stop dispatch
// constraints. Entries are created lazily the first time a type other
// than none is set and removed when the type is reset or the owning
// line disappears. Every exported operation runs to completion under
// the store lock, so no caller ever observes a partial mutation.
type Store struct {
	mu    sync.RWMutex
	lines map[model.LineID]map[model.StopIndex]*entry

	lineRecovery map[model.LineID]model.RecoveryMode

	dirty bool
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		lines:        make(map[model.LineID]map[model.StopIndex]*entry),
		lineRecovery: make(map[model.LineID]model.RecoveryMode),
	}
}

// lookup returns the entry for (line, stop) or nil.
func (s *Store) lookup(line model.LineID, stop model.StopIndex) *entry {
	stops, ok := s.lines[line]
	if !ok {
		return nil
	}
	return stops[stop]
}

// ensure returns the entry for (line, stop), creating it on first use.
func (s *Store) ensure(line model.LineID, stop model.StopIndex) *entry {
	stops, ok := s.lines[line]
	if !ok {
		stops = make(map[model.StopIndex]*entry)
		s.lines[line] = stops
	}
	e, ok := stops[stop]
	if !ok {
		e = &entry{}
		stops[stop] = e
	}
	return e
}

// drop removes the entry and any emptied line bucket.
func (s *Store) drop(line model.LineID, stop model.StopIndex) {
	stops, ok := s.lines[line]
	if !ok {
		return
	}
	delete(stops, stop)
	if len(stops) == 0 {
		delete(s.lines, line)
	}
}

// SetConditionType activates the given constraint type for a stop.
// Setting none removes the stop's configuration entirely.
func (s *Store) SetConditionType(line model.LineID, stop model.StopIndex, typ model.ConstraintType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if typ == model.ConstraintNone {
		// Clearing a stop that was never configured is a no-op and must
		// not trigger a replication emit.
		if s.lookup(line, stop) == nil {
			return
		}
		s.drop(line, stop)
		s.dirty = true
		return
	}
	s.ensure(line, stop).typ = typ
	s.dirty = true
}

// ConditionType reports the active constraint type for a stop. Stops
// without configuration report none.
func (s *Store) ConditionType(line model.LineID, stop model.StopIndex) model.ConstraintType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.lookup(line, stop)
	if e == nil {
		return model.ConstraintNone
	}
	return e.typ
}

// Conditions returns the flat slot sequence for a stop when its active
// type matches typ. The second return is false when no configuration
// exists or the type differs; that is an ordinary "nothing to evaluate"
// signal, never an error.
func (s *Store) Conditions(line model.LineID, stop model.StopIndex, typ model.ConstraintType) ([]model.Slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.lookup(line, stop)
	if e == nil || e.typ != typ {
		return nil, false
	}
	out := make([]model.Slot, len(e.slots))
	copy(out, e.slots)
	return out, true
}

// AddCondition appends a slot to the stop's flat sequence, creating the
// configuration on first use.
func (s *Store) AddCondition(line model.LineID, stop model.StopIndex, slot model.Slot) error {
	if err := slot.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(line, stop)
	if e.typ == model.ConstraintNone {
		e.typ = model.ConstraintArrDep
	}
	e.slots = append(e.slots, slot)
	s.dirty = true
	return nil
}

// InsertCondition inserts a slot at the 1-based index, shifting later
// slots up. index may equal len+1 to append.
func (s *Store) InsertCondition(line model.LineID, stop model.StopIndex, index int, slot model.Slot) error {
	if err := slot.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(line, stop)
	if index < 1 || index > len(e.slots)+1 {
		return fmt.Errorf("slot index %d out of range [1,%d]", index, len(e.slots)+1)
	}
	if e.typ == model.ConstraintNone {
		e.typ = model.ConstraintArrDep
	}
	i := index - 1
	e.slots = append(e.slots, model.Slot{})
	copy(e.slots[i+1:], e.slots[i:])
	e.slots[i] = slot
	s.dirty = true
	return nil
}

// RemoveCondition deletes the slot at the 1-based index. Remaining
// slots compact, so indices held by callers are invalid afterwards.
func (s *Store) RemoveCondition(line model.LineID, stop model.StopIndex, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(line, stop)
	if e == nil || index < 1 || index > len(e.slots) {
		return fmt.Errorf("slot index %d out of range [1,%d]", index, len(e.slots))
	}
	i := index - 1
	e.slots = append(e.slots[:i], e.slots[i+1:]...)
	s.dirty = true
	return nil
}

// UpdateArrDep sets one field of the slot at the 1-based index. The
// value must lie in [0,59]; out-of-range values are rejected before any
// mutation.
func (s *Store) UpdateArrDep(line model.LineID, stop model.StopIndex, index int, field SlotField, value int) error {
	if value < 0 || value > 59 {
		return fmt.Errorf("slot value %d out of range [0,59]", value)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(line, stop)
	if e == nil || index < 1 || index > len(e.slots) {
		return fmt.Errorf("slot index %d out of range [1,%d]", index, len(e.slots))
	}
	sl := &e.slots[index-1]
	switch field {
	case FieldArrMin:
		sl.ArrMin = value
	case FieldArrSec:
		sl.ArrSec = value
	case FieldDepMin:
		sl.DepMin = value
	case FieldDepSec:
		sl.DepSec = value
	default:
		return fmt.Errorf("unknown slot field %d", field)
	}
	s.dirty = true
	return nil
}

// SetSkipPattern stores the express/local overlay for a stop.
func (s *Store) SetSkipPattern(line model.LineID, stop model.StopIndex, p model.SkipPattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(line, stop).skip = p
	s.dirty = true
}

// SkipPattern returns the overlay for a stop, if configured.
func (s *Store) SkipPattern(line model.LineID, stop model.StopIndex) (model.SkipPattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.lookup(line, stop)
	if e == nil {
		return model.SkipPattern{}, false
	}
	return e.skip, true
}

// SetDebounce stores the headway threshold for a stop. For manual
// debounce this is the enforced minimum; for auto debounce it is the
// target fed to the margin resolver.
func (s *Store) SetDebounce(line model.LineID, stop model.StopIndex, d model.DebounceConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(line, stop).debounce = d
	s.dirty = true
}

// Debounce returns the stop's headway threshold, if configured.
func (s *Store) Debounce(line model.LineID, stop model.StopIndex) (model.DebounceConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.lookup(line, stop)
	if e == nil {
		return model.DebounceConfig{}, false
	}
	return e.debounce, true
}

// SetDelayTolerance stores the stop's delay tolerance.
func (s *Store) SetDelayTolerance(line model.LineID, stop model.StopIndex, t model.DelayTolerance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(line, stop).tolerance = t
	s.dirty = true
}

// DelayTolerance returns the stop's delay tolerance, if configured.
func (s *Store) DelayTolerance(line model.LineID, stop model.StopIndex) (model.DelayTolerance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.lookup(line, stop)
	if e == nil {
		return model.DelayTolerance{}, false
	}
	return e.tolerance, true
}

// SetRecoveryMode sets the per-stop recovery strategy.
func (s *Store) SetRecoveryMode(line model.LineID, stop model.StopIndex, m model.RecoveryMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(line, stop)
	e.recovery = m
	e.hasRecovery = true
	s.dirty = true
}

// SetLineRecoveryOverride sets a line-wide recovery strategy that wins
// over any per-stop setting.
func (s *Store) SetLineRecoveryOverride(line model.LineID, m model.RecoveryMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lineRecovery[line] = m
	s.dirty = true
}

// ClearLineRecoveryOverride removes the line-wide override.
func (s *Store) ClearLineRecoveryOverride(line model.LineID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lineRecovery, line)
	s.dirty = true
}

// RecoveryMode resolves the strategy for a stop: the line override wins
// when present, then the per-stop setting, then catch-up.
func (s *Store) RecoveryMode(line model.LineID, stop model.StopIndex) model.RecoveryMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.lineRecovery[line]; ok {
		return m
	}
	if e := s.lookup(line, stop); e != nil && e.hasRecovery {
		return e.recovery
	}
	return model.RecoverCatchUp
}

// HasConstraints reports whether a line has at least one configured stop.
func (s *Store) HasConstraints(line model.LineID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines[line]) > 0
}

// Lines returns every line with at least one configured stop.
func (s *Store) Lines() []model.LineID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.LineID, 0, len(s.lines))
	for id := range s.lines {
		out = append(out, id)
	}
	return out
}

// Clean removes every entry belonging to a line the host no longer
// knows. It is driven by the scheduler's GC cadence, so stale entries
// may persist between sweeps.
func (s *Store) Clean(exists func(model.LineID) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id := range s.lines {
		if !exists(id) {
			removed += len(s.lines[id])
			delete(s.lines, id)
		}
	}
	for id := range s.lineRecovery {
		if !exists(id) {
			delete(s.lineRecovery, id)
		}
	}
	if removed > 0 {
		s.dirty = true
	}
	return removed
}

// Dirty reports whether edits are pending replication.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// ConsumeDirty clears the dirty flag and reports whether it was set.
// The replication path calls this exactly once per emitted update.
func (s *Store) ConsumeDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dirty
	s.dirty = false
	return d
}
