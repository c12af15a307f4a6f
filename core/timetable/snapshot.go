package timetable

import (
	"sort"

	"github.com/HGFantasy/TPF2-Timetables-sub001/core/model"
)

// StopSnapshot is the serialized constraint configuration of one stop.
type StopSnapshot struct {
	Stop       model.StopIndex      `json:"stop"`
	Type       string               `json:"type"`
	Periodized bool                 `json:"periodized,omitempty"`
	Slots      []model.Slot         `json:"slots,omitempty"`
	Periods    []model.TimePeriod   `json:"periods,omitempty"`
	Skip       model.SkipPattern    `json:"skip"`
	Debounce   model.DebounceConfig `json:"debounce"`
	Tolerance  model.DelayTolerance `json:"tolerance"`
	Recovery   *model.RecoveryMode  `json:"recovery,omitempty"`
}

// LineSnapshot is the serialized constraint tree of one line.
type LineSnapshot struct {
	Line     model.LineID        `json:"line"`
	Stops    []StopSnapshot      `json:"stops"`
	Recovery *model.RecoveryMode `json:"recovery_override,omitempty"`
}

// Snapshot is the full serialized store, ordered by line and stop so
// equal stores serialize identically.
type Snapshot struct {
	Lines []LineSnapshot `json:"lines"`
}

func (s *Store) snapshotEntry(stop model.StopIndex, e *entry) StopSnapshot {
	ss := StopSnapshot{
		Stop:       stop,
		Type:       e.typ.String(),
		Periodized: e.mode == modePeriodized,
		Skip:       e.skip,
		Debounce:   e.debounce,
		Tolerance:  e.tolerance,
	}
	ss.Slots = append([]model.Slot(nil), e.slots...)
	for _, p := range e.periods {
		cp := p
		cp.Slots = append([]model.Slot(nil), p.Slots...)
		ss.Periods = append(ss.Periods, cp)
	}
	if e.hasRecovery {
		m := e.recovery
		ss.Recovery = &m
	}
	return ss
}

func (s *Store) snapshotLineLocked(line model.LineID) (LineSnapshot, bool) {
	stops, ok := s.lines[line]
	ls := LineSnapshot{Line: line}
	if m, over := s.lineRecovery[line]; over {
		cp := m
		ls.Recovery = &cp
		ok = true
	}
	if !ok {
		return LineSnapshot{}, false
	}
	for stop, e := range stops {
		ls.Stops = append(ls.Stops, s.snapshotEntry(stop, e))
	}
	sort.Slice(ls.Stops, func(i, j int) bool { return ls.Stops[i].Stop < ls.Stops[j].Stop })
	return ls, true
}

// Snapshot returns a deep copy of the whole constraint tree.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]model.LineID, 0, len(s.lines))
	seen := make(map[model.LineID]bool, len(s.lines))
	for id := range s.lines {
		ids = append(ids, id)
		seen[id] = true
	}
	for id := range s.lineRecovery {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var snap Snapshot
	for _, id := range ids {
		if ls, ok := s.snapshotLineLocked(id); ok {
			snap.Lines = append(snap.Lines, ls)
		}
	}
	return snap
}

// SnapshotLine returns a deep copy of one line's constraint tree.
func (s *Store) SnapshotLine(line model.LineID) (LineSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLineLocked(line)
}

func (s *Store) restoreLineLocked(ls LineSnapshot) error {
	delete(s.lines, ls.Line)
	delete(s.lineRecovery, ls.Line)
	if ls.Recovery != nil {
		s.lineRecovery[ls.Line] = *ls.Recovery
	}
	for _, ss := range ls.Stops {
		typ, err := model.ParseConstraintType(ss.Type)
		if err != nil {
			return err
		}
		if typ == model.ConstraintNone {
			continue
		}
		e := s.ensure(ls.Line, ss.Stop)
		e.typ = typ
		e.skip = ss.Skip
		e.debounce = ss.Debounce
		e.tolerance = ss.Tolerance
		if ss.Recovery != nil {
			e.recovery = *ss.Recovery
			e.hasRecovery = true
		}
		if ss.Periodized {
			e.mode = modePeriodized
			e.periods = nil
			for _, p := range ss.Periods {
				cp := p
				cp.Slots = append([]model.Slot(nil), p.Slots...)
				e.periods = append(e.periods, cp)
			}
		} else {
			e.mode = modeFlat
			e.slots = append([]model.Slot(nil), ss.Slots...)
		}
	}
	return nil
}

// Restore replaces the whole store content with the snapshot. On a
// decode failure the store is left in the partially restored state of
// no lines at all, never a mix of old and new.
func (s *Store) Restore(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = make(map[model.LineID]map[model.StopIndex]*entry)
	s.lineRecovery = make(map[model.LineID]model.RecoveryMode)
	for _, ls := range snap.Lines {
		if err := s.restoreLineLocked(ls); err != nil {
			s.lines = make(map[model.LineID]map[model.StopIndex]*entry)
			s.lineRecovery = make(map[model.LineID]model.RecoveryMode)
			return err
		}
	}
	s.dirty = true
	return nil
}

// RestoreLine replaces one line's tree with the snapshot, leaving other
// lines untouched. Used by import with replace semantics.
func (s *Store) RestoreLine(ls LineSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.restoreLineLocked(ls); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// MergeLine overlays the snapshot onto one line's tree: snapshot stops
// replace their counterparts, stops absent from the snapshot survive.
// Used by import with merge semantics.
func (s *Store) MergeLine(ls LineSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ls.Recovery != nil {
		s.lineRecovery[ls.Line] = *ls.Recovery
	}
	merged := LineSnapshot{Line: ls.Line, Stops: ls.Stops}
	for _, ss := range merged.Stops {
		if _, err := model.ParseConstraintType(ss.Type); err != nil {
			return err
		}
	}
	for _, ss := range merged.Stops {
		s.drop(ls.Line, ss.Stop)
	}
	keep := LineSnapshot{Line: ls.Line, Stops: merged.Stops}
	// restoreLineLocked clears the line bucket, so re-add survivors first.
	if stops, ok := s.lines[ls.Line]; ok {
		for stop, e := range stops {
			keep.Stops = append(keep.Stops, s.snapshotEntry(stop, e))
		}
	}
	if m, ok := s.lineRecovery[ls.Line]; ok {
		cp := m
		keep.Recovery = &cp
	}
	if err := s.restoreLineLocked(keep); err != nil {
		return err
	}
	s.dirty = true
	return nil
}
