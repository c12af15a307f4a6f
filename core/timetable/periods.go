package timetable

import (
	"fmt"

	"github.com/HGFantasy/TPF2-Timetables-sub001/core/model"
)

// SetPeriodized switches a stop between flat and periodized slot
// storage. The switch is a one-time conversion: entering periodized
// mode wraps the existing flat slots in a single full-cycle period, and
// leaving it keeps the first period's slots as the new flat sequence.
func (s *Store) SetPeriodized(line model.LineID, stop model.StopIndex, periodized bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(line, stop)
	switch {
	case periodized && e.mode == modeFlat:
		e.mode = modePeriodized
		e.periods = []model.TimePeriod{{Start: 0, End: 3600, Slots: e.slots}}
		e.slots = nil
	case !periodized && e.mode == modePeriodized:
		e.mode = modeFlat
		if len(e.periods) > 0 {
			e.slots = e.periods[0].Slots
		}
		e.periods = nil
	default:
		return
	}
	s.dirty = true
}

// Periodized reports whether a stop stores periodized slots.
func (s *Store) Periodized(line model.LineID, stop model.StopIndex) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.lookup(line, stop)
	return e != nil && e.mode == modePeriodized
}

// AddTimePeriod appends a period covering [start,end) seconds of the
// hour cycle. Overlap with existing periods is not validated.
func (s *Store) AddTimePeriod(line model.LineID, stop model.StopIndex, start, end int) error {
	p := model.TimePeriod{Start: start, End: end}
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(line, stop)
	if e.mode != modePeriodized {
		return fmt.Errorf("stop %d of line %d is not periodized", stop, line)
	}
	e.periods = append(e.periods, p)
	s.dirty = true
	return nil
}

// UpdateTimePeriod rewrites the window of the period at the 1-based
// index, keeping its slots.
func (s *Store) UpdateTimePeriod(line model.LineID, stop model.StopIndex, index, start, end int) error {
	p := model.TimePeriod{Start: start, End: end}
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(line, stop)
	if e == nil || e.mode != modePeriodized || index < 1 || index > len(e.periods) {
		return fmt.Errorf("period index %d out of range", index)
	}
	e.periods[index-1].Start = start
	e.periods[index-1].End = end
	s.dirty = true
	return nil
}

// RemoveTimePeriod deletes the period at the 1-based index along with
// its slots. Remaining periods compact.
func (s *Store) RemoveTimePeriod(line model.LineID, stop model.StopIndex, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(line, stop)
	if e == nil || e.mode != modePeriodized || index < 1 || index > len(e.periods) {
		return fmt.Errorf("period index %d out of range", index)
	}
	i := index - 1
	e.periods = append(e.periods[:i], e.periods[i+1:]...)
	s.dirty = true
	return nil
}

// TimePeriods returns a copy of the stop's period sequence.
func (s *Store) TimePeriods(line model.LineID, stop model.StopIndex) ([]model.TimePeriod, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.lookup(line, stop)
	if e == nil || e.mode != modePeriodized {
		return nil, false
	}
	out := make([]model.TimePeriod, len(e.periods))
	for i, p := range e.periods {
		out[i] = p
		out[i].Slots = append([]model.Slot(nil), p.Slots...)
	}
	return out, true
}

// AddPeriodSlot appends a slot to the period at the 1-based index.
func (s *Store) AddPeriodSlot(line model.LineID, stop model.StopIndex, period int, slot model.Slot) error {
	if err := slot.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(line, stop)
	if e == nil || e.mode != modePeriodized || period < 1 || period > len(e.periods) {
		return fmt.Errorf("period index %d out of range", period)
	}
	p := &e.periods[period-1]
	p.Slots = append(p.Slots, slot)
	s.dirty = true
	return nil
}

// RemovePeriodSlot deletes the slot at the 1-based index inside the
// given period. Remaining slots compact.
func (s *Store) RemovePeriodSlot(line model.LineID, stop model.StopIndex, period, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(line, stop)
	if e == nil || e.mode != modePeriodized || period < 1 || period > len(e.periods) {
		return fmt.Errorf("period index %d out of range", period)
	}
	p := &e.periods[period-1]
	if index < 1 || index > len(p.Slots) {
		return fmt.Errorf("slot index %d out of range [1,%d]", index, len(p.Slots))
	}
	i := index - 1
	p.Slots = append(p.Slots[:i], p.Slots[i+1:]...)
	s.dirty = true
	return nil
}

// ActiveSlots resolves the slot sequence that applies at the given
// second-of-hour: the flat sequence, or the first period containing t.
// Periods may overlap or leave gaps; the first match wins and a gap
// yields no slots.
func (s *Store) ActiveSlots(line model.LineID, stop model.StopIndex, secondOfHour int) ([]model.Slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.lookup(line, stop)
	if e == nil {
		return nil, false
	}
	if e.mode == modeFlat {
		if len(e.slots) == 0 {
			return nil, false
		}
		return append([]model.Slot(nil), e.slots...), true
	}
	for _, p := range e.periods {
		if p.Contains(secondOfHour) {
			if len(p.Slots) == 0 {
				return nil, false
			}
			return append([]model.Slot(nil), p.Slots...), true
		}
	}
	return nil, false
}
