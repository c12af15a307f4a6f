package model

import "fmt"

// LineID identifies a transit line managed by the host simulation.
type LineID uint64

// StopIndex is the 1-based position of a station along a line's route.
type StopIndex int

// VehicleID identifies a vehicle owned by the host simulation.
type VehicleID uint64

// ConstraintType selects which constraint is active for a stop.
// Exactly one type is active per stop at any time.
type ConstraintType int

const (
	ConstraintNone ConstraintType = iota
	ConstraintArrDep
	ConstraintDebounce
	ConstraintAutoDebounce
)

func (t ConstraintType) String() string {
	switch t {
	case ConstraintNone:
		return "none"
	case ConstraintArrDep:
		return "arr_dep"
	case ConstraintDebounce:
		return "debounce"
	case ConstraintAutoDebounce:
		return "auto_debounce"
	}
	return fmt.Sprintf("constraint(%d)", int(t))
}

// ParseConstraintType converts the serialized form back to a ConstraintType.
func ParseConstraintType(s string) (ConstraintType, error) {
	switch s {
	case "none":
		return ConstraintNone, nil
	case "arr_dep":
		return ConstraintArrDep, nil
	case "debounce":
		return ConstraintDebounce, nil
	case "auto_debounce":
		return ConstraintAutoDebounce, nil
	}
	return ConstraintNone, fmt.Errorf("unknown constraint type %q", s)
}

// Slot is a repeating arrival/departure point within the hour-long cycle.
// All fields are in [0,59].
type Slot struct {
	ArrMin int `json:"arr_min"`
	ArrSec int `json:"arr_sec"`
	DepMin int `json:"dep_min"`
	DepSec int `json:"dep_sec"`
}

// ArrivalSeconds returns the arrival offset within the hour cycle.
func (s Slot) ArrivalSeconds() int { return s.ArrMin*60 + s.ArrSec }

// DepartureSeconds returns the departure offset within the hour cycle.
func (s Slot) DepartureSeconds() int { return s.DepMin*60 + s.DepSec }

// Validate checks that every field lies in [0,59].
func (s Slot) Validate() error {
	for _, v := range [...]int{s.ArrMin, s.ArrSec, s.DepMin, s.DepSec} {
		if v < 0 || v > 59 {
			return fmt.Errorf("slot field %d out of range [0,59]", v)
		}
	}
	return nil
}

// SlotFromSeconds builds a Slot from arrival and departure offsets
// within the hour cycle. Offsets wrap modulo 3600.
func SlotFromSeconds(arr, dep int) Slot {
	arr = ((arr % 3600) + 3600) % 3600
	dep = ((dep % 3600) + 3600) % 3600
	return Slot{
		ArrMin: arr / 60,
		ArrSec: arr % 60,
		DepMin: dep / 60,
		DepSec: dep % 60,
	}
}

// TimePeriod scopes an ordered slot sequence to a window of the hour cycle.
// Start and End are seconds in [0,3600); slots apply while the current
// second-of-hour falls in [Start,End).
type TimePeriod struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Slots []Slot `json:"slots"`
}

// Contains reports whether the second-of-hour t falls inside the period.
func (p TimePeriod) Contains(t int) bool { return t >= p.Start && t < p.End }

// Validate checks the window bounds. Overlap between periods is not
// validated; the first matching period wins at lookup time.
func (p TimePeriod) Validate() error {
	if p.Start < 0 || p.Start >= 3600 || p.End < 0 || p.End > 3600 {
		return fmt.Errorf("period window [%d,%d) out of range [0,3600)", p.Start, p.End)
	}
	return nil
}

// SkipKind selects how a SkipPattern indexes vehicles.
type SkipKind int

const (
	// SkipAlternating lets every other vehicle bypass the stop.
	SkipAlternating SkipKind = iota
	// SkipSlotBased bypasses vehicles by their slot index in the pattern.
	SkipSlotBased
)

// SkipPattern overlays the base schedule so express vehicles can bypass
// a stop. Pattern is an opaque descriptor such as "A-B".
type SkipPattern struct {
	Kind    SkipKind `json:"kind"`
	Enabled bool     `json:"enabled"`
	Pattern string   `json:"pattern"`
}

// DebounceConfig is the minimum-headway threshold for Debounce and the
// target for AutoDebounce. Minute and Second together express seconds.
type DebounceConfig struct {
	Minute int `json:"minute"`
	Second int `json:"second"`
}

// Seconds returns the threshold as a plain second count.
func (d DebounceConfig) Seconds() int { return d.Minute*60 + d.Second }

// DebounceFromSeconds converts a second count into a minute/second
// pair. Negative inputs clamp to zero.
func DebounceFromSeconds(s int) DebounceConfig {
	if s < 0 {
		s = 0
	}
	return DebounceConfig{Minute: s / 60, Second: s % 60}
}

// DelayTolerance allows a dispatch to keep its slot while the observed
// delay stays under the threshold.
type DelayTolerance struct {
	Enabled          bool `json:"enabled"`
	ThresholdSeconds int  `json:"threshold_seconds"`
}

// RecoveryMode selects what a delayed vehicle does once it exceeds its
// delay tolerance.
type RecoveryMode int

const (
	RecoverCatchUp RecoveryMode = iota
	RecoverSkipToNext
	RecoverHoldAtTerminus
	RecoverGradual
)

func (m RecoveryMode) String() string {
	switch m {
	case RecoverCatchUp:
		return "catch_up"
	case RecoverSkipToNext:
		return "skip_to_next"
	case RecoverHoldAtTerminus:
		return "hold_at_terminus"
	case RecoverGradual:
		return "gradual"
	}
	return fmt.Sprintf("recovery(%d)", int(m))
}

// Vehicle is the host's view of a vehicle that the dispatch evaluator
// consumes. LineIndex is the vehicle's stable position in the line's
// roster, used by skip patterns and unbunching.
type Vehicle struct {
	ID         VehicleID
	Line       LineID
	LineIndex  int
	AtTerminal bool
	Stop       StopIndex
	// ArrivedAt is the second-of-simulation at which the vehicle reached
	// its current terminal. Meaningful only while AtTerminal.
	ArrivedAt int64
}
