// Package host declares the collaborator interfaces the timetable core
// consumes from the running simulation. Implementations live outside
// the core; the in-process simulator provides one for development.
package host

import "github.com/HGFantasy/TPF2-Timetables-sub001/core/model"

// LineProvider enumerates the lines currently alive in the simulation.
type LineProvider interface {
	Lines() []model.LineID
	LineExists(model.LineID) bool
}

// VehicleProvider exposes the per-line vehicle roster with terminal
// state, ordered by roster index.
type VehicleProvider interface {
	Vehicles(model.LineID) []model.Vehicle
}

// FrequencyComputer computes the current headway of a line in seconds.
// ok is false while the line has too few moving vehicles to measure.
type FrequencyComputer interface {
	LineFrequency(model.LineID) (seconds int, ok bool)
}

// Clock yields the current simulated time as seconds since simulation
// start. The scheduler derives its 1 Hz gate and the hour cycle from it.
type Clock interface {
	Now() int64
}

// Releaser applies the core's hold/release decision to a waiting
// vehicle. The host owns physical movement; the core only decides.
type Releaser interface {
	Release(model.VehicleID)
}
