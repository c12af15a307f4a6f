// Package simulator provides an in-process host implementation so the
// constraint core can run without the real game: lines with vehicles
// cycling their routes, terminal dwell gated by the dispatch decision,
// and measured line frequencies.
package simulator

import (
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/HGFantasy/TPF2-Timetables-sub001/core/model"
)

// Config sizes the simulated network.
type Config struct {
	Lines           int   `json:"lines"`
	StopsPerLine    int   `json:"stops_per_line"`
	VehiclesPerLine int   `json:"vehicles_per_line"`
	LegSeconds      int   `json:"leg_seconds"`
	LegJitter       int   `json:"leg_jitter"`
	Seed            int64 `json:"seed"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Lines <= 0 {
		c.Lines = 2
	}
	if c.StopsPerLine <= 0 {
		c.StopsPerLine = 4
	}
	if c.VehiclesPerLine <= 0 {
		c.VehiclesPerLine = 3
	}
	if c.LegSeconds <= 0 {
		c.LegSeconds = 120
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
}

type vehicleState int

const (
	enRoute vehicleState = iota
	atTerminal
)

type simVehicle struct {
	id           model.VehicleID
	line         model.LineID
	index        int
	stop         model.StopIndex
	state        vehicleState
	arrivedAt    int64
	legRemaining int
}

type simLine struct {
	id       model.LineID
	stops    int
	vehicles []*simVehicle
	// departures at stop 1, used to measure the line's headway.
	departures []float64
}

// World is the simulated host. All methods are invoked from the single
// driver loop; the world is deliberately not safe for concurrent use,
// mirroring the cooperative model it stands in for.
type World struct {
	cfg    Config
	rng    *rand.Rand
	now    int64
	lines  map[model.LineID]*simLine
	order  []model.LineID
	nextID model.VehicleID
}

// NewWorld builds the network described by cfg. Vehicles start spread
// along their line so headways are non-degenerate from the first tick.
func NewWorld(cfg Config) *World {
	cfg.SetDefaults()
	w := &World{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		lines: make(map[model.LineID]*simLine),
	}
	for i := 0; i < cfg.Lines; i++ {
		id := model.LineID(i + 1)
		l := &simLine{id: id, stops: cfg.StopsPerLine}
		for j := 0; j < cfg.VehiclesPerLine; j++ {
			w.nextID++
			l.vehicles = append(l.vehicles, &simVehicle{
				id:           w.nextID,
				line:         id,
				index:        j,
				stop:         model.StopIndex(j%cfg.StopsPerLine + 1),
				state:        enRoute,
				legRemaining: w.legDuration() * (j + 1) / cfg.VehiclesPerLine,
			})
		}
		w.lines[id] = l
		w.order = append(w.order, id)
	}
	return w
}

func (w *World) legDuration() int {
	d := w.cfg.LegSeconds
	if w.cfg.LegJitter > 0 {
		d += w.rng.Intn(2*w.cfg.LegJitter+1) - w.cfg.LegJitter
	}
	if d < 1 {
		d = 1
	}
	return d
}

// Advance moves the simulation forward by the given number of seconds.
// Vehicles reaching a stop wait there until released.
func (w *World) Advance(seconds int) {
	for s := 0; s < seconds; s++ {
		w.now++
		for _, id := range w.order {
			for _, v := range w.lines[id].vehicles {
				if v.state != enRoute {
					continue
				}
				v.legRemaining--
				if v.legRemaining <= 0 {
					v.state = atTerminal
					v.arrivedAt = w.now
				}
			}
		}
	}
}

// Now implements host.Clock.
func (w *World) Now() int64 { return w.now }

// Lines implements host.LineProvider.
func (w *World) Lines() []model.LineID {
	return append([]model.LineID(nil), w.order...)
}

// LineExists implements host.LineProvider.
func (w *World) LineExists(id model.LineID) bool {
	_, ok := w.lines[id]
	return ok
}

// RemoveLine withdraws a line from service, as a user deleting it in
// the host would.
func (w *World) RemoveLine(id model.LineID) {
	if _, ok := w.lines[id]; !ok {
		return
	}
	delete(w.lines, id)
	for i, o := range w.order {
		if o == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// Vehicles implements host.VehicleProvider.
func (w *World) Vehicles(id model.LineID) []model.Vehicle {
	l, ok := w.lines[id]
	if !ok {
		return nil
	}
	out := make([]model.Vehicle, 0, len(l.vehicles))
	for _, v := range l.vehicles {
		out = append(out, model.Vehicle{
			ID:         v.id,
			Line:       v.line,
			LineIndex:  v.index,
			AtTerminal: v.state == atTerminal,
			Stop:       v.stop,
			ArrivedAt:  v.arrivedAt,
		})
	}
	return out
}

// Release implements host.Releaser: the vehicle departs toward its next
// stop. Departures from the first stop feed the headway measurement.
func (w *World) Release(id model.VehicleID) {
	for _, l := range w.lines {
		for _, v := range l.vehicles {
			if v.id != id || v.state != atTerminal {
				continue
			}
			if v.stop == 1 {
				l.departures = append(l.departures, float64(w.now))
				if len(l.departures) > 16 {
					l.departures = l.departures[1:]
				}
			}
			v.state = enRoute
			v.stop = v.stop%model.StopIndex(l.stops) + 1
			v.legRemaining = w.legDuration()
			return
		}
	}
}

// LineFrequency implements host.FrequencyComputer: the mean gap between
// recent departures at the line's first stop. ok is false until two
// departures have been observed.
func (w *World) LineFrequency(id model.LineID) (int, bool) {
	l, ok := w.lines[id]
	if !ok || len(l.departures) < 2 {
		return 0, false
	}
	gaps := make([]float64, 0, len(l.departures)-1)
	for i := 1; i < len(l.departures); i++ {
		gaps = append(gaps, l.departures[i]-l.departures[i-1])
	}
	return int(stat.Mean(gaps, nil)), true
}
