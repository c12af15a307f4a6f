// Package recurrence expands a single timetable slot into an evenly
// spaced sequence covering the hour cycle.
package recurrence

import (
	"fmt"
	"math"

	"github.com/HGFantasy/TPF2-Timetables-sub001/core/model"
)

// GenerateRecurring produces the additional slots obtained by repeating
// the template every separationMinutes within the hour cycle. The
// separation must tile the hour exactly: 60/separationMinutes has to be
// a positive integer N, and N-1 slots are returned, the i-th shifted by
// i*separationMinutes*60 seconds modulo 3600. Fractional separations
// are allowed (1.2 minutes tiles the hour 50 times); shift amounts are
// truncated to whole seconds so every generated slot lands on a
// displayable minute:second boundary.
//
// A separation that does not tile the hour is rejected without any
// output; callers surface the error to the user.
func GenerateRecurring(template model.Slot, separationMinutes float64) ([]model.Slot, error) {
	if err := template.Validate(); err != nil {
		return nil, err
	}
	if separationMinutes <= 0 {
		return nil, fmt.Errorf("separation must be positive, got %v", separationMinutes)
	}
	n := 60.0 / separationMinutes
	if n != math.Trunc(n) {
		return nil, fmt.Errorf("separation %v does not divide 60 evenly", separationMinutes)
	}
	count := int(n)
	arr := template.ArrivalSeconds()
	dep := template.DepartureSeconds()
	out := make([]model.Slot, 0, count-1)
	for i := 1; i < count; i++ {
		// Integer arithmetic: i*separation*60 == i*3600/count exactly,
		// and the division truncates without float rounding drift.
		shift := i * 3600 / count
		out = append(out, model.SlotFromSeconds(arr+shift, dep+shift))
	}
	return out, nil
}
