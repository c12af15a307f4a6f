// Package unbunch derives automatic anti-bunching margins from line
// frequency and a debounce target.
package unbunch

import "github.com/HGFantasy/TPF2-Timetables-sub001/core/model"

// AutoMargin computes the slack between the line's frequency and the
// debounce target, both expressed as minute/second pairs. The margin is
// the headway a vehicle must leave behind its predecessor for the line
// to stay evenly spread.
//
// A negative margin means the target exceeds the line's headway
// capacity; the result is then undefined (ok=false) and is rendered as
// "--", never as zero. Manual debounce reports its threshold directly
// and never consults this resolver.
func AutoMargin(frequency, target model.DebounceConfig) (seconds int, ok bool) {
	margin := (frequency.Minute-target.Minute)*60 + frequency.Second - target.Second
	if margin < 0 {
		return 0, false
	}
	return margin, true
}
