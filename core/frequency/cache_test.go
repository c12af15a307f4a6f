package frequency

import (
	"testing"

	"github.com/HGFantasy/TPF2-Timetables-sub001/core/model"
)

type fakeComputer struct {
	freqs map[model.LineID]int
	calls map[model.LineID]int
}

func newFakeComputer() *fakeComputer {
	return &fakeComputer{freqs: map[model.LineID]int{}, calls: map[model.LineID]int{}}
}

func (f *fakeComputer) LineFrequency(id model.LineID) (int, bool) {
	f.calls[id]++
	sec, ok := f.freqs[id]
	return sec, ok
}

func (f *fakeComputer) totalCalls() int {
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func TestRefreshStableSetWithinTTL(t *testing.T) {
	comp := newFakeComputer()
	comp.freqs[1] = 600
	comp.freqs[2] = 300
	c := NewCache(comp, 5)

	lines := []model.LineID{1, 2}
	if n, changed := c.Refresh(lines, 0); n != 2 || !changed {
		t.Fatalf("first refresh: recomputed=%d changed=%v", n, changed)
	}
	// Same set, all entries fresh: zero recomputation calls.
	before := comp.totalCalls()
	if n, changed := c.Refresh(lines, 3); n != 0 || changed {
		t.Fatalf("stable refresh: recomputed=%d changed=%v", n, changed)
	}
	if comp.totalCalls() != before {
		t.Fatalf("computer called during stable refresh")
	}
	if sec, ok := c.Get(1); !ok || sec != 600 {
		t.Fatalf("cached value lost: %d %v", sec, ok)
	}
}

func TestRefreshTTLExpiry(t *testing.T) {
	comp := newFakeComputer()
	comp.freqs[1] = 600
	c := NewCache(comp, 5)
	c.Refresh([]model.LineID{1}, 0)

	comp.freqs[1] = 540
	if n, _ := c.Refresh([]model.LineID{1}, 4); n != 0 {
		t.Fatalf("entry recomputed before TTL: %d", n)
	}
	if n, _ := c.Refresh([]model.LineID{1}, 5); n != 1 {
		t.Fatal("expired entry not recomputed")
	}
	if sec, _ := c.Get(1); sec != 540 {
		t.Fatalf("stale value after recompute: %d", sec)
	}
}

func TestRefreshNewLineForcesFullRefresh(t *testing.T) {
	comp := newFakeComputer()
	comp.freqs[1] = 600
	comp.freqs[2] = 300
	c := NewCache(comp, 5)
	c.Refresh([]model.LineID{1}, 0)

	n, changed := c.Refresh([]model.LineID{1, 2}, 1)
	if !changed || n != 2 {
		t.Fatalf("membership change must refresh all live lines: n=%d changed=%v", n, changed)
	}
	if _, ok := c.Get(2); !ok {
		t.Fatal("new line missing from cache")
	}
}

func TestRefreshPurgesRemovedLineImmediately(t *testing.T) {
	comp := newFakeComputer()
	comp.freqs[1] = 600
	comp.freqs[2] = 300
	c := NewCache(comp, 5)
	c.Refresh([]model.LineID{1, 2}, 0)

	if _, changed := c.Refresh([]model.LineID{1}, 1); !changed {
		t.Fatal("removal must be observed as a membership change")
	}
	if _, ok := c.Get(2); ok {
		t.Fatal("removed line still cached after the tick that observed the change")
	}
}

func TestGetUnknownFrequency(t *testing.T) {
	comp := newFakeComputer()
	c := NewCache(comp, 5)
	c.Refresh([]model.LineID{9}, 0)
	if _, ok := c.Get(9); ok {
		t.Fatal("line without measurable frequency must report absent")
	}
	if _, ok := c.Frequency(9); ok {
		t.Fatal("Frequency must mirror Get")
	}
}

func TestColdInit(t *testing.T) {
	comp := newFakeComputer()
	comp.freqs[1] = 600
	c := NewCache(comp, 5)
	c.ColdInit([]model.LineID{1}, 100)
	// The set was seeded, so the next refresh with the same membership
	// must not treat it as a change.
	if n, changed := c.Refresh([]model.LineID{1}, 101); n != 0 || changed {
		t.Fatalf("cold init did not seed the set: n=%d changed=%v", n, changed)
	}
	if f, ok := c.Frequency(1); !ok || f.Minute != 10 || f.Second != 0 {
		t.Fatalf("unexpected frequency %+v ok=%v", f, ok)
	}
}
