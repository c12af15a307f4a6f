package timetable

import (
	"reflect"
	"testing"

	"github.com/HGFantasy/TPF2-Timetables-sub001/core/model"
)

func buildStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	_ = s.AddCondition(1, 1, model.Slot{ArrMin: 10, DepMin: 11})
	_ = s.AddCondition(1, 1, model.Slot{ArrMin: 40, DepMin: 41})
	s.SetSkipPattern(1, 1, model.SkipPattern{Kind: model.SkipSlotBased, Enabled: true, Pattern: "A-B"})
	s.SetDelayTolerance(1, 1, model.DelayTolerance{Enabled: true, ThresholdSeconds: 120})
	s.SetRecoveryMode(1, 1, model.RecoverGradual)

	s.SetConditionType(1, 3, model.ConstraintAutoDebounce)
	s.SetDebounce(1, 3, model.DebounceConfig{Minute: 2, Second: 30})

	s.SetConditionType(2, 1, model.ConstraintArrDep)
	s.SetPeriodized(2, 1, true)
	_ = s.RemoveTimePeriod(2, 1, 1)
	_ = s.AddTimePeriod(2, 1, 0, 1800)
	_ = s.AddPeriodSlot(2, 1, 1, model.Slot{ArrMin: 15, DepMin: 16})
	s.SetLineRecoveryOverride(2, model.RecoverHoldAtTerminus)
	return s
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := buildStore(t)
	snap := s.Snapshot()

	restored := NewStore()
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !reflect.DeepEqual(snap, restored.Snapshot()) {
		t.Fatalf("round trip not deep-equal:\n%+v\n%+v", snap, restored.Snapshot())
	}
	if restored.RecoveryMode(2, 1) != model.RecoverHoldAtTerminus {
		t.Fatal("line override lost in round trip")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := buildStore(t)
	snap := s.Snapshot()
	_ = s.UpdateArrDep(1, 1, 1, FieldArrMin, 59)
	if snap.Lines[0].Stops[0].Slots[0].ArrMin == 59 {
		t.Fatal("snapshot aliases store memory")
	}
}

func TestRestoreLineLeavesOthersUntouched(t *testing.T) {
	s := buildStore(t)
	ls, ok := s.SnapshotLine(1)
	if !ok {
		t.Fatal("line 1 missing")
	}
	dst := NewStore()
	_ = dst.AddCondition(7, 1, model.Slot{ArrMin: 1})
	if err := dst.RestoreLine(ls); err != nil {
		t.Fatalf("restore line: %v", err)
	}
	if !dst.HasConstraints(7) {
		t.Fatal("unrelated line lost")
	}
	if !dst.HasConstraints(1) {
		t.Fatal("imported line missing")
	}
}

func TestMergeLine(t *testing.T) {
	dst := NewStore()
	_ = dst.AddCondition(1, 1, model.Slot{ArrMin: 1})
	_ = dst.AddCondition(1, 2, model.Slot{ArrMin: 2})

	src := NewStore()
	_ = src.AddCondition(1, 2, model.Slot{ArrMin: 55})
	ls, _ := src.SnapshotLine(1)

	if err := dst.MergeLine(ls); err != nil {
		t.Fatalf("merge: %v", err)
	}
	// Stop 1 survives, stop 2 is replaced by the imported version.
	if slots, ok := dst.Conditions(1, 1, model.ConstraintArrDep); !ok || slots[0].ArrMin != 1 {
		t.Fatalf("unmentioned stop lost: %+v", slots)
	}
	slots, ok := dst.Conditions(1, 2, model.ConstraintArrDep)
	if !ok || len(slots) != 1 || slots[0].ArrMin != 55 {
		t.Fatalf("merged stop wrong: %+v", slots)
	}
}

func TestRestoreRejectsUnknownType(t *testing.T) {
	bad := Snapshot{Lines: []LineSnapshot{{
		Line:  1,
		Stops: []StopSnapshot{{Stop: 1, Type: "bogus"}},
	}}}
	s := buildStore(t)
	if err := s.Restore(bad); err == nil {
		t.Fatal("unknown type must be rejected")
	}
	if s.HasConstraints(1) {
		t.Fatal("failed restore must not leave a mix of old and new")
	}
}
