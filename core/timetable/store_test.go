package timetable

import (
	"testing"

	"github.com/HGFantasy/TPF2-Timetables-sub001/core/model"
)

func TestLazyCreationAndAbsence(t *testing.T) {
	s := NewStore()
	if typ := s.ConditionType(1, 2); typ != model.ConstraintNone {
		t.Fatalf("unconfigured stop must report none, got %v", typ)
	}
	if _, ok := s.Conditions(1, 2, model.ConstraintArrDep); ok {
		t.Fatal("unconfigured stop must report absence")
	}
	s.SetConditionType(1, 2, model.ConstraintArrDep)
	if typ := s.ConditionType(1, 2); typ != model.ConstraintArrDep {
		t.Fatalf("got %v", typ)
	}
	// Resetting to none removes the entry entirely.
	s.SetConditionType(1, 2, model.ConstraintNone)
	if s.HasConstraints(1) {
		t.Fatal("entry must be removed when type resets to none")
	}
}

func TestAddRemoveCompaction(t *testing.T) {
	s := NewStore()
	for i := 0; i < 3; i++ {
		if err := s.AddCondition(1, 1, model.Slot{ArrMin: 10 * i}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := s.RemoveCondition(1, 1, 2); err != nil {
		t.Fatalf("remove: %v", err)
	}
	slots, ok := s.Conditions(1, 1, model.ConstraintArrDep)
	if !ok || len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	// Indices compacted: the former third slot is now index 2.
	if slots[1].ArrMin != 20 {
		t.Fatalf("compaction broken: %+v", slots)
	}
	if err := s.RemoveCondition(1, 1, 3); err == nil {
		t.Fatal("stale index must be rejected after compaction")
	}
}

func TestInsertCondition(t *testing.T) {
	s := NewStore()
	_ = s.AddCondition(1, 1, model.Slot{ArrMin: 10})
	_ = s.AddCondition(1, 1, model.Slot{ArrMin: 30})
	if err := s.InsertCondition(1, 1, 2, model.Slot{ArrMin: 20}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	slots, _ := s.Conditions(1, 1, model.ConstraintArrDep)
	for i, want := range []int{10, 20, 30} {
		if slots[i].ArrMin != want {
			t.Fatalf("slot %d: got %d want %d", i+1, slots[i].ArrMin, want)
		}
	}
	if err := s.InsertCondition(1, 1, 5, model.Slot{}); err == nil {
		t.Fatal("out-of-range insert must be rejected")
	}
}

func TestUpdateArrDepValidation(t *testing.T) {
	s := NewStore()
	_ = s.AddCondition(1, 1, model.Slot{})
	if err := s.UpdateArrDep(1, 1, 1, FieldDepMin, 59); err != nil {
		t.Fatalf("update: %v", err)
	}
	slots, _ := s.Conditions(1, 1, model.ConstraintArrDep)
	if slots[0].DepMin != 59 {
		t.Fatalf("update not applied: %+v", slots[0])
	}
	// Rejected before mutation.
	if err := s.UpdateArrDep(1, 1, 1, FieldDepMin, 60); err == nil {
		t.Fatal("out-of-range value must be rejected")
	}
	slots, _ = s.Conditions(1, 1, model.ConstraintArrDep)
	if slots[0].DepMin != 59 {
		t.Fatalf("rejected update mutated state: %+v", slots[0])
	}
}

func TestConditionsTypeMismatch(t *testing.T) {
	s := NewStore()
	_ = s.AddCondition(1, 1, model.Slot{})
	if _, ok := s.Conditions(1, 1, model.ConstraintDebounce); ok {
		t.Fatal("type mismatch must report absence")
	}
}

func TestClean(t *testing.T) {
	s := NewStore()
	s.SetConditionType(1, 1, model.ConstraintDebounce)
	s.SetConditionType(2, 1, model.ConstraintDebounce)
	s.SetLineRecoveryOverride(2, model.RecoverSkipToNext)
	removed := s.Clean(func(id model.LineID) bool { return id == 1 })
	if removed != 1 {
		t.Fatalf("expected 1 removed entry, got %d", removed)
	}
	if s.HasConstraints(2) {
		t.Fatal("dead line not pruned")
	}
	if !s.HasConstraints(1) {
		t.Fatal("live line pruned")
	}
	if m := s.RecoveryMode(2, 1); m != model.RecoverCatchUp {
		t.Fatalf("dead line override not pruned: %v", m)
	}
}

func TestRecoveryResolution(t *testing.T) {
	s := NewStore()
	if m := s.RecoveryMode(1, 1); m != model.RecoverCatchUp {
		t.Fatalf("default must be catch-up, got %v", m)
	}
	s.SetRecoveryMode(1, 1, model.RecoverGradual)
	if m := s.RecoveryMode(1, 1); m != model.RecoverGradual {
		t.Fatalf("got %v", m)
	}
	// The line override wins over the per-stop setting.
	s.SetLineRecoveryOverride(1, model.RecoverHoldAtTerminus)
	if m := s.RecoveryMode(1, 1); m != model.RecoverHoldAtTerminus {
		t.Fatalf("override must win, got %v", m)
	}
	s.ClearLineRecoveryOverride(1)
	if m := s.RecoveryMode(1, 1); m != model.RecoverGradual {
		t.Fatalf("cleared override must fall back, got %v", m)
	}
}

func TestDirtyFlag(t *testing.T) {
	s := NewStore()
	if s.Dirty() {
		t.Fatal("fresh store must be clean")
	}
	_ = s.AddCondition(1, 1, model.Slot{})
	if !s.Dirty() {
		t.Fatal("edit must set the dirty flag")
	}
	if !s.ConsumeDirty() {
		t.Fatal("consume must report the pending edit")
	}
	if s.ConsumeDirty() {
		t.Fatal("flag must clear after consumption")
	}
	s.SetDebounce(1, 1, model.DebounceConfig{Minute: 2})
	if !s.Dirty() {
		t.Fatal("next edit must re-arm the flag")
	}
}

func TestClearUnconfiguredStopStaysClean(t *testing.T) {
	s := NewStore()
	s.SetConditionType(5, 3, model.ConstraintNone)
	if s.Dirty() {
		t.Fatal("clearing a stop that was never configured must not set the dirty flag")
	}
	s.SetConditionType(5, 3, model.ConstraintDebounce)
	s.ConsumeDirty()
	s.SetConditionType(5, 3, model.ConstraintNone)
	if !s.Dirty() {
		t.Fatal("dropping a configured stop must set the dirty flag")
	}
}

func TestDebounceAndToleranceAccessors(t *testing.T) {
	s := NewStore()
	if _, ok := s.Debounce(1, 1); ok {
		t.Fatal("absent debounce must report false")
	}
	s.SetDebounce(1, 1, model.DebounceConfig{Minute: 2, Second: 30})
	d, ok := s.Debounce(1, 1)
	if !ok || d.Seconds() != 150 {
		t.Fatalf("got %+v ok=%v", d, ok)
	}
	s.SetDelayTolerance(1, 1, model.DelayTolerance{Enabled: true, ThresholdSeconds: 90})
	tol, ok := s.DelayTolerance(1, 1)
	if !ok || !tol.Enabled || tol.ThresholdSeconds != 90 {
		t.Fatalf("got %+v ok=%v", tol, ok)
	}
}
