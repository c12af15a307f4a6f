package snapshot

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/HGFantasy/TPF2-Timetables-sub001/core/model"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/timetable"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tt.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return s
}

func sampleSnapshot(t *testing.T, minute int) timetable.Snapshot {
	t.Helper()
	st := timetable.NewStore()
	st.SetConditionType(4, 1, model.ConstraintArrDep)
	st.AddCondition(4, 1, model.Slot{ArrMin: minute, DepMin: minute, DepSec: 30})
	st.SetConditionType(4, 2, model.ConstraintDebounce)
	st.SetDebounce(4, 2, model.DebounceConfig{Minute: 2, Second: 15})
	return st.Snapshot()
}

func TestLoadEmpty(t *testing.T) {
	s := openStore(t)
	_, ok, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatal("empty store reported a snapshot")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openStore(t)
	want := sampleSnapshot(t, 10)
	if err := s.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := s.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("snapshot drifted through sqlite:\n got %+v\nwant %+v", got, want)
	}
}

func TestLoadReturnsNewest(t *testing.T) {
	s := openStore(t)
	if err := s.Save(sampleSnapshot(t, 5)); err != nil {
		t.Fatalf("save: %v", err)
	}
	want := sampleSnapshot(t, 45)
	if err := s.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := s.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatal("load did not return the newest snapshot")
	}
}

func TestPrune(t *testing.T) {
	s := openStore(t)
	for i := 0; i < 5; i++ {
		if err := s.Save(sampleSnapshot(t, i)); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	if err := s.Prune(2); err != nil {
		t.Fatalf("prune: %v", err)
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM timetable_snapshots`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows after prune, got %d", n)
	}
	// The newest snapshot survives pruning.
	got, ok, err := s.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, sampleSnapshot(t, 4)) {
		t.Fatal("prune dropped the newest snapshot")
	}
}
