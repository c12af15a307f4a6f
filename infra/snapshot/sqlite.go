// Package snapshot persists the opaque constraint-store snapshot across
// sessions. The host's save/load transport hands the payload in and
// out; this store is the local durable backend.
package snapshot

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/HGFantasy/TPF2-Timetables-sub001/core/timetable"
)

// SQLiteStore keeps snapshots in a SQLite database, newest last.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures the
// schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS timetable_snapshots (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        saved_at INTEGER,
        payload TEXT
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("init schema: %w (close: %v)", err, cerr)
		}
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save appends the snapshot.
func (s *SQLiteStore) Save(snap timetable.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO timetable_snapshots (saved_at, payload) VALUES (?, ?)`,
		time.Now().Unix(), string(payload))
	return err
}

// Load returns the most recent snapshot. ok is false when the store is
// empty, which is not an error.
func (s *SQLiteStore) Load() (timetable.Snapshot, bool, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM timetable_snapshots ORDER BY id DESC LIMIT 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return timetable.Snapshot{}, false, nil
	}
	if err != nil {
		return timetable.Snapshot{}, false, err
	}
	var snap timetable.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return timetable.Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

// Prune keeps only the newest keep snapshots.
func (s *SQLiteStore) Prune(keep int) error {
	if keep < 1 {
		keep = 1
	}
	_, err := s.db.Exec(`DELETE FROM timetable_snapshots WHERE id NOT IN (
        SELECT id FROM timetable_snapshots ORDER BY id DESC LIMIT ?)`, keep)
	return err
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }
