// Package export serializes constraint trees to a versioned textual
// form and imports them back with replace or merge semantics.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/HGFantasy/TPF2-Timetables-sub001/core/model"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/timetable"
)

// FormatVersion is bumped whenever the envelope layout changes.
const FormatVersion = 1

// Mode selects how an import applies to lines already present.
type Mode int

const (
	// Replace drops the target line's tree before applying the import.
	Replace Mode = iota
	// Merge overlays imported stops, keeping unmentioned ones.
	Merge
)

// Envelope wraps one or more line trees with format metadata.
type Envelope struct {
	Version int                      `json:"version"`
	ID      string                   `json:"id"`
	Lines   []timetable.LineSnapshot `json:"lines"`
}

// ExportAll writes every line's constraint tree to w.
func ExportAll(w io.Writer, store *timetable.Store) error {
	snap := store.Snapshot()
	return write(w, snap.Lines)
}

// ExportLine writes a single line's constraint tree to w. Exporting a
// line without configuration is rejected.
func ExportLine(w io.Writer, store *timetable.Store, line model.LineID) error {
	ls, ok := store.SnapshotLine(line)
	if !ok {
		return fmt.Errorf("line %d has no timetable configuration", line)
	}
	return write(w, []timetable.LineSnapshot{ls})
}

func write(w io.Writer, lines []timetable.LineSnapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Envelope{
		Version: FormatVersion,
		ID:      uuid.NewString(),
		Lines:   lines,
	})
}

// Read decodes and version-checks an envelope without touching any
// store.
func Read(r io.Reader) (Envelope, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("decode export: %w", err)
	}
	if env.Version != FormatVersion {
		return Envelope{}, fmt.Errorf("unsupported export version %d (want %d)", env.Version, FormatVersion)
	}
	return env, nil
}

// Import reads an envelope from r and applies it to the store with the
// given mode. Nothing is applied when decoding or validation fails.
func Import(r io.Reader, store *timetable.Store, mode Mode) error {
	env, err := Read(r)
	if err != nil {
		return err
	}
	// Validate the whole envelope before mutating anything.
	for _, ls := range env.Lines {
		for _, ss := range ls.Stops {
			if _, err := model.ParseConstraintType(ss.Type); err != nil {
				return fmt.Errorf("import line %d: %w", ls.Line, err)
			}
		}
	}
	for _, ls := range env.Lines {
		switch mode {
		case Replace:
			err = store.RestoreLine(ls)
		case Merge:
			err = store.MergeLine(ls)
		default:
			err = fmt.Errorf("unknown import mode %d", mode)
		}
		if err != nil {
			return fmt.Errorf("import line %d: %w", ls.Line, err)
		}
	}
	return nil
}
