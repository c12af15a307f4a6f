package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HGFantasy/TPF2-Timetables-sub001/core/model"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/timetable"
	"github.com/HGFantasy/TPF2-Timetables-sub001/infra/snapshot"
	"github.com/HGFantasy/TPF2-Timetables-sub001/pkg/export"
)

var (
	exportLine uint64
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export constraint trees from the persisted snapshot",
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().Uint64Var(&exportLine, "line", 0, "export a single line (default: all)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: stdout)")
}

// loadPersistedStore rebuilds a store from the latest persisted
// snapshot so export and import work against the same state the
// service would restore.
func loadPersistedStore() (*timetable.Store, *snapshot.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	snaps, err := snapshot.NewSQLiteStore(cfg.Snapshot.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot store: %w", err)
	}
	store := timetable.NewStore()
	if snap, ok, err := snaps.Load(); err != nil {
		_ = snaps.Close()
		return nil, nil, fmt.Errorf("load snapshot: %w", err)
	} else if ok {
		if err := store.Restore(snap); err != nil {
			_ = snaps.Close()
			return nil, nil, fmt.Errorf("restore snapshot: %w", err)
		}
	}
	return store, snaps, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	store, snaps, err := loadPersistedStore()
	if err != nil {
		return err
	}
	defer func() { _ = snaps.Close() }()

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	if exportLine != 0 {
		return export.ExportLine(out, store, model.LineID(exportLine))
	}
	return export.ExportAll(out, store)
}
