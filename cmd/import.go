package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HGFantasy/TPF2-Timetables-sub001/pkg/export"
)

var importMode string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import constraint trees into the persisted snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importMode, "mode", "replace", "import semantics: replace or merge")
}

func runImport(cmd *cobra.Command, args []string) error {
	var mode export.Mode
	switch importMode {
	case "replace":
		mode = export.Replace
	case "merge":
		mode = export.Merge
	default:
		return fmt.Errorf("unknown import mode %q", importMode)
	}

	store, snaps, err := loadPersistedStore()
	if err != nil {
		return err
	}
	defer func() { _ = snaps.Close() }()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := export.Import(f, store, mode); err != nil {
		return err
	}
	return snaps.Save(store.Snapshot())
}
