package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HGFantasy/TPF2-Timetables-sub001/app"
	"github.com/HGFantasy/TPF2-Timetables-sub001/config"
	"github.com/HGFantasy/TPF2-Timetables-sub001/infra/logger"
	"github.com/HGFantasy/TPF2-Timetables-sub001/simulator"
)

var (
	cfgPath string
	simCfg  simulator.Config
)

var rootCmd = &cobra.Command{
	Use:   "timetables",
	Short: "Transit timetable constraint service",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file")
	rootCmd.Flags().IntVar(&simCfg.Lines, "sim-lines", 0, "simulated lines")
	rootCmd.Flags().IntVar(&simCfg.VehiclesPerLine, "sim-vehicles", 0, "vehicles per simulated line")
	rootCmd.Flags().Int64Var(&simCfg.Seed, "sim-seed", 0, "simulation seed")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	return config.Load(cfgPath)
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg, simCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
