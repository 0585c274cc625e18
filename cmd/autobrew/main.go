// Package main implements the autobrew CLI for monitoring the scale and simulating shots
package main

import (
	"fmt"
	"os"

	"github.com/calvinmclean/autobrew/config"
	"github.com/calvinmclean/autobrew/history"
	"github.com/calvinmclean/autobrew/logging"
	"github.com/calvinmclean/autobrew/monitor"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	debug      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "autobrew",
	Short: "Tools for the autobrew espresso scale",
	Long: `autobrew monitors the espresso scale over USB serial, records shots and
simulates the extraction controller on the host.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "autobrew.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(historyCmd)
}

type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *history.DB
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}
	if cfg.History.Path != "" {
		a.db, err = history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
	}

	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("failed to close history", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

func (a *app) newRecorder() *monitor.Recorder {
	var store monitor.ShotStore
	if a.db != nil {
		store = a.db
	}

	r := monitor.NewRecorder(store, a.log)
	r.UploadTo(a.cfg.TWChart.Address)
	return r
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := monitor.Ports()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}
