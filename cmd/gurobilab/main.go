package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/twil3akine/gurobilab/internal/logging"
)

var (
	// Version information (set via ldflags at build time)
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	// Global logger, replaced once a command loads its config
	logger = logging.New("info")
)

func main() {
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gurobilab",
	Short: "Run optimisation scripts, chart their gap and get an AI review of the log",
	Long: `gurobilab launches a solver script, streams its output, charts the
optimality gap as it shrinks and asks a language model to review the log
once the run finishes.

Front ends:
  run    - headless run printing the log and the analysis
  watch  - follow a solver log file written by another process
  tui    - interactive terminal UI
  serve  - HTTP dashboard and JSON API, with scheduled runs`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file (default: ./gurobilab.yaml or the user config dir)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			logger = logging.New("debug")
			slog.SetDefault(logger)
			logger.Debug("debug logging enabled")
		}
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(validateCmd)
}

// setupSignalHandler creates a context that cancels on SIGINT or SIGTERM
func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()

		// Force exit if second signal received
		sig = <-sigChan
		logger.Warn("received second signal, forcing exit", "signal", sig.String())
		os.Exit(1)
	}()

	return ctx
}
