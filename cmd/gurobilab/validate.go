package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/twil3akine/gurobilab/internal/config"
	"github.com/twil3akine/gurobilab/internal/scheduler"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a gurobilab configuration file",
	Long: `Validate the syntax and semantics of a configuration file.

It checks for:
  - Valid YAML syntax
  - A known store driver and logging format and level
  - A compilable solver.stop_pattern
  - Complete, unique and parseable schedules

Example:
  gurobilab validate --config ./gurobilab.yaml`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)

	logger.Info("validating configuration", "path", path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("configuration file not found: %s", path)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// The config layer checks the schedule grammar; the cron parser has the
	// final word on ranges.
	for _, s := range cfg.Schedules {
		if _, err := scheduler.ParseSchedule(s.Schedule); err != nil {
			return fmt.Errorf("validation failed: schedule %s: %w", s.ID, err)
		}
		logger.Debug("schedule ok", "id", s.ID, "schedule", s.Schedule, "script", s.Script)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration is valid: %s\n", path)
	fmt.Fprintf(out, "  Solver:    %s (workdir %s)\n", cfg.Solver.CommandPrefix, cfg.Solver.Workdir)
	fmt.Fprintf(out, "  Model:     %s\n", cfg.Analysis.Model)
	fmt.Fprintf(out, "  Store:     %s (%s)\n", cfg.Store.Driver, cfg.Store.Path)
	fmt.Fprintf(out, "  Schedules: %d\n", len(cfg.Schedules))
	return nil
}
