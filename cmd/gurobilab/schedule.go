package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/twil3akine/gurobilab/internal/config"
	"github.com/twil3akine/gurobilab/internal/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage scheduled runs in the configuration",
	Long: `Manage the solver runs "serve" starts on a schedule.

Subcommands:
  add     - Add a scheduled run to the configuration
  list    - List scheduled runs and when they fire next
  remove  - Remove a scheduled run from the configuration

Schedules accept cron expressions, @-descriptors and intervals such as
"every 30m".

Examples:
  gurobilab schedule add nightly --schedule "@daily" --script model.py --args "--time-limit 3600"
  gurobilab schedule list
  gurobilab schedule remove nightly`,
}

var addScheduleCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add a scheduled run to the configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddSchedule,
}

var listSchedulesCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled runs",
	Args:  cobra.NoArgs,
	RunE:  runListSchedules,
}

var removeScheduleCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a scheduled run from the configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoveSchedule,
}

func init() {
	scheduleCmd.AddCommand(addScheduleCmd)
	scheduleCmd.AddCommand(listSchedulesCmd)
	scheduleCmd.AddCommand(removeScheduleCmd)

	addScheduleCmd.Flags().String("schedule", "", "Cron expression, @-descriptor or interval (required)")
	addScheduleCmd.Flags().String("script", "", "Solver script to run (required)")
	addScheduleCmd.Flags().String("args", "", "Arguments passed to the script")
	addScheduleCmd.Flags().String("focus", "", "Point the analysis should examine in depth")
	addScheduleCmd.MarkFlagRequired("schedule")
	addScheduleCmd.MarkFlagRequired("script")
}

// configPath returns the config file a command should write to.
func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultPath()
	}
	return path
}

func runAddSchedule(cmd *cobra.Command, args []string) error {
	expr, _ := cmd.Flags().GetString("schedule")
	script, _ := cmd.Flags().GetString("script")
	scriptArgs, _ := cmd.Flags().GetString("args")
	focus, _ := cmd.Flags().GetString("focus")

	if _, err := scheduler.ParseSchedule(expr); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	path := configPath(cmd)
	s := config.Schedule{
		ID:       args[0],
		Schedule: expr,
		Script:   script,
		Args:     scriptArgs,
		Focus:    focus,
	}
	if err := config.AddSchedule(path, s); err != nil {
		return err
	}

	logger.Info("schedule added", "id", s.ID, "config", path)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Schedule '%s' added to %s\n", s.ID, path)
	if next, err := scheduler.NextRun(expr, time.Now()); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "  Next run: %s\n", next.Format(time.RFC1123))
	}
	return nil
}

func runListSchedules(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(cmd.OutOrStdout(), "No configuration at %s; no schedules.\n", path)
		return nil
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(cfg.Schedules) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No schedules configured.")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSCHEDULE\tSCRIPT\tARGS\tNEXT RUN")
	for _, s := range cfg.Schedules {
		next := "-"
		if t, err := scheduler.NextRun(s.Schedule, now); err == nil {
			next = t.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Schedule, s.Script, truncate(s.Args, 30), next)
	}
	return w.Flush()
}

func runRemoveSchedule(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	if err := config.RemoveSchedule(path, args[0]); err != nil {
		return err
	}
	logger.Info("schedule removed", "id", args[0], "config", path)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Schedule '%s' removed from %s\n", args[0], path)
	return nil
}
