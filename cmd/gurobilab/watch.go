package main

import (
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <logfile>",
	Short: "Follow a solver log written by another process",
	Long: `Follow a Gurobi log file as another process writes it.

The file is read from the start and followed until a line matching
solver.stop_pattern appears (Gurobi's final status lines by default), the
file is removed or Ctrl+C is pressed. The gap is charted and the log is
analysed and recorded exactly as for "run".

Example:
  gurobilab watch /tmp/gurobi.log --focus "cut generation"`,
	Args: cobra.ExactArgs(1),
	RunE: watchLog,
}

func init() {
	watchCmd.Flags().String("focus", "", "Point the analysis should examine in depth")
	watchCmd.Flags().Bool("no-analyze", false, "Skip the automatic analysis")
}

func watchLog(cmd *cobra.Command, args []string) error {
	focus, _ := cmd.Flags().GetString("focus")
	noAnalyze, _ := cmd.Flags().GetBool("no-analyze")

	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	tailer, err := a.tailer()
	if err != nil {
		return err
	}

	orch := a.newSession(tailer, !noAnalyze)
	if focus != "" {
		orch.SetFocus(focus)
	}

	ctx := setupSignalHandler()
	return follow(ctx, orch, args[0], "", cmd.OutOrStdout())
}
