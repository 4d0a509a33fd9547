package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twil3akine/gurobilab/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run <script> [-- script-args...]",
	Short: "Run a solver script headless and print the log and analysis",
	Long: `Run a solver script without a UI.

Output lines are printed as they arrive. When the run ends the latest gap
reading and the AI analysis are printed and the run is added to the history.
Ctrl+C cancels the run; a second Ctrl+C exits immediately.

Examples:
  gurobilab run model.py
  gurobilab run model.py -- --time-limit 60 --seed 3
  gurobilab run model.py --focus "why is the root bound weak"
  gurobilab run model.py --no-analyze`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSolver,
}

func init() {
	runCmd.Flags().String("focus", "", "Point the analysis should examine in depth")
	runCmd.Flags().Bool("no-analyze", false, "Skip the automatic analysis")
}

func runSolver(cmd *cobra.Command, args []string) error {
	focus, _ := cmd.Flags().GetString("focus")
	noAnalyze, _ := cmd.Flags().GetBool("no-analyze")

	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	orch := a.newSession(a.runner(), !noAnalyze)
	if focus != "" {
		orch.SetFocus(focus)
	}

	ctx := setupSignalHandler()
	return follow(ctx, orch, args[0], strings.Join(args[1:], " "), cmd.OutOrStdout())
}

// follow starts script, echoes the session to out until the run settles
// and reports an errored session as a failure. Cancelling ctx cancels the
// run rather than killing the process outright.
func follow(ctx context.Context, orch *session.Orchestrator, script, scriptArgs string, out io.Writer) error {
	events, unsubscribe := orch.Subscribe()
	defer unsubscribe()

	if err := orch.Start(context.WithoutCancel(ctx), script, scriptArgs); err != nil {
		return err
	}
	done := orch.Done()

	cancelled := false
	for {
		select {
		case ev := <-events:
			printEvent(out, ev)
			continue
		case <-ctx.Done():
			if !cancelled {
				cancelled = true
				if err := orch.Cancel(); err != nil {
					logger.Warn("cancel failed", "error", err)
				}
			}
			ctx = context.Background()
			continue
		case <-done:
		}
		break
	}

	// Pick up whatever was published before done closed.
	for {
		select {
		case ev := <-events:
			printEvent(out, ev)
			continue
		default:
		}
		break
	}
	orch.Flush()

	snap := orch.Snapshot()
	printSummary(out, snap)
	if snap.Status == session.StatusErrored {
		return errors.New(strings.ToLower(snap.Message))
	}
	return nil
}

func printEvent(out io.Writer, ev session.Event) {
	if ev.Kind == session.EventLine {
		fmt.Fprintln(out, ev.Line)
	}
}

func printSummary(out io.Writer, snap session.Snapshot) {
	fmt.Fprintln(out)
	if n := len(snap.Samples); n > 0 {
		fmt.Fprintf(out, "gap: %.4g%% after %d readings\n", snap.Samples[n-1].Value, n)
	}
	if snap.Status == session.StatusErrored {
		if i := strings.LastIndex(snap.Log, "\nError: "); i >= 0 {
			fmt.Fprintln(out, strings.TrimSpace(snap.Log[i:]))
		}
	}
	fmt.Fprintf(out, "status: %s", snap.StatusText)
	if snap.Message != "" {
		fmt.Fprintf(out, " (%s)", snap.Message)
	}
	fmt.Fprintln(out)

	if strings.TrimSpace(snap.Analysis) != "" {
		fmt.Fprintln(out, "\n--- Analysis ---")
		fmt.Fprintln(out, strings.TrimSpace(snap.Analysis))
	}
}

// printLog writes a log followed by a trailing newline if it lacks one.
func printLog(out io.Writer, log string) {
	fmt.Fprint(out, log)
	if log != "" && !strings.HasSuffix(log, "\n") {
		fmt.Fprintln(out)
	}
}
