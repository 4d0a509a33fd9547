package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/twil3akine/gurobilab/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and clear past runs",
	Long: `Inspect the most recent solver runs, newest first.

Subcommands:
  list   - List recorded runs
  show   - Print the log and analysis of one run
  clear  - Delete every recorded run

Examples:
  gurobilab history list
  gurobilab history show 0 --log=false
  gurobilab history clear --yes`,
}

var listHistoryCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  runListHistory,
}

var showHistoryCmd = &cobra.Command{
	Use:   "show <index>",
	Short: "Print the log and analysis of a recorded run",
	Long: `Print a recorded run. Index 0 is the newest run, as shown by "history list".`,
	Args: cobra.ExactArgs(1),
	RunE: runShowHistory,
}

var clearHistoryCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every recorded run",
	Args:  cobra.NoArgs,
	RunE:  runClearHistory,
}

func init() {
	historyCmd.AddCommand(listHistoryCmd)
	historyCmd.AddCommand(showHistoryCmd)
	historyCmd.AddCommand(clearHistoryCmd)

	showHistoryCmd.Flags().Bool("log", true, "Print the solver log")
	showHistoryCmd.Flags().Bool("analysis", true, "Print the analysis")
	clearHistoryCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

func runListHistory(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	records := a.history.Load()
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "#\tTIME\tSCRIPT\tARGS\tANALYSIS")
	for i, r := range records {
		analysed := "no"
		if strings.TrimSpace(r.Analysis) != "" {
			analysed = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			i,
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			r.Script,
			truncate(r.Args, 40),
			analysed)
	}
	return w.Flush()
}

func runShowHistory(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index %q: %w", args[0], err)
	}
	withLog, _ := cmd.Flags().GetBool("log")
	withAnalysis, _ := cmd.Flags().GetBool("analysis")

	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	rec, ok := a.history.Get(index)
	if !ok {
		return fmt.Errorf("no run at index %d", index)
	}

	out := cmd.OutOrStdout()
	log, report := history.Restore(rec)

	fmt.Fprintf(out, "Run:    %s\n", rec.ID)
	fmt.Fprintf(out, "Time:   %s\n", rec.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Script: %s %s\n", rec.Script, rec.Args)
	if withLog {
		fmt.Fprintln(out, "\n--- Log ---")
		printLog(out, log)
	}
	if withAnalysis {
		fmt.Fprintln(out, "\n--- Analysis ---")
		printLog(out, report)
	}
	return nil
}

func runClearHistory(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")

	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	n := len(a.history.Load())
	if n == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "History is already empty.")
		return nil
	}

	if !yes {
		ok, err := confirm(cmd, fmt.Sprintf("Delete %d recorded runs?", n))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	if err := a.history.Clear(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %d runs\n", n)
	return nil
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	reader := bufio.NewReader(cmd.InOrStdin())
	answer, err := reader.ReadString('\n')
	if err != nil && answer == "" {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
