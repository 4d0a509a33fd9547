package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/twil3akine/gurobilab/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [script] [-- script-args...]",
	Short: "Run solver scripts from an interactive terminal UI",
	Long: `Start the interactive terminal UI.

Enter a script, its arguments and an optional analysis focus, then start
the run. The log streams into the upper pane with the gap sparkline beside
the status bar; the AI review appears below once the run ends.

Keys:
  ctrl+r        - Run the script
  ctrl+k        - Cancel the running script
  ctrl+a        - Ask the AI about the current log
  ctrl+p        - Toggle the prompt preview
  ctrl+o        - Browse the history (enter restores, d clears)
  tab/shift+tab - Move between inputs
  ctrl+c        - Quit

Logs written to stderr are discarded while the UI is up; set
logging.output to a file to keep them.

Example:
  gurobilab tui model.py -- --time-limit 60`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().String("focus", "", "Initial analysis focus")
}

func runTUI(cmd *cobra.Command, args []string) error {
	focus, _ := cmd.Flags().GetString("focus")

	a, err := openApp(cmd, appOptions{quietStderr: true})
	if err != nil {
		return err
	}
	defer a.Close()

	orch := a.newSession(a.runner(), true)
	if focus == "" {
		focus = a.cfg.Analysis.Focus
	}

	opts := tui.Options{Focus: focus, Logger: logger}
	if len(args) > 0 {
		opts.Script = args[0]
		opts.Args = strings.Join(args[1:], " ")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := tui.New(ctx, orch, a.history, opts)
	defer m.Close()

	logger.Info("starting TUI")
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	// Quitting cancels a running solve; let it settle before the store closes.
	select {
	case <-orch.Done():
	case <-time.After(5 * time.Second):
		logger.Warn("run still settling at exit")
	}

	return nil
}
