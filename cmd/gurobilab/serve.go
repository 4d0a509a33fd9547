package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/twil3akine/gurobilab/internal/scheduler"
	"github.com/twil3akine/gurobilab/internal/server"
	"github.com/twil3akine/gurobilab/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web dashboard and run scheduled solves",
	Long: `Start the HTTP dashboard and JSON API over a single solver session.

Runs configured under "schedules" are started by the scheduler while the
server is up. A scheduled run is skipped when the session is already busy.

Example:
  gurobilab serve --config ./gurobilab.yaml --addr 127.0.0.1:9090`,
	RunE: runServer,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "", "HTTP server address (default: server.addr from the config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	logger.Info("starting gurobilab in serve mode",
		"addr", addr,
		"schedules", len(a.cfg.Schedules),
		"store_driver", a.cfg.Store.Driver)

	orch := a.newSession(a.runner(), true)
	ctx := setupSignalHandler()

	sched := scheduler.New(ctx, orch, isBusy, logger)
	for _, s := range a.cfg.Schedules {
		if err := sched.Add(s); err != nil {
			return fmt.Errorf("failed to add schedule %s: %w", s.ID, err)
		}
	}

	srv := server.New(addr, orch, a.history, a.settings, sched, logger)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sched.Start()
		<-gCtx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sched.Stop(stopCtx); err != nil {
			logger.Error("error stopping scheduler", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := srv.Start(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	logger.Info("gurobilab serve mode started", "dashboard_url", fmt.Sprintf("http://%s/", addr))

	if err := g.Wait(); err != nil {
		return err
	}

	// A solve started from the dashboard may still be running.
	if orch.Snapshot().Status == session.StatusRunning {
		if err := orch.Cancel(); err != nil {
			logger.Warn("failed to cancel run", "error", err)
		}
		select {
		case <-orch.Done():
		case <-time.After(5 * time.Second):
		}
	}
	orch.Flush()

	logger.Info("gurobilab stopped")
	return nil
}

// isBusy reports whether a Start error means the session already holds a
// run or analysis.
func isBusy(err error) bool {
	return errors.Is(err, session.ErrAlreadyRunning) || errors.Is(err, session.ErrBusy)
}
