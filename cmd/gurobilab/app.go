package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"github.com/twil3akine/gurobilab/internal/analysis"
	"github.com/twil3akine/gurobilab/internal/config"
	"github.com/twil3akine/gurobilab/internal/history"
	"github.com/twil3akine/gurobilab/internal/logging"
	"github.com/twil3akine/gurobilab/internal/process"
	"github.com/twil3akine/gurobilab/internal/session"
	"github.com/twil3akine/gurobilab/internal/settings"
	"github.com/twil3akine/gurobilab/internal/store"
)

// app bundles the services every front end needs.
type app struct {
	cfg        *config.Config
	configPath string
	kv         store.Store
	settings   *settings.Manager
	history    *history.Store
	analyzer   *analysis.Client
	closeLog   func() error
}

// appOptions adjusts openApp for a particular front end.
type appOptions struct {
	// quietStderr sends logs nowhere when they would go to stderr, so a
	// full-screen UI is not scribbled over.
	quietStderr bool
}

// openApp loads the configuration, switches the global logger to it and
// opens the store.
func openApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = "debug"
	}
	output := cfg.Logging.Output
	if opts.quietStderr && output == "stderr" {
		output = "discard"
	}
	appLogger, closeLog, err := logging.NewFromConfig(cfg.Logging.Format, level, output)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = appLogger
	slog.SetDefault(appLogger)

	kv, err := store.NewStore(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	logger.Debug("store initialized", "driver", cfg.Store.Driver, "path", cfg.Store.Path)

	defaults := settings.Settings{
		Model:         cfg.Analysis.Model,
		CommandPrefix: cfg.Solver.CommandPrefix,
	}

	return &app{
		cfg:        cfg,
		configPath: configPath,
		kv:         kv,
		settings:   settings.NewManager(kv, defaults, logger),
		history:    history.New(kv, logger),
		analyzer: analysis.NewClient(
			analysis.WithEndpoint(cfg.Analysis.Endpoint),
			analysis.WithMaxLogBytes(cfg.Analysis.MaxLogBytes),
			analysis.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Analysis.TimeoutSec) * time.Second}),
			analysis.WithLogger(logger),
		),
		closeLog: closeLog,
	}, nil
}

// Close releases the store and the log file.
func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		logger.Error("failed to close store", "error", err)
	}
	if err := a.closeLog(); err != nil {
		logger.Error("failed to close log output", "error", err)
	}
}

// runner returns a launcher for solver scripts.
func (a *app) runner() *process.Runner {
	return process.NewRunner(logger, process.WithFilters(a.cfg.Solver.LogFilters))
}

// tailer returns a launcher that follows log files.
func (a *app) tailer() (*process.Tailer, error) {
	opts := []process.TailerOption{}
	if a.cfg.Solver.StopPattern != "" {
		re, err := regexp.Compile(a.cfg.Solver.StopPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid solver.stop_pattern: %w", err)
		}
		opts = append(opts, process.WithStopPattern(re))
	}
	return process.NewTailer(logger, opts...), nil
}

// newSession builds an orchestrator over launcher. autoAnalyze is ANDed
// with the configured flag.
func (a *app) newSession(launcher session.Launcher, autoAnalyze bool) *session.Orchestrator {
	orch := session.New(launcher, a.analyzer, a.history, a.settings, session.Options{
		AutoAnalyze: autoAnalyze && a.cfg.Analysis.AutoAnalyzeEnabled(),
		Workdir:     a.cfg.Solver.Workdir,
		Env:         a.cfg.Solver.Env,
		Logger:      logger,
	})
	if a.cfg.Analysis.Focus != "" {
		orch.SetFocus(a.cfg.Analysis.Focus)
	}
	return orch
}
