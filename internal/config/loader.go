package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory, then in the
// user config directory.
const DefaultFileName = "gurobilab.yaml"

var intervalPattern = regexp.MustCompile(`^every\s+\d+\s*(s|sec|second|seconds|m|min|minute|minutes|h|hour|hours|d|day|days)$`)

// LoadConfig loads and validates a configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads path, or returns the defaults when the file does not
// exist. An empty path tries DefaultPath.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns ./gurobilab.yaml when present, otherwise the file in
// the user config directory.
func DefaultPath() string {
	if _, err := os.Stat(DefaultFileName); err == nil {
		return DefaultFileName
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(dir, "gurobilab", DefaultFileName)
}

// DefaultStorePath is where settings and history live unless configured.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".gurobilab", "settings.db")
	}
	return filepath.Join(home, ".gurobilab", "settings.db")
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Solver.CommandPrefix) == "" {
		cfg.Solver.CommandPrefix = "uv run python -u"
	}
	if cfg.Solver.Workdir == "" {
		cfg.Solver.Workdir = "."
	}
	if cfg.Solver.LogFilters == nil {
		cfg.Solver.LogFilters = defaultLogFilters()
	}
	if cfg.Solver.Env == nil {
		cfg.Solver.Env = make(map[string]string)
	}

	if cfg.Analysis.Endpoint == "" {
		cfg.Analysis.Endpoint = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Analysis.Model == "" {
		cfg.Analysis.Model = "gemini-2.5-flash"
	}
	if cfg.Analysis.TimeoutSec == 0 {
		cfg.Analysis.TimeoutSec = 120
	}
	if cfg.Analysis.MaxLogBytes == 0 {
		cfg.Analysis.MaxLogBytes = 12000
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "bbolt"
	}
	if cfg.Store.Path == "" && cfg.Store.Driver != "memory" {
		cfg.Store.Path = DefaultStorePath()
	}

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8080"
	}
}

func defaultLogFilters() []string {
	return []string{
		"Set parameter",
		"Academic license",
		"Gurobi Optimizer version",
		"CPU model",
		"Thread count",
		"Model fingerprint",
	}
}

// validate checks the configuration for errors and inconsistencies.
func validate(cfg *Config) error {
	validDrivers := map[string]bool{
		"bbolt":  true,
		"json":   true,
		"memory": true,
	}
	if !validDrivers[cfg.Store.Driver] {
		return fmt.Errorf("invalid store driver: %s (must be 'bbolt', 'json', or 'memory')", cfg.Store.Driver)
	}

	if cfg.Analysis.TimeoutSec < 0 {
		return fmt.Errorf("analysis.timeout_sec must be non-negative")
	}
	if cfg.Analysis.MaxLogBytes < 0 {
		return fmt.Errorf("analysis.max_log_bytes must be non-negative")
	}

	if cfg.Solver.StopPattern != "" {
		if _, err := regexp.Compile(cfg.Solver.StopPattern); err != nil {
			return fmt.Errorf("solver.stop_pattern: %w", err)
		}
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (must be 'json' or 'text')", cfg.Logging.Format)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	ids := make(map[string]bool)
	for i, s := range cfg.Schedules {
		if s.ID == "" {
			return fmt.Errorf("schedule at index %d is missing an ID", i)
		}
		if s.Schedule == "" {
			return fmt.Errorf("schedule %s is missing a schedule expression", s.ID)
		}
		if strings.TrimSpace(s.Script) == "" {
			return fmt.Errorf("schedule %s is missing a script", s.ID)
		}
		if ids[s.ID] {
			return fmt.Errorf("duplicate schedule ID: %s", s.ID)
		}
		ids[s.ID] = true

		if err := ValidateSchedule(s.Schedule); err != nil {
			return fmt.Errorf("schedule %s has invalid schedule: %w", s.ID, err)
		}
	}

	return nil
}

// ValidateSchedule checks if a schedule expression is valid.
// Supports cron expressions, @-prefixed shortcuts, @every and "every 5m".
func ValidateSchedule(schedule string) error {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return fmt.Errorf("schedule cannot be empty")
	}

	if strings.HasPrefix(strings.ToLower(schedule), "every ") {
		if !intervalPattern.MatchString(strings.ToLower(schedule)) {
			return fmt.Errorf("invalid interval: %s (must be like 'every 5m')", schedule)
		}
		return nil
	}

	if strings.HasPrefix(schedule, "@") {
		shortcuts := []string{"@annually", "@yearly", "@monthly", "@weekly", "@daily", "@midnight", "@hourly"}
		for _, shortcut := range shortcuts {
			if schedule == shortcut {
				return nil
			}
		}

		if strings.HasPrefix(schedule, "@every ") {
			interval := strings.TrimPrefix(schedule, "@every ")
			if matched, _ := regexp.MatchString(`^\d+[smh]$`, interval); matched {
				return nil
			}
			return fmt.Errorf("invalid @every interval: %s (must be like '5m', '1h', '30s')", interval)
		}

		return fmt.Errorf("unknown schedule shortcut: %s", schedule)
	}

	// robfig/cron does the full parse when the schedule is registered.
	fields := strings.Fields(schedule)
	if len(fields) < 5 || len(fields) > 6 {
		return fmt.Errorf("cron expression must have 5 or 6 fields, got %d", len(fields))
	}

	return nil
}
