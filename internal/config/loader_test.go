package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		wantError string
		validate  func(*testing.T, *Config)
	}{
		{
			name: "full config",
			yaml: `
solver:
  command_prefix: "python3 -u"
  workdir: "/srv/models"
  env:
    GRB_LICENSE_FILE: /opt/gurobi/gurobi.lic
  log_filters: ["Set parameter"]
analysis:
  model: "gemini-2.5-pro"
  auto_analyze: false
  timeout_sec: 30
store:
  driver: "json"
  path: "./settings.json"
logging:
  format: text
  level: debug
schedules:
  - id: nightly
    schedule: "@daily"
    script: ./model.py
    args: "--time-limit 600"
`,
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Solver.CommandPrefix != "python3 -u" {
					t.Errorf("CommandPrefix = %q", cfg.Solver.CommandPrefix)
				}
				if cfg.Solver.Env["GRB_LICENSE_FILE"] != "/opt/gurobi/gurobi.lic" {
					t.Errorf("Env = %v", cfg.Solver.Env)
				}
				if len(cfg.Solver.LogFilters) != 1 {
					t.Errorf("LogFilters = %v, want the configured list only", cfg.Solver.LogFilters)
				}
				if cfg.Analysis.AutoAnalyzeEnabled() {
					t.Error("auto_analyze: false was not honoured")
				}
				if cfg.Analysis.Model != "gemini-2.5-pro" || cfg.Analysis.TimeoutSec != 30 {
					t.Errorf("Analysis = %+v", cfg.Analysis)
				}
				if cfg.Analysis.MaxLogBytes != 12000 {
					t.Errorf("MaxLogBytes = %d, want default 12000", cfg.Analysis.MaxLogBytes)
				}
				if cfg.Store.Driver != "json" || cfg.Store.Path != "./settings.json" {
					t.Errorf("Store = %+v", cfg.Store)
				}
				if len(cfg.Schedules) != 1 || cfg.Schedules[0].Args != "--time-limit 600" {
					t.Errorf("Schedules = %+v", cfg.Schedules)
				}
			},
		},
		{
			name: "defaults applied",
			yaml: "{}\n",
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Solver.CommandPrefix != "uv run python -u" {
					t.Errorf("expected default prefix, got %q", cfg.Solver.CommandPrefix)
				}
				if cfg.Solver.Workdir != "." {
					t.Errorf("expected default workdir '.', got %q", cfg.Solver.Workdir)
				}
				if len(cfg.Solver.LogFilters) != 6 {
					t.Errorf("expected 6 default log filters, got %d", len(cfg.Solver.LogFilters))
				}
				if !cfg.Analysis.AutoAnalyzeEnabled() {
					t.Error("auto analyze should default to true")
				}
				if cfg.Analysis.Model != "gemini-2.5-flash" {
					t.Errorf("expected default model, got %q", cfg.Analysis.Model)
				}
				if cfg.Store.Driver != "bbolt" || cfg.Store.Path == "" {
					t.Errorf("expected default bbolt store, got %+v", cfg.Store)
				}
				if cfg.Logging.Format != "json" || cfg.Logging.Level != "info" || cfg.Logging.Output != "stderr" {
					t.Errorf("Logging = %+v", cfg.Logging)
				}
				if cfg.Server.Addr != "127.0.0.1:8080" {
					t.Errorf("Server.Addr = %q", cfg.Server.Addr)
				}
			},
		},
		{
			name: "empty log filter list kept",
			yaml: "solver:\n  log_filters: []\n",
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Solver.LogFilters == nil || len(cfg.Solver.LogFilters) != 0 {
					t.Errorf("LogFilters = %#v, want empty list", cfg.Solver.LogFilters)
				}
			},
		},
		{
			name: "memory store needs no path",
			yaml: "store:\n  driver: memory\n",
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Store.Path != "" {
					t.Errorf("Store.Path = %q, want empty", cfg.Store.Path)
				}
			},
		},
		{
			name:      "invalid driver",
			yaml:      "store:\n  driver: sqlite\n",
			wantError: "invalid store driver",
		},
		{
			name:      "invalid log format",
			yaml:      "logging:\n  format: xml\n",
			wantError: "invalid logging format",
		},
		{
			name:      "invalid stop pattern",
			yaml:      "solver:\n  stop_pattern: \"(\"\n",
			wantError: "stop_pattern",
		},
		{
			name:      "negative timeout",
			yaml:      "analysis:\n  timeout_sec: -1\n",
			wantError: "timeout_sec",
		},
		{
			name: "schedule missing script",
			yaml: `
schedules:
  - id: a
    schedule: "@hourly"
`,
			wantError: "missing a script",
		},
		{
			name: "duplicate schedule",
			yaml: `
schedules:
  - id: a
    schedule: "@hourly"
    script: m.py
  - id: a
    schedule: "@daily"
    script: m.py
`,
			wantError: "duplicate schedule ID",
		},
		{
			name: "bad schedule expression",
			yaml: `
schedules:
  - id: a
    schedule: "every fortnight"
    script: m.py
`,
			wantError: "invalid schedule",
		},
		{
			name:      "malformed yaml",
			yaml:      "solver: [",
			wantError: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "gurobilab.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			cfg, err := LoadConfig(path)
			if tt.wantError != "" {
				if err == nil {
					t.Fatalf("LoadConfig() expected error containing %q", tt.wantError)
				}
				if !strings.Contains(err.Error(), tt.wantError) {
					t.Errorf("LoadConfig() error = %v, want %q", err, tt.wantError)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			tt.validate(t, cfg)
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Solver.CommandPrefix != "uv run python -u" {
		t.Errorf("LoadOrDefault() did not return defaults: %+v", cfg.Solver)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("store:\n  driver: nope\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadOrDefault(bad); err == nil {
		t.Error("LoadOrDefault() should surface validation errors")
	}
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		wantErr  bool
	}{
		{"0 2 * * *", false},
		{"*/5 * * * * *", false},
		{"@daily", false},
		{"@midnight", false},
		{"@every 30m", false},
		{"every 5m", false},
		{"every 2 hours", false},
		{"Every 10 Seconds", false},
		{"", true},
		{"@sometimes", true},
		{"@every soon", true},
		{"every week", true},
		{"* * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSchedule(%q) error = %v, wantErr %v", tt.schedule, err, tt.wantErr)
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gurobilab.yaml")

	cfg := NewDefaultConfig()
	cfg.Solver.CommandPrefix = "python -u"
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Solver.CommandPrefix != "python -u" {
		t.Errorf("CommandPrefix = %q after round trip", loaded.Solver.CommandPrefix)
	}
}

func TestSaveConfig_RejectsInvalid(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Driver = "sqlite"
	if err := SaveConfig(cfg, filepath.Join(t.TempDir(), "c.yaml")); err == nil {
		t.Error("SaveConfig() should validate before writing")
	}
}

func TestAddRemoveSchedule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gurobilab.yaml")

	s := Schedule{ID: "nightly", Schedule: "@daily", Script: "model.py"}
	if err := AddSchedule(path, s); err != nil {
		t.Fatalf("AddSchedule() on new file error = %v", err)
	}
	if err := AddSchedule(path, s); !errors.Is(err, ErrDuplicateSchedule) {
		t.Errorf("AddSchedule() with duplicate ID error = %v, want ErrDuplicateSchedule", err)
	}
	if err := AddSchedule(path, Schedule{ID: "hourly", Schedule: "every 1h", Script: "quick.py", Args: "-q"}); err != nil {
		t.Fatalf("AddSchedule() error = %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(cfg.Schedules) != 2 {
		t.Fatalf("Schedules = %+v, want 2", cfg.Schedules)
	}

	if err := RemoveSchedule(path, "nightly"); err != nil {
		t.Fatalf("RemoveSchedule() error = %v", err)
	}
	if err := RemoveSchedule(path, "nightly"); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("RemoveSchedule() of a missing ID error = %v, want ErrScheduleNotFound", err)
	}

	cfg, err = LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(cfg.Schedules) != 1 || cfg.Schedules[0].ID != "hourly" {
		t.Errorf("Schedules = %+v", cfg.Schedules)
	}
}

func TestAddSchedule_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		sched     Schedule
		wantError string
	}{
		{name: "blank ID", sched: Schedule{ID: "  ", Schedule: "@daily", Script: "m.py"}, wantError: "invalid schedule ID"},
		{name: "ID with spaces", sched: Schedule{ID: "night run", Schedule: "@daily", Script: "m.py"}, wantError: "invalid schedule ID"},
		{name: "missing script", sched: Schedule{ID: "n", Schedule: "@daily", Script: " "}, wantError: "script is required"},
		{name: "bad interval", sched: Schedule{ID: "n", Schedule: "every 5 fortnights", Script: "m.py"}, wantError: "invalid interval"},
		{name: "bad descriptor", sched: Schedule{ID: "n", Schedule: "@sometimes", Script: "m.py"}, wantError: "schedule n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "gurobilab.yaml")
			err := AddSchedule(path, tt.sched)
			if err == nil || !strings.Contains(err.Error(), tt.wantError) {
				t.Fatalf("AddSchedule() error = %v, want containing %q", err, tt.wantError)
			}
			if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
				t.Errorf("rejected schedule still wrote %s", path)
			}
		})
	}
}

func TestAddSchedule_TrimsFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gurobilab.yaml")
	if err := AddSchedule(path, Schedule{ID: " nightly ", Schedule: " @daily ", Script: " model.py "}); err != nil {
		t.Fatalf("AddSchedule() error = %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if got := cfg.Schedules[0]; got.ID != "nightly" || got.Schedule != "@daily" || got.Script != "model.py" {
		t.Errorf("stored schedule = %+v", got)
	}
}

func TestRemoveSchedule_MissingFile(t *testing.T) {
	if err := RemoveSchedule(filepath.Join(t.TempDir(), "none.yaml"), "x"); err == nil {
		t.Error("RemoveSchedule() on a missing file should fail")
	}
}
