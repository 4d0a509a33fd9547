package config

// Config is the top-level gurobilab configuration.
type Config struct {
	Solver    Solver     `yaml:"solver"`
	Analysis  Analysis   `yaml:"analysis"`
	Store     Store      `yaml:"store"`
	Logging   Logging    `yaml:"logging"`
	Server    Server     `yaml:"server"`
	Schedules []Schedule `yaml:"schedules,omitempty"`
}

// Solver controls how solver scripts are launched.
type Solver struct {
	CommandPrefix string            `yaml:"command_prefix"` // e.g. "uv run python -u"
	Workdir       string            `yaml:"workdir"`        // working directory for runs
	Env           map[string]string `yaml:"env,omitempty"`  // extra environment variables
	LogFilters    []string          `yaml:"log_filters"`    // lines containing these are dropped from the final log
	StopPattern   string            `yaml:"stop_pattern"`   // regexp ending `watch` mode
}

// Analysis configures the reasoning service.
type Analysis struct {
	Endpoint    string `yaml:"endpoint"`
	Model       string `yaml:"model"`
	AutoAnalyze *bool  `yaml:"auto_analyze"` // nil means true
	TimeoutSec  int    `yaml:"timeout_sec"`
	MaxLogBytes int    `yaml:"max_log_bytes"`
	Focus       string `yaml:"focus,omitempty"` // default focus point
}

// Store configuration for settings and history persistence.
type Store struct {
	Driver string `yaml:"driver"` // "bbolt", "json" or "memory"
	Path   string `yaml:"path"`
}

// Logging configures the slog handler.
type Logging struct {
	Format string `yaml:"format"` // "json" or "text"
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Output string `yaml:"output"` // "stderr", "stdout", "discard" or a file path
}

// Server configures the HTTP dashboard.
type Server struct {
	Addr string `yaml:"addr"`
}

// Schedule runs a solver script periodically while `serve` is up.
type Schedule struct {
	ID       string `yaml:"id"`
	Schedule string `yaml:"schedule"` // cron expression, descriptor or "every 30m"
	Script   string `yaml:"script"`
	Args     string `yaml:"args,omitempty"`
	Focus    string `yaml:"focus,omitempty"`
}

// AutoAnalyzeEnabled resolves the optional flag.
func (a Analysis) AutoAnalyzeEnabled() bool {
	return a.AutoAnalyze == nil || *a.AutoAnalyze
}
