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

// SaveConfig writes a Config to a YAML file.
// It performs an atomic write by writing to a temporary file first,
// then renaming it to the target path.
func SaveConfig(cfg *Config, path string) error {
	if err := validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Errors returned by the schedule editors.
var (
	ErrDuplicateSchedule = errors.New("schedule ID already exists")
	ErrScheduleNotFound  = errors.New("schedule not found")
)

var scheduleIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// AddSchedule checks s and appends it to the config file, creating the file
// with defaults when it does not exist. Surrounding blanks are trimmed.
func AddSchedule(configPath string, s Schedule) error {
	s.ID = strings.TrimSpace(s.ID)
	s.Schedule = strings.TrimSpace(s.Schedule)
	s.Script = strings.TrimSpace(s.Script)
	s.Args = strings.TrimSpace(s.Args)

	if !scheduleIDPattern.MatchString(s.ID) {
		return fmt.Errorf("invalid schedule ID %q: use letters, digits, '-', '_' or '.'", s.ID)
	}
	if s.Script == "" {
		return fmt.Errorf("schedule %s: script is required", s.ID)
	}
	if err := ValidateSchedule(s.Schedule); err != nil {
		return fmt.Errorf("schedule %s: %w", s.ID, err)
	}

	return editSchedules(configPath, true, func(list []Schedule) ([]Schedule, error) {
		if indexOfSchedule(list, s.ID) >= 0 {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSchedule, s.ID)
		}
		return append(list, s), nil
	})
}

// RemoveSchedule drops the schedule with the given ID from the config file.
func RemoveSchedule(configPath string, id string) error {
	return editSchedules(configPath, false, func(list []Schedule) ([]Schedule, error) {
		i := indexOfSchedule(list, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrScheduleNotFound, id)
		}
		return append(list[:i:i], list[i+1:]...), nil
	})
}

// editSchedules loads configPath, applies edit to its schedules and saves
// the result. With create set a missing file starts from the defaults.
func editSchedules(configPath string, create bool, edit func([]Schedule) ([]Schedule, error)) error {
	cfg, err := LoadConfig(configPath)
	switch {
	case err == nil:
	case create && errors.Is(err, os.ErrNotExist):
		cfg = NewDefaultConfig()
	default:
		return fmt.Errorf("failed to load config: %w", err)
	}

	list, err := edit(cfg.Schedules)
	if err != nil {
		return err
	}
	cfg.Schedules = list

	if err := SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func indexOfSchedule(list []Schedule, id string) int {
	for i, s := range list {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// NewDefaultConfig creates a new Config with every default applied.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
