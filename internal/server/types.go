package server

import (
	"time"

	"github.com/twil3akine/gurobilab/internal/scheduler"
	"github.com/twil3akine/gurobilab/internal/session"
	"github.com/twil3akine/gurobilab/internal/settings"
)

// HistorySummary is a history entry without its log and analysis bodies.
type HistorySummary struct {
	Index       int       `json:"index"`
	ID          string    `json:"id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Script      string    `json:"script"`
	Args        string    `json:"args"`
	LogLines    int       `json:"log_lines"`
	HasAnalysis bool      `json:"has_analysis"`
}

// StartRequest is the body of POST /api/session/start.
type StartRequest struct {
	Script string `json:"script"`
	Args   string `json:"args"`
	Focus  string `json:"focus,omitempty"`
}

// FocusRequest is the body of PUT /api/session/focus.
type FocusRequest struct {
	Focus string `json:"focus"`
}

// SettingRequest is the body of PUT /api/settings/{key}.
type SettingRequest struct {
	Value string `json:"value"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Session string `json:"session"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// DashboardData feeds the dashboard template.
type DashboardData struct {
	Title     string
	Version   string
	Uptime    string
	Session   session.Snapshot
	Busy      bool
	Chart     Chart
	History   []HistorySummary
	Schedules []scheduler.Stats
	Settings  settings.Settings
	Flash     string
}
