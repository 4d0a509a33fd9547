package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorSuccess   = lipgloss.Color("#10B981")
	colorError     = lipgloss.Color("#EF4444")
	colorGap       = lipgloss.Color("#F59E0B")
	colorInfo      = lipgloss.Color("#3B82F6")
	colorMuted     = lipgloss.Color("#6B7280")
	colorBorder    = lipgloss.Color("#374151")
	colorHighlight = lipgloss.Color("#8B5CF6")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colorBorder).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHighlight)

	statusRunningStyle = lipgloss.NewStyle().
				Foreground(colorInfo).
				Bold(true)

	statusSuccessStyle = lipgloss.NewStyle().
				Foreground(colorSuccess).
				Bold(true)

	statusErrorStyle = lipgloss.NewStyle().
				Foreground(colorError).
				Bold(true)

	statusIdleStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	gapStyle = lipgloss.NewStyle().
			Foreground(colorGap)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorGap).
			Bold(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconIdle    = "⏸"
	iconArrow   = ">"
)
