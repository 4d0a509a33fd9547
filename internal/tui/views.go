package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/twil3akine/gurobilab/internal/session"
)

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	switch m.viewMode {
	case ViewModeHistory, ViewModeConfirmClear:
		return m.renderHistory()
	}

	sections := []string{
		m.renderHeader(),
		m.renderInputs(),
		m.renderPanel("Log", m.logView.View()),
		m.renderGap(),
		m.renderPanel(m.reportTitle(), m.report.View()),
		m.renderStatusLine(),
		m.help.View(mainHelp{m.keys}),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := "gurobilab"
	if m.snap.Script != "" {
		title += "  " + hintStyle.Render(m.snap.Script+" "+m.snap.Args)
	}
	return headerStyle.Render(title)
}

func (m Model) renderInputs() string {
	rows := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		rows[i] = in.View()
	}
	return panelStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) renderPanel(title, body string) string {
	return panelStyle.Render(panelTitleStyle.Render(title) + "\n" + body)
}

func (m Model) reportTitle() string {
	if m.snap.Status == session.StatusPreviewing {
		return "Prompt preview"
	}
	return "Analysis"
}

// renderGap draws the gap series as a sparkline with the latest reading.
func (m Model) renderGap() string {
	n := len(m.snap.Samples)
	if n == 0 {
		return subtitleStyle.Render("gap: no readings yet")
	}

	values := make([]float64, n)
	for i, s := range m.snap.Samples {
		values[i] = s.Value
	}

	width := m.width - 30
	if width < 10 {
		width = 10
	}
	last := m.snap.Samples[n-1].Value
	return subtitleStyle.Render(fmt.Sprintf("gap %s %.4g%% (%d samples)",
		gapStyle.Render(sparkline(values, width)), last, n))
}

func (m Model) renderStatusLine() string {
	var icon string
	style := statusIdleStyle
	switch {
	case m.snap.Status.Busy():
		icon = m.spinner.View()
		style = statusRunningStyle
	case m.snap.Status == session.StatusErrored:
		icon = iconError
		style = statusErrorStyle
	case m.snap.Message == session.MsgDone || m.snap.Message == session.MsgAnalyzed:
		icon = iconSuccess
		style = statusSuccessStyle
	default:
		icon = iconIdle
	}

	line := style.Render(icon + " " + m.snap.StatusText)
	if m.snap.Message != "" {
		line += "  " + hintStyle.Render(m.snap.Message)
	}
	if m.snap.Status == session.StatusRunning && !m.snap.StartedAt.IsZero() {
		line += "  " + hintStyle.Render(formatDuration(time.Since(m.snap.StartedAt)))
	}
	if m.errorMessage != "" {
		line += "  " + warningStyle.Render(m.errorMessage)
	}
	return subtitleStyle.Render(line)
}

func (m Model) renderHistory() string {
	var rows []string
	rows = append(rows, panelTitleStyle.Render(fmt.Sprintf("History (%d)", len(m.records))), "")

	if len(m.records) == 0 {
		rows = append(rows, subtitleStyle.Render("No runs recorded yet"))
	}
	for i, rec := range m.records {
		cursor := " "
		style := lipgloss.NewStyle()
		if i == m.cursor {
			cursor = iconArrow
			style = cursorStyle
		}
		analysed := ""
		if strings.TrimSpace(rec.Analysis) != "" {
			analysed = " " + iconSuccess
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s %s  %-24s %s%s",
			cursor,
			rec.Timestamp.Local().Format("2006-01-02 15:04"),
			truncate(rec.Script, 24),
			truncate(rec.Args, 30),
			analysed,
		)))
	}

	if m.viewMode == ViewModeConfirmClear {
		rows = append(rows, "", warningStyle.Render("Delete all history? (y/n)"))
	}
	if m.errorMessage != "" {
		rows = append(rows, "", warningStyle.Render(m.errorMessage))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		panelStyle.Render(strings.Join(rows, "\n")),
		m.help.View(historyHelp{m.keys}),
	)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

// truncate shortens s to at most maxLen runes.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
