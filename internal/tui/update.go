package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/twil3akine/gurobilab/internal/session"
)

// Update handles incoming messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case eventsMsg:
		if !msg.ok {
			return m, nil
		}
		m.refresh()
		return m, tea.Batch(waitForEvents(m.events), m.startSpinner())

	case actionDoneMsg:
		if msg.err != nil {
			m.errorMessage = describe(msg.err)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.snap.Status.Busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case error:
		m.errorMessage = msg.Error()
		return m, nil
	}

	return m, nil
}

func (m *Model) startSpinner() tea.Cmd {
	if m.spinning || !m.snap.Status.Busy() {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

// handleKeyPress processes keyboard input.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		if m.snap.Status == session.StatusRunning {
			_ = m.session.Cancel()
		}
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewModeHistory:
		return m.handleHistoryKey(msg)
	case ViewModeConfirmClear:
		return m.handleConfirmKey(msg)
	}

	m.errorMessage = ""
	switch {
	case key.Matches(msg, m.keys.Run):
		m.session.SetFocus(m.value(fieldFocus))
		if err := m.session.Start(m.ctx, m.value(fieldScript), m.value(fieldArgs)); err != nil {
			m.errorMessage = describe(err)
		}
		m.refresh()
		return m, m.startSpinner()

	case key.Matches(msg, m.keys.Cancel):
		if err := m.session.Cancel(); err != nil {
			m.errorMessage = describe(err)
		}
		return m, nil

	case key.Matches(msg, m.keys.Ask):
		m.session.SetFocus(m.value(fieldFocus))
		return m, m.runAction("analyze", m.session.AskAI)

	case key.Matches(msg, m.keys.Preview):
		m.session.SetFocus(m.value(fieldFocus))
		return m, m.runAction("preview", m.session.TogglePreview)

	case key.Matches(msg, m.keys.History):
		m.records = m.history.Load()
		m.cursor = 0
		m.viewMode = ViewModeHistory
		return m, nil

	case key.Matches(msg, m.keys.NextField):
		m.focusField((m.field + 1) % fieldCount)
		return m, nil

	case key.Matches(msg, m.keys.PrevField):
		m.focusField((m.field + fieldCount - 1) % fieldCount)
		return m, nil

	case msg.Type == tea.KeyPgUp, msg.Type == tea.KeyPgDown:
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.inputs[m.field], cmd = m.inputs[m.field].Update(msg)
	return m, cmd
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.viewMode = ViewModeMain
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.records)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Restore):
		if m.cursor < len(m.records) {
			rec := m.records[m.cursor]
			if err := m.session.Restore(rec); err != nil {
				m.errorMessage = describe(err)
			} else {
				m.inputs[fieldScript].SetValue(rec.Script)
				m.inputs[fieldArgs].SetValue(rec.Args)
			}
			m.refresh()
			m.logView.GotoTop()
		}
		m.viewMode = ViewModeMain
	case key.Matches(msg, m.keys.Clear):
		if len(m.records) > 0 {
			m.viewMode = ViewModeConfirmClear
		}
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Yes):
		if err := m.history.Clear(); err != nil {
			m.errorMessage = describe(err)
		}
		m.records = m.history.Load()
		m.cursor = 0
		m.viewMode = ViewModeHistory
	case key.Matches(msg, m.keys.No):
		m.viewMode = ViewModeHistory
	}
	return m, nil
}

func (m *Model) focusField(i int) {
	m.inputs[m.field].Blur()
	m.field = i
	m.inputs[m.field].Focus()
}

// runAction runs a blocking session call off the event loop.
func (m Model) runAction(name string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: name, err: fn(ctx)}
	}
}

// describe turns session rejections into status-line text.
func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrNoScript):
		return session.MsgNoScript
	case errors.Is(err, session.ErrEmptyLog):
		return "Nothing to analyse yet"
	case errors.Is(err, session.ErrAlreadyRunning), errors.Is(err, session.ErrBusy):
		return "Busy: wait for the current run or analysis"
	default:
		return err.Error()
	}
}

func (m *Model) resize() {
	inner := m.width - 4
	if inner < 20 {
		inner = 20
	}
	for i := range m.inputs {
		m.inputs[i].Width = inner - len(m.inputs[i].Prompt) - 2
	}

	// header, inputs, sparkline, status and help take roughly 12 rows.
	free := m.height - 12
	if free < 8 {
		free = 8
	}
	m.logView.Width = inner
	m.logView.Height = free * 3 / 5
	m.report.Width = inner
	m.report.Height = free - m.logView.Height
	m.help.Width = m.width
}
