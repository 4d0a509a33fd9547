// Package tui provides the terminal front end for a solver session.
package tui

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/twil3akine/gurobilab/internal/history"
	"github.com/twil3akine/gurobilab/internal/session"
)

// Session is the part of the orchestrator the TUI drives.
type Session interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Event, func())
	Start(ctx context.Context, script, args string) error
	Cancel() error
	AskAI(ctx context.Context) error
	TogglePreview(ctx context.Context) error
	SetFocus(focus string)
	Restore(rec history.Record) error
	Flush()
}

// History lists and clears past runs.
type History interface {
	Load() []history.Record
	Clear() error
}

// ViewMode represents the current view in the TUI.
type ViewMode int

const (
	ViewModeMain ViewMode = iota
	ViewModeHistory
	ViewModeConfirmClear
)

const (
	fieldScript = iota
	fieldArgs
	fieldFocus
	fieldCount
)

// Options seeds the input fields.
type Options struct {
	Script string
	Args   string
	Focus  string
	Logger *slog.Logger
}

// Model holds the state for the TUI.
type Model struct {
	ctx     context.Context
	session Session
	history History
	logger  *slog.Logger
	keys    keyMap

	events      <-chan session.Event
	unsubscribe func()

	inputs   []textinput.Model
	field    int
	logView  viewport.Model
	report   viewport.Model
	spinner  spinner.Model
	help     help.Model
	spinning bool

	snap         session.Snapshot
	viewMode     ViewMode
	records      []history.Record
	cursor       int
	width        int
	height       int
	errorMessage string
	quitting     bool
}

// New creates a TUI model bound to sess. ctx bounds the runs and analyses
// it starts. Call Close once the program exits.
func New(ctx context.Context, sess Session, hist History, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	inputs := make([]textinput.Model, fieldCount)
	for i, f := range []struct{ prompt, placeholder, value string }{
		{"script ", "model.py", opts.Script},
		{"args   ", "--time-limit 60", opts.Args},
		{"focus  ", "point the analysis should examine in depth", opts.Focus},
	} {
		in := textinput.New()
		in.Prompt = f.prompt
		in.Placeholder = f.placeholder
		in.CharLimit = 1024
		in.Width = 60
		in.SetValue(f.value)
		inputs[i] = in
	}
	inputs[fieldScript].Focus()

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = statusRunningStyle

	events, unsubscribe := sess.Subscribe()

	m := Model{
		ctx:         ctx,
		session:     sess,
		history:     hist,
		logger:      opts.Logger,
		keys:        defaultKeyMap(),
		events:      events,
		unsubscribe: unsubscribe,
		inputs:      inputs,
		logView:     viewport.New(80, 12),
		report:      viewport.New(80, 8),
		spinner:     spin,
		help:        help.New(),
	}
	m.refresh()
	return m
}

// Init initializes the model (required by Bubbletea).
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		textinput.Blink,
		waitForEvents(m.events),
	)
}

// Close ends the event subscription and writes any run still waiting for
// its history record.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.session.Flush()
}

// Quitting returns true if the user has requested to quit.
func (m Model) Quitting() bool {
	return m.quitting
}

// eventsMsg carries a batch of session events.
type eventsMsg struct {
	events []session.Event
	ok     bool
}

// actionDoneMsg reports the result of a blocking session call.
type actionDoneMsg struct {
	action string
	err    error
}

// waitForEvents blocks for the next event and drains whatever else is
// already queued.
func waitForEvents(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsMsg{ok: false}
		}
		batch := []session.Event{ev}
		for len(batch) < 64 {
			select {
			case next, ok := <-ch:
				if !ok {
					return eventsMsg{events: batch, ok: true}
				}
				batch = append(batch, next)
			default:
				return eventsMsg{events: batch, ok: true}
			}
		}
		return eventsMsg{events: batch, ok: true}
	}
}

// refresh pulls the authoritative state and updates the panes.
func (m *Model) refresh() {
	atBottom := m.logView.AtBottom()
	m.snap = m.session.Snapshot()

	m.logView.SetContent(m.snap.Log)
	if atBottom || m.snap.Status.Busy() {
		m.logView.GotoBottom()
	}
	m.report.SetContent(m.snap.Analysis)
}

func (m Model) value(field int) string {
	return m.inputs[field].Value()
}
