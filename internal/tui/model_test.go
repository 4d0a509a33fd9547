package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/twil3akine/gurobilab/internal/history"
	"github.com/twil3akine/gurobilab/internal/progress"
	"github.com/twil3akine/gurobilab/internal/session"
)

type fakeSession struct {
	mu       sync.Mutex
	snap     session.Snapshot
	startErr error
	starts   []string
	focus    string
	asked    int
	restored []history.Record
	cancels  int
	flushed  int
	events   chan session.Event
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan session.Event, 16)}
}

func (f *fakeSession) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.snap
	s.StatusText = s.Status.String()
	return s
}

func (f *fakeSession) Subscribe() (<-chan session.Event, func()) { return f.events, func() {} }

func (f *fakeSession) Start(_ context.Context, script, args string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts = append(f.starts, script+"|"+args)
	f.snap.Status = session.StatusRunning
	f.snap.Script = script
	return nil
}

func (f *fakeSession) Cancel() error {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
	return nil
}

func (f *fakeSession) AskAI(context.Context) error {
	f.mu.Lock()
	f.asked++
	f.snap.Analysis = "looks healthy"
	f.mu.Unlock()
	return nil
}

func (f *fakeSession) TogglePreview(context.Context) error { return session.ErrEmptyLog }

func (f *fakeSession) SetFocus(focus string) {
	f.mu.Lock()
	f.focus = focus
	f.mu.Unlock()
}

func (f *fakeSession) Restore(rec history.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restored = append(f.restored, rec)
	f.snap.Log = rec.Log
	f.snap.Analysis = rec.Analysis
	return nil
}

func (f *fakeSession) Flush() {
	f.mu.Lock()
	f.flushed++
	f.mu.Unlock()
}

type fakeHistory struct {
	records []history.Record
	cleared bool
}

func (h *fakeHistory) Load() []history.Record { return h.records }

func (h *fakeHistory) Clear() error {
	h.records = nil
	h.cleared = true
	return nil
}

func newTestModel(t *testing.T, opts Options) (Model, *fakeSession, *fakeHistory) {
	t.Helper()
	sess := newFakeSession()
	hist := &fakeHistory{records: []history.Record{
		{ID: "b", Timestamp: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC), Script: "big.py", Args: "-t 60", Log: "gap 2%\n", Analysis: "ok"},
		{ID: "a", Timestamp: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), Script: "small.py", Log: "gap 9%\n"},
	}}
	m := New(context.Background(), sess, hist, opts)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model), sess, hist
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(Model)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestRunStartsSession(t *testing.T) {
	m, sess, _ := newTestModel(t, Options{Script: "model.py", Args: "--seed 1", Focus: "cuts"})

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})

	if len(sess.starts) != 1 || sess.starts[0] != "model.py|--seed 1" {
		t.Fatalf("starts = %v", sess.starts)
	}
	if sess.focus != "cuts" {
		t.Errorf("focus = %q, want cuts", sess.focus)
	}
	if m.snap.Status != session.StatusRunning {
		t.Errorf("status = %v, want running", m.snap.Status)
	}
	if !strings.Contains(m.View(), "Running...") {
		t.Error("view does not show the running status")
	}
}

func TestRunRejectionShowsMessage(t *testing.T) {
	m, sess, _ := newTestModel(t, Options{})
	sess.startErr = session.ErrNoScript

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if m.errorMessage != session.MsgNoScript {
		t.Errorf("errorMessage = %q, want %q", m.errorMessage, session.MsgNoScript)
	}
}

func TestTypingFillsFocusedField(t *testing.T) {
	m, sess, _ := newTestModel(t, Options{})

	m, _ = press(t, m, runes("m"), runes("."), runes("p"), runes("y"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab}, runes("-"), runes("v"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})

	if len(sess.starts) != 1 || sess.starts[0] != "m.py|-v" {
		t.Errorf("starts = %v, want [m.py|-v]", sess.starts)
	}
}

func TestEventsRefreshPanes(t *testing.T) {
	m, sess, _ := newTestModel(t, Options{})

	sess.mu.Lock()
	sess.snap.Status = session.StatusRunning
	sess.snap.Log = "Optimize a model\ngap 12%\n"
	sess.snap.Samples = []progress.Sample{{Index: 0, Value: 12}}
	sess.mu.Unlock()

	next, cmd := m.Update(eventsMsg{events: []session.Event{{Kind: session.EventLine}}, ok: true})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected a follow-up command to keep listening")
	}
	if !strings.Contains(m.logView.View(), "gap 12%") {
		t.Errorf("log pane = %q", m.logView.View())
	}
	if !strings.Contains(m.View(), "1 samples") {
		t.Error("view does not show the gap sparkline")
	}
}

func TestWaitForEventsBatches(t *testing.T) {
	ch := make(chan session.Event, 4)
	ch <- session.Event{Kind: session.EventLine, Line: "a"}
	ch <- session.Event{Kind: session.EventLine, Line: "b"}

	msg := waitForEvents(ch)().(eventsMsg)
	if !msg.ok || len(msg.events) != 2 {
		t.Errorf("msg = %+v, want two events", msg)
	}

	close(ch)
	if msg := waitForEvents(ch)().(eventsMsg); msg.ok {
		t.Error("closed channel should report ok=false")
	}
}

func TestAskRunsInBackground(t *testing.T) {
	m, sess, _ := newTestModel(t, Options{Focus: "presolve"})

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlA})
	if cmd == nil {
		t.Fatal("ask should return a command")
	}
	msg := cmd()
	next, _ := m.Update(msg)
	m = next.(Model)

	if sess.asked != 1 || sess.focus != "presolve" {
		t.Errorf("asked = %d focus = %q", sess.asked, sess.focus)
	}
	if !strings.Contains(m.report.View(), "looks healthy") {
		t.Errorf("analysis pane = %q", m.report.View())
	}
}

func TestPreviewErrorShown(t *testing.T) {
	m, _, _ := newTestModel(t, Options{})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlP})
	next, _ := m.Update(cmd())
	m = next.(Model)
	if m.errorMessage != "Nothing to analyse yet" {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
}

func TestHistoryRestore(t *testing.T) {
	m, sess, _ := newTestModel(t, Options{})

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if m.viewMode != ViewModeHistory {
		t.Fatalf("viewMode = %v, want history", m.viewMode)
	}
	if !strings.Contains(m.View(), "big.py") {
		t.Error("history view does not list records")
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	if m.viewMode != ViewModeMain {
		t.Errorf("viewMode = %v, want main after restore", m.viewMode)
	}
	if len(sess.restored) != 1 || sess.restored[0].ID != "a" {
		t.Fatalf("restored = %+v", sess.restored)
	}
	if got := m.value(fieldScript); got != "small.py" {
		t.Errorf("script field = %q, want small.py", got)
	}
}

func TestClearHistoryConfirm(t *testing.T) {
	m, _, hist := newTestModel(t, Options{})

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlO}, runes("d"))
	if m.viewMode != ViewModeConfirmClear {
		t.Fatalf("viewMode = %v, want confirm", m.viewMode)
	}
	m, _ = press(t, m, runes("n"))
	if hist.cleared || m.viewMode != ViewModeHistory {
		t.Fatalf("declining must keep history (cleared=%v mode=%v)", hist.cleared, m.viewMode)
	}

	m, _ = press(t, m, runes("d"), runes("y"))
	if !hist.cleared {
		t.Error("history not cleared after confirmation")
	}
	if len(m.records) != 0 {
		t.Errorf("records = %d, want 0", len(m.records))
	}
}

func TestQuitCancelsRunningSolve(t *testing.T) {
	m, sess, _ := newTestModel(t, Options{Script: "model.py"})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})

	if !m.Quitting() || cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if sess.cancels != 1 {
		t.Errorf("cancels = %d, want 1", sess.cancels)
	}

	m.Close()
	if sess.flushed != 1 {
		t.Errorf("flushed = %d, want 1", sess.flushed)
	}
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		width  int
		want   string
	}{
		{name: "empty", values: nil, width: 10, want: ""},
		{name: "flat", values: []float64{5, 5, 5}, width: 10, want: "▄▄▄"},
		{name: "decades", values: []float64{100, 1, progress.Floor}, width: 10, want: "█▆▁"},
		{name: "keeps latest", values: []float64{1000, 10, 1}, width: 2, want: "█▁"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sparkline(tt.values, tt.width); got != tt.want {
				t.Errorf("sparkline(%v, %d) = %q, want %q", tt.values, tt.width, got, tt.want)
			}
		})
	}
}
