// Package session drives one solver session: it launches the run, streams
// its output into the log and gap series, asks for an analysis when the run
// ends and records finished runs in the history.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/twil3akine/gurobilab/internal/analysis"
	"github.com/twil3akine/gurobilab/internal/history"
	"github.com/twil3akine/gurobilab/internal/process"
	"github.com/twil3akine/gurobilab/internal/progress"
	"github.com/twil3akine/gurobilab/internal/settings"
)

// Rejections returned by the orchestrator. Collaborator failures are never
// returned; they end up in the visible log or analysis text.
var (
	ErrNoScript       = errors.New("no file selected")
	ErrAlreadyRunning = errors.New("a run is already in progress")
	ErrBusy           = errors.New("session is busy")
	ErrEmptyLog       = errors.New("log is empty")
)

// Status messages shown next to the status label.
const (
	MsgNoScript     = "No File Selected"
	MsgCancelled    = "Cancelled"
	MsgDone         = "Done"
	MsgAnalyzed     = "Analysis complete"
	MsgRunFailed    = "Run failed"
	MsgAnalyzeError = "Analysis failed"
)

// CancelMarker is appended to the log when the user cancels a run.
const CancelMarker = "[Cancelled by user]"

// Launcher starts and kills solver runs.
type Launcher interface {
	Launch(ctx context.Context, cmd process.Command) (process.Handle, error)
	Kill(pid int) error
}

// Analyzer produces reports and prompt previews.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (string, error)
	Preview(ctx context.Context, req analysis.Request) (string, error)
}

// HistoryWriter records finished runs.
type HistoryWriter interface {
	Append(rec history.Record) ([]history.Record, error)
}

// SettingsSource supplies the settings in effect for a run or analysis.
type SettingsSource interface {
	Current() settings.Settings
}

// Options tune an Orchestrator.
type Options struct {
	// AutoAnalyze requests an analysis as soon as a run exits cleanly.
	AutoAnalyze bool

	Workdir string
	Env     map[string]string

	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Status     Status            `json:"status"`
	StatusText string            `json:"status_text"`
	Message    string            `json:"message,omitempty"`
	RunID      string            `json:"run_id,omitempty"`
	Script     string            `json:"script"`
	Args       string            `json:"args"`
	Focus      string            `json:"focus"`
	PID        int               `json:"pid,omitempty"`
	StartedAt  time.Time         `json:"started_at,omitempty"`
	Log        string            `json:"log"`
	Analysis   string            `json:"analysis"`
	Samples    []progress.Sample `json:"samples"`
}

// Orchestrator owns the state of a single session.
type Orchestrator struct {
	launcher Launcher
	analyzer Analyzer
	history  HistoryWriter
	settings SettingsSource
	opts     Options
	logger   *slog.Logger

	mu         sync.Mutex
	status     Status
	message    string
	runID      string
	script     string
	args       string
	focus      string
	pid        int
	startedAt  time.Time
	log        strings.Builder
	analysis   string
	series     progress.Series
	cancelled  bool
	lines      int
	runDone    chan struct{}
	pending    *history.Record
	saved      string
	prePreview Status

	events *eventHub
}

// New returns an idle Orchestrator.
func New(launcher Launcher, analyzer Analyzer, hist HistoryWriter, src SettingsSource, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	return &Orchestrator{
		launcher: launcher,
		analyzer: analyzer,
		history:  hist,
		settings: src,
		opts:     opts,
		logger:   opts.Logger,
		events:   newEventHub(),
	}
}

// Subscribe returns a stream of change notifications and a function that
// ends the subscription. Notifications may be dropped for slow readers;
// Snapshot always has the full state.
func (o *Orchestrator) Subscribe() (<-chan Event, func()) {
	return o.events.subscribe()
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		Status:     o.status,
		StatusText: o.status.String(),
		Message:    o.message,
		RunID:      o.runID,
		Script:     o.script,
		Args:       o.args,
		Focus:      o.focus,
		PID:        o.pid,
		StartedAt:  o.startedAt,
		Log:        o.log.String(),
		Analysis:   o.analysis,
		Samples:    o.series.Samples(),
	}
}

// Done returns a channel closed once the current run, including any
// automatic analysis, has finished.
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runDone == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return o.runDone
}

// SetFocus sets the point the next analysis should examine in depth.
func (o *Orchestrator) SetFocus(focus string) {
	o.mu.Lock()
	o.focus = focus
	o.mu.Unlock()
}

// Start launches script with args. It returns once the run is accepted;
// output arrives asynchronously. ctx bounds the run and its analysis.
func (o *Orchestrator) Start(ctx context.Context, script, args string) error {
	o.mu.Lock()
	if strings.TrimSpace(script) == "" {
		o.message = MsgNoScript
		o.mu.Unlock()
		o.events.publish(Event{Kind: EventStatus, Status: o.statusOf()})
		return ErrNoScript
	}
	if o.status.Busy() {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	if o.status == StatusPreviewing {
		o.exitPreviewLocked()
	}
	flush := o.takePendingLocked()

	o.status = StatusRunning
	o.message = ""
	o.runID = o.opts.NewID()
	o.script = script
	o.args = args
	o.pid = 0
	o.startedAt = o.opts.Now()
	o.log.Reset()
	o.analysis = ""
	o.series.Reset()
	o.cancelled = false
	o.lines = 0
	done := make(chan struct{})
	o.runDone = done
	runID := o.runID
	o.mu.Unlock()

	o.writeRecord(flush)
	o.events.publish(Event{Kind: EventStatus, Status: StatusRunning})
	o.events.publish(Event{Kind: EventText})

	cfg := o.settings.Current()
	cmd := process.Command{
		Prefix:  cfg.CommandPrefix,
		Script:  script,
		Args:    args,
		Workdir: o.opts.Workdir,
		Env:     o.opts.Env,
	}
	o.logger.Info("run started", "run_id", runID, "command", cmd.String())

	go o.run(ctx, cmd, done)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, cmd process.Command, done chan struct{}) {
	defer close(done)

	h, err := o.launcher.Launch(ctx, cmd)
	if err != nil {
		o.finish(ctx, "", fmt.Errorf("launch: %w", err))
		return
	}

	o.mu.Lock()
	o.pid = h.PID()
	o.mu.Unlock()
	o.events.publish(Event{Kind: EventStatus, Status: StatusRunning})

	for line := range h.Lines() {
		o.appendLine(line)
	}

	final, err := h.Wait()
	o.finish(ctx, final, err)
}

func (o *Orchestrator) appendLine(line string) {
	o.mu.Lock()
	o.log.WriteString(line)
	o.log.WriteByte('\n')
	o.lines++
	sample, ok := o.series.Observe(line)
	o.mu.Unlock()

	o.events.publish(Event{Kind: EventLine, Line: line})
	if ok {
		o.events.publish(Event{Kind: EventSample, Sample: sample})
	}
}

// finish handles the end of the line stream.
func (o *Orchestrator) finish(ctx context.Context, final string, runErr error) {
	o.mu.Lock()
	o.pid = 0
	runID := o.runID

	if o.cancelled {
		o.status = StatusIdle
		o.message = MsgCancelled
		var rec *history.Record
		if o.lines > 0 {
			rec = o.recordLocked()
		}
		o.mu.Unlock()

		o.logger.Info("run cancelled", "run_id", runID)
		o.writeRecord(rec)
		o.events.publish(Event{Kind: EventStatus, Status: StatusIdle})
		return
	}

	if runErr != nil {
		o.log.WriteString("\nError: " + runErr.Error())
		o.status = StatusErrored
		o.message = MsgRunFailed
		rec := o.recordLocked()
		o.mu.Unlock()

		o.logger.Warn("run failed", "run_id", runID, "error", runErr)
		o.writeRecord(rec)
		o.events.publish(Event{Kind: EventText})
		o.events.publish(Event{Kind: EventStatus, Status: StatusErrored})
		return
	}

	// The collaborator's final text is authoritative over the streamed lines.
	o.log.Reset()
	o.log.WriteString(final)
	o.logger.Info("run finished", "run_id", runID, "samples", o.series.Len())

	if !o.opts.AutoAnalyze {
		o.status = StatusIdle
		o.message = MsgDone
		o.pending = o.recordLocked()
		o.mu.Unlock()
		o.events.publish(Event{Kind: EventText})
		o.events.publish(Event{Kind: EventStatus, Status: StatusIdle})
		return
	}

	if strings.TrimSpace(final) == "" {
		o.status = StatusIdle
		o.message = MsgDone
		rec := o.recordLocked()
		o.mu.Unlock()
		o.logger.Info("skipping analysis of empty log", "run_id", runID)
		o.writeRecord(rec)
		o.events.publish(Event{Kind: EventText})
		o.events.publish(Event{Kind: EventStatus, Status: StatusIdle})
		return
	}

	o.status = StatusAnalyzing
	o.message = ""
	logText, focus := final, o.focus
	o.mu.Unlock()
	o.events.publish(Event{Kind: EventText})
	o.events.publish(Event{Kind: EventStatus, Status: StatusAnalyzing})

	o.analyze(ctx, o.request(logText, focus), true)
}

// AskAI analyses the current log on demand.
func (o *Orchestrator) AskAI(ctx context.Context) error {
	o.mu.Lock()
	if o.status.Busy() {
		o.mu.Unlock()
		return ErrBusy
	}
	if o.status == StatusPreviewing {
		o.exitPreviewLocked()
	}
	if strings.TrimSpace(o.log.String()) == "" {
		o.mu.Unlock()
		o.events.publish(Event{Kind: EventText})
		return ErrEmptyLog
	}
	o.status = StatusAnalyzing
	o.message = ""
	o.analysis = ""
	logText, focus := o.log.String(), o.focus
	o.mu.Unlock()
	o.events.publish(Event{Kind: EventText})
	o.events.publish(Event{Kind: EventStatus, Status: StatusAnalyzing})

	o.analyze(ctx, o.request(logText, focus), false)
	return nil
}

// analyze runs the analysis and settles the state. record is true when the
// analysis completes a fresh run that still needs its history record.
func (o *Orchestrator) analyze(ctx context.Context, req analysis.Request, record bool) {
	start := time.Now()
	report, err := o.analyzer.Analyze(ctx, req)

	o.mu.Lock()
	if err != nil {
		o.analysis += "\nAI Error: " + err.Error()
		o.status = StatusErrored
		o.message = MsgAnalyzeError
	} else {
		o.analysis = report
		o.status = StatusIdle
		o.message = MsgAnalyzed
	}

	var rec *history.Record
	switch {
	case record:
		rec = o.recordLocked()
	case o.pending != nil:
		rec = o.pending
		rec.Analysis = o.analysis
		o.pending = nil
	}
	status := o.status
	o.mu.Unlock()

	if err != nil {
		o.logger.Warn("analysis failed", "error", err, "duration", time.Since(start))
	} else {
		o.logger.Info("analysis complete", "model", req.Model, "duration", time.Since(start))
	}
	o.writeRecord(rec)
	o.events.publish(Event{Kind: EventText})
	o.events.publish(Event{Kind: EventStatus, Status: status})
}

// Cancel asks the launcher to kill the running process. Without a known
// pid it does nothing.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	if o.status != StatusRunning || o.pid == 0 {
		o.mu.Unlock()
		return nil
	}
	pid := o.pid
	o.cancelled = true
	o.status = StatusCancelling
	o.log.WriteString(CancelMarker + "\n")
	o.mu.Unlock()

	o.events.publish(Event{Kind: EventLine, Line: CancelMarker})
	o.events.publish(Event{Kind: EventStatus, Status: StatusCancelling})

	if err := o.launcher.Kill(pid); err != nil {
		o.logger.Warn("failed to kill solver", "pid", pid, "error", err)
	}
	return nil
}

// TogglePreview shows the prompt the next analysis would send, or restores
// the previous analysis text when a preview is already shown.
func (o *Orchestrator) TogglePreview(ctx context.Context) error {
	o.mu.Lock()
	if o.status == StatusPreviewing {
		o.exitPreviewLocked()
		status := o.status
		o.mu.Unlock()
		o.events.publish(Event{Kind: EventText})
		o.events.publish(Event{Kind: EventStatus, Status: status})
		return nil
	}
	if o.status != StatusIdle && o.status != StatusErrored {
		o.mu.Unlock()
		return ErrBusy
	}
	if o.log.Len() == 0 {
		o.mu.Unlock()
		return ErrEmptyLog
	}
	o.saved = o.analysis
	o.prePreview = o.status
	o.status = StatusPreviewing
	logText, focus := o.log.String(), o.focus
	o.mu.Unlock()
	o.events.publish(Event{Kind: EventStatus, Status: StatusPreviewing})

	prompt, err := o.analyzer.Preview(ctx, o.request(logText, focus))

	o.mu.Lock()
	if o.status != StatusPreviewing {
		o.mu.Unlock()
		return nil
	}
	if err != nil {
		o.analysis = "Preview Error: " + err.Error()
	} else {
		o.analysis = FormatPreview(prompt)
	}
	o.mu.Unlock()
	o.events.publish(Event{Kind: EventText})
	return nil
}

// FormatPreview annotates a prompt with its length in characters.
func FormatPreview(prompt string) string {
	return fmt.Sprintf("Prompt preview (%d chars)\n\n%s", utf8.RuneCountInString(prompt), prompt)
}

func (o *Orchestrator) exitPreviewLocked() {
	o.analysis = o.saved
	o.saved = ""
	o.status = o.prePreview
}

// Restore shows a past run. The gap series is rebuilt from its log.
func (o *Orchestrator) Restore(rec history.Record) error {
	o.mu.Lock()
	if o.status.Busy() {
		o.mu.Unlock()
		return ErrBusy
	}
	flush := o.takePendingLocked()

	logText, analysisText := history.Restore(rec)
	o.status = StatusIdle
	o.message = "Restored run from " + rec.Timestamp.Local().Format("2006-01-02 15:04")
	o.runID = rec.ID
	o.script = rec.Script
	o.args = rec.Args
	o.pid = 0
	o.startedAt = rec.Timestamp
	o.log.Reset()
	o.log.WriteString(logText)
	o.analysis = analysisText
	o.saved = ""
	o.series.Rebuild(logText)
	o.mu.Unlock()

	o.writeRecord(flush)
	o.events.publish(Event{Kind: EventText})
	o.events.publish(Event{Kind: EventStatus, Status: StatusIdle})
	return nil
}

// Flush writes a finished run that is still waiting for an analysis.
func (o *Orchestrator) Flush() {
	o.mu.Lock()
	rec := o.takePendingLocked()
	o.mu.Unlock()
	o.writeRecord(rec)
}

func (o *Orchestrator) takePendingLocked() *history.Record {
	rec := o.pending
	o.pending = nil
	return rec
}

func (o *Orchestrator) recordLocked() *history.Record {
	return &history.Record{
		ID:        o.runID,
		Timestamp: o.opts.Now(),
		Script:    o.script,
		Args:      o.args,
		Log:       o.log.String(),
		Analysis:  o.analysis,
	}
}

func (o *Orchestrator) writeRecord(rec *history.Record) {
	if rec == nil || o.history == nil {
		return
	}
	if _, err := o.history.Append(*rec); err != nil {
		o.logger.Error("failed to save history", "run_id", rec.ID, "error", err)
	}
}

func (o *Orchestrator) request(logText, focus string) analysis.Request {
	cfg := o.settings.Current()
	return analysis.Request{
		Log:               logText,
		Focus:             focus,
		Model:             cfg.Model,
		SystemInstruction: cfg.SystemInstruction,
		APIKey:            cfg.APIKey,
	}
}

func (o *Orchestrator) statusOf() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}
