// Package scheduler starts solver runs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/twil3akine/gurobilab/internal/config"
)

// Scheduler wraps robfig/cron and feeds scheduled scripts into a Trigger.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
	trigger Trigger
	busy    BusyFunc
	entries map[string]*scheduledEntry // schedule ID -> entry
	mu      sync.RWMutex
	wg      sync.WaitGroup
}

type scheduledEntry struct {
	sched     config.Schedule
	entryID   cron.EntryID
	lastRun   time.Time
	runCount  int64
	skipped   int64
	lastError string
}

// New creates a Scheduler whose runs go through trigger. busy classifies
// Start errors that mean the session is occupied; it may be nil.
// Runs are cancelled when ctx is done or Stop is called.
func New(ctx context.Context, trigger Trigger, busy BusyFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	schedCtx, cancel := context.WithCancel(ctx)
	cronLogger := &cronSlogAdapter{logger: logger}

	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		),
	)

	return &Scheduler{
		cron:    c,
		ctx:     schedCtx,
		cancel:  cancel,
		logger:  logger,
		trigger: trigger,
		busy:    busy,
		entries: make(map[string]*scheduledEntry),
	}
}

// Add registers a schedule. IDs must be unique.
func (s *Scheduler) Add(sched config.Schedule) error {
	if sched.ID == "" {
		return fmt.Errorf("schedule ID cannot be empty")
	}
	if sched.Script == "" {
		return fmt.Errorf("schedule %q has no script", sched.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[sched.ID]; exists {
		return fmt.Errorf("schedule with ID %q already exists", sched.ID)
	}

	parsed, err := ParseSchedule(sched.Schedule)
	if err != nil {
		return fmt.Errorf("failed to parse schedule %q: %w", sched.ID, err)
	}

	entryID := s.cron.Schedule(parsed, s.wrap(sched.ID))
	s.entries[sched.ID] = &scheduledEntry{sched: sched, entryID: entryID}

	s.logger.Info("schedule added",
		slog.String("schedule_id", sched.ID),
		slog.String("schedule", sched.Schedule),
		slog.String("script", sched.Script),
		slog.Time("next_run", parsed.Next(time.Now())),
	)
	return nil
}

// Remove unregisters a schedule. A run already in progress is not touched.
func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return false
	}
	s.cron.Remove(e.entryID)
	delete(s.entries, id)
	return true
}

func (s *Scheduler) wrap(id string) cron.FuncJob {
	return func() {
		s.mu.Lock()
		e, ok := s.entries[id]
		if !ok {
			s.mu.Unlock()
			return
		}
		e.lastRun = time.Now()
		e.runCount++
		sched := e.sched
		s.mu.Unlock()

		s.wg.Add(1)
		defer s.wg.Done()

		s.logger.Info("scheduled run starting",
			slog.String("schedule_id", id),
			slog.String("script", sched.Script),
		)

		start := time.Now()
		err := execute(s.ctx, s.trigger, s.busy, sched)

		s.mu.Lock()
		if e, ok := s.entries[id]; ok {
			switch {
			case errors.Is(err, ErrSkipped):
				e.skipped++
			case err != nil:
				e.lastError = err.Error()
			default:
				e.lastError = ""
			}
		}
		s.mu.Unlock()

		switch {
		case errors.Is(err, ErrSkipped):
			s.logger.Warn("scheduled run skipped", slog.String("schedule_id", id))
		case err != nil:
			s.logger.Error("scheduled run failed",
				slog.String("schedule_id", id),
				slog.String("error", err.Error()),
				slog.Duration("duration", time.Since(start)),
			)
		default:
			s.logger.Info("scheduled run finished",
				slog.String("schedule_id", id),
				slog.Duration("duration", time.Since(start)),
			)
		}
	}
}

// Start begins dispatching schedules.
func (s *Scheduler) Start() {
	s.mu.RLock()
	n := len(s.entries)
	s.mu.RUnlock()

	s.logger.Info("starting scheduler", slog.Int("schedule_count", n))
	s.cron.Start()
}

// Stop halts dispatching, cancels in-flight runs and waits for them to
// return, or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("stopping scheduler")

	s.cancel()
	<-s.cron.Stop().Done()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("shutdown timeout reached, a scheduled run may still be active")
		return ctx.Err()
	}
}

// Stats describes one registered schedule.
type Stats struct {
	ID        string    `json:"id"`
	Schedule  string    `json:"schedule"`
	Script    string    `json:"script"`
	LastRun   time.Time `json:"last_run"`
	NextRun   time.Time `json:"next_run"`
	RunCount  int64     `json:"run_count"`
	Skipped   int64     `json:"skipped"`
	LastError string    `json:"last_error,omitempty"`
}

// Stats returns statistics for the schedule with the given ID.
func (s *Scheduler) Stats(id string) (Stats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return Stats{}, false
	}
	return s.statsLocked(e), true
}

// List returns statistics for every schedule, in no particular order.
func (s *Scheduler) List() []Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Stats, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, s.statsLocked(e))
	}
	return out
}

func (s *Scheduler) statsLocked(e *scheduledEntry) Stats {
	st := Stats{
		ID:        e.sched.ID,
		Schedule:  e.sched.Schedule,
		Script:    e.sched.Script,
		LastRun:   e.lastRun,
		RunCount:  e.runCount,
		Skipped:   e.skipped,
		LastError: e.lastError,
	}
	if entry := s.cron.Entry(e.entryID); entry.ID != 0 {
		st.NextRun = entry.Next
	}
	return st
}

// cronSlogAdapter adapts slog.Logger to cron.Logger interface.
type cronSlogAdapter struct {
	logger *slog.Logger
}

func (a *cronSlogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a *cronSlogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	attrs := make([]any, 0, len(keysAndValues)+1)
	attrs = append(attrs, slog.String("error", err.Error()))
	attrs = append(attrs, keysAndValues...)
	a.logger.Error(msg, attrs...)
}
