package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/twil3akine/gurobilab/internal/config"
)

// ErrSkipped is returned by a scheduled execution that found the session
// busy with another run.
var ErrSkipped = errors.New("session busy, run skipped")

// Trigger starts solver runs. It is satisfied by *session.Orchestrator.
type Trigger interface {
	SetFocus(focus string)
	Start(ctx context.Context, script, args string) error
	// Done is closed once the current run, and any automatic analysis,
	// has finished.
	Done() <-chan struct{}
}

// BusyFunc reports whether a Start error means another run holds the
// session.
type BusyFunc func(error) bool

// execute runs the schedule once through t and blocks until the run ends
// or ctx is done.
func execute(ctx context.Context, t Trigger, busy BusyFunc, sched config.Schedule) error {
	if sched.Focus != "" {
		t.SetFocus(sched.Focus)
	}
	if err := t.Start(ctx, sched.Script, sched.Args); err != nil {
		if busy != nil && busy(err) {
			return ErrSkipped
		}
		return fmt.Errorf("start %s: %w", sched.Script, err)
	}

	select {
	case <-t.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
