package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Handle is a running (or finished) solver.
type Handle interface {
	// PID identifies the process for Kill.
	PID() int

	// Lines yields stdout and stderr lines in arrival order and is closed
	// once both streams are drained.
	Lines() <-chan string

	// Wait blocks until exit and returns the final log text, or an error
	// describing the failure.
	Wait() (string, error)
}

// ExitError reports a non-zero exit.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("Exit Code: %d\n%s", e.Code, e.Stderr)
}

const (
	// lineBuffer bounds the number of lines queued for a slow consumer.
	lineBuffer = 256

	// maxLineBytes is the longest output line kept; longer lines are cut.
	maxLineBytes = 2 * 1024 * 1024
)

// Runner starts solver processes.
type Runner struct {
	logger  *slog.Logger
	filters []string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithFilters replaces the line filters applied to the final log.
func WithFilters(filters []string) RunnerOption {
	return func(r *Runner) {
		r.filters = filters
	}
}

// NewRunner returns a Runner using DefaultFilters.
func NewRunner(logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{logger: logger, filters: DefaultFilters}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Process is a solver started by Runner.
type Process struct {
	cmd   *exec.Cmd
	lines chan string
	done  chan struct{}

	final string
	err   error
}

func (p *Process) PID() int              { return p.cmd.Process.Pid }
func (p *Process) Lines() <-chan string  { return p.lines }
func (p *Process) Done() <-chan struct{} { return p.done }

func (p *Process) Wait() (string, error) {
	<-p.done
	return p.final, p.err
}

// Launch satisfies the session launcher contract.
func (r *Runner) Launch(ctx context.Context, c Command) (Handle, error) {
	return r.Start(ctx, c)
}

// Start launches the command. Cancelling ctx kills the process tree.
func (r *Runner) Start(ctx context.Context, c Command) (*Process, error) {
	argv, err := c.Argv()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = c.Workdir
	cmd.Env = c.environ(os.Environ())
	configureCommand(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, classifyStartError(argv[0], err)
	}

	p := &Process{
		cmd:   cmd,
		lines: make(chan string, lineBuffer),
		done:  make(chan struct{}),
	}

	r.logger.Info("solver started",
		"pid", cmd.Process.Pid,
		"command", strings.Join(argv, " "),
		"workdir", c.Workdir)

	start := time.Now()
	var stdoutBuf, stderrBuf strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)
	go r.scan(stdout, &stdoutBuf, p.lines, &wg)
	go r.scan(stderr, &stderrBuf, p.lines, &wg)

	go func() {
		wg.Wait()
		close(p.lines)

		waitErr := cmd.Wait()
		if waitErr != nil {
			var exitErr *exec.ExitError
			if errors.As(waitErr, &exitErr) {
				p.err = &ExitError{Code: exitErr.ExitCode(), Stderr: stderrBuf.String()}
			} else {
				p.err = fmt.Errorf("wait for solver: %w", waitErr)
			}
		} else {
			p.final = CleanLog(stdoutBuf.String(), r.filters)
		}

		level := slog.LevelInfo
		if p.err != nil {
			level = slog.LevelWarn
		}
		r.logger.Log(context.Background(), level, "solver exited",
			"pid", cmd.Process.Pid,
			"exit_code", cmd.ProcessState.ExitCode(),
			"duration", time.Since(start))
		close(p.done)
	}()

	go func() {
		select {
		case <-ctx.Done():
			if err := killTree(cmd.Process.Pid); err != nil {
				r.logger.Warn("failed to kill solver on shutdown", "pid", cmd.Process.Pid, "error", err)
			}
		case <-p.done:
		}
	}()

	return p, nil
}

// scan forwards every line of rd to lines and keeps a copy in buf. Lines
// longer than maxLineBytes are cut at the limit; the rest of such a line is
// skipped and reading carries on with the next one.
func (r *Runner) scan(rd io.Reader, buf *strings.Builder, lines chan<- string, wg *sync.WaitGroup) {
	defer wg.Done()

	br := bufio.NewReaderSize(rd, 64*1024)
	var line []byte
	truncated := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if len(chunk) > 0 {
			if room := maxLineBytes - len(line); room > 0 {
				if len(chunk) > room {
					chunk = chunk[:room]
					truncated = true
				}
				line = append(line, chunk...)
			} else {
				truncated = true
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.logger.Warn("solver output read failed", "error", err)
				// Keep the pipe drained so the child never blocks on a full buffer.
				_, _ = io.Copy(io.Discard, rd)
			}
			return
		}
		if isPrefix {
			continue
		}

		if truncated {
			r.logger.Warn("solver output line truncated", "limit", maxLineBytes)
		}
		text := string(line)
		buf.WriteString(text)
		buf.WriteByte('\n')
		lines <- text
		line = line[:0]
		truncated = false
	}
}

// Kill terminates the process and everything it spawned.
func (r *Runner) Kill(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	r.logger.Info("killing solver", "pid", pid)
	if err := killTree(pid); err != nil {
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	return nil
}

func classifyStartError(program string, err error) error {
	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
		return fmt.Errorf("command not found: %s: %w", program, err)
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, exec.ErrNotFound) {
		return fmt.Errorf("command not found: %s: %w", program, err)
	}

	return fmt.Errorf("start %s: %w", program, err)
}
