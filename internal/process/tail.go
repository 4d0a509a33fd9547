package process

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultStopPattern matches the lines Gurobi prints when a solve ends.
var DefaultStopPattern = regexp.MustCompile(`^(Optimal solution found|Model is infeasible|Infeasible model|Unbounded model|Time limit reached|Solve interrupted|Solution limit reached)`)

// Tailer follows a log file written by a solver started elsewhere. It
// satisfies the same launcher contract as Runner; the command's Script is
// the path of the log file and the PID is a local follower id.
type Tailer struct {
	logger      *slog.Logger
	stopPattern *regexp.Regexp
	poll        time.Duration

	mu     sync.Mutex
	nextID int
	active map[int]*tail
}

// TailerOption configures a Tailer.
type TailerOption func(*Tailer)

// WithStopPattern ends a follow when a line matches re. A nil re follows
// until killed or the file disappears.
func WithStopPattern(re *regexp.Regexp) TailerOption {
	return func(t *Tailer) {
		t.stopPattern = re
	}
}

// WithPollInterval sets how often the file is re-read when no fsnotify
// event arrives.
func WithPollInterval(d time.Duration) TailerOption {
	return func(t *Tailer) {
		if d > 0 {
			t.poll = d
		}
	}
}

// NewTailer returns a Tailer using DefaultStopPattern.
func NewTailer(logger *slog.Logger, opts ...TailerOption) *Tailer {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tailer{
		logger:      logger,
		stopPattern: DefaultStopPattern,
		poll:        time.Second,
		active:      make(map[int]*tail),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type tail struct {
	id    int
	lines chan string
	done  chan struct{}
	stop  chan struct{}
	once  sync.Once
	final string
}

func (t *tail) PID() int             { return t.id }
func (t *tail) Lines() <-chan string { return t.lines }

func (t *tail) Wait() (string, error) {
	<-t.done
	return t.final, nil
}

func (t *tail) halt() {
	t.once.Do(func() { close(t.stop) })
}

// Launch starts following c.Script from its first byte.
func (t *Tailer) Launch(ctx context.Context, c Command) (Handle, error) {
	path := strings.TrimSpace(c.Script)
	if path == "" {
		return nil, ErrNoScript
	}
	if c.Workdir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(c.Workdir, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		f.Close()
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	tl := &tail{
		lines: make(chan string, lineBuffer),
		done:  make(chan struct{}),
		stop:  make(chan struct{}),
	}

	t.mu.Lock()
	t.nextID++
	tl.id = t.nextID
	t.active[tl.id] = tl
	t.mu.Unlock()

	t.logger.Info("following solver log", "path", path, "id", tl.id)
	go t.follow(ctx, tl, path, f, w)
	return tl, nil
}

// Kill stops a follower. The file itself is left alone.
func (t *Tailer) Kill(id int) error {
	t.mu.Lock()
	tl, ok := t.active[id]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("no active follower %d", id)
	}
	tl.halt()
	return nil
}

func (t *Tailer) follow(ctx context.Context, tl *tail, path string, f *os.File, w *fsnotify.Watcher) {
	var log strings.Builder
	var pending string
	rd := bufio.NewReader(f)

	defer func() {
		f.Close()
		w.Close()
		t.mu.Lock()
		delete(t.active, tl.id)
		t.mu.Unlock()

		// An unterminated last line may still be mid-write, so it is kept in
		// the final text but never streamed or sampled.
		if pending != "" {
			log.WriteString(pending)
		}
		tl.final = strings.TrimSuffix(log.String(), "\n")
		close(tl.lines)
		close(tl.done)
		t.logger.Info("stopped following solver log", "path", path, "id", tl.id)
	}()

	// drain reads every complete line available and reports whether the
	// follow should end.
	drain := func() bool {
		for {
			chunk, err := rd.ReadString('\n')
			if err != nil {
				pending += chunk
				return false
			}
			line := strings.TrimRight(pending+chunk, "\r\n")
			pending = ""
			log.WriteString(line)
			log.WriteByte('\n')

			select {
			case tl.lines <- line:
			case <-tl.stop:
				return true
			case <-ctx.Done():
				return true
			}
			if t.stopPattern != nil && t.stopPattern.MatchString(line) {
				return true
			}
		}
	}

	if drain() {
		return
	}

	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return
		case <-tl.stop:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				drain()
				return
			}
			if ev.Has(fsnotify.Write) && drain() {
				return
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			t.logger.Warn("log watcher error", "path", path, "error", err)
		case <-ticker.C:
			if drain() {
				return
			}
		}
	}
}
