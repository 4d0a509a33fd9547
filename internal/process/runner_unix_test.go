//go:build !windows

package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solve.sh")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func collect(t *testing.T, h Handle) []string {
	t.Helper()
	var lines []string
	timeout := time.After(10 * time.Second)
	for {
		select {
		case line, ok := <-h.Lines():
			if !ok {
				return lines
			}
			lines = append(lines, line)
		case <-timeout:
			t.Fatalf("timed out reading lines, got %q", lines)
		}
	}
}

func TestRunner_StreamsAndCleans(t *testing.T) {
	script := writeScript(t, `
echo "Set parameter TimeLimit to value 60"
echo "     0     0   10.0   5.00%"
echo "warning on stderr" >&2
echo "Optimal solution found"
echo "arg=$1"
`)
	r := NewRunner(nil)

	h, err := r.Launch(context.Background(), Command{Prefix: "sh", Script: script, Args: "first second"})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if h.PID() <= 0 {
		t.Errorf("PID() = %d, want positive", h.PID())
	}

	lines := collect(t, h)
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"Set parameter TimeLimit to value 60", "5.00%", "warning on stderr", "arg=first"} {
		if !strings.Contains(joined, want) {
			t.Errorf("streamed lines missing %q: %q", want, lines)
		}
	}

	final, err := h.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	want := "     0     0   10.0   5.00%\nOptimal solution found\narg=first"
	if final != want {
		t.Errorf("Wait() final = %q, want %q", final, want)
	}
}

func TestRunner_ExitError(t *testing.T) {
	script := writeScript(t, `
echo "starting"
echo "GurobiError: model too large" >&2
exit 3
`)
	h, err := NewRunner(nil).Launch(context.Background(), Command{Prefix: "sh", Script: script})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	collect(t, h)

	_, err = h.Wait()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Wait() error = %v, want *ExitError", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("ExitError.Code = %d, want 3", exitErr.Code)
	}
	if !strings.HasPrefix(err.Error(), "Exit Code: 3\nGurobiError: model too large") {
		t.Errorf("Wait() error = %q", err)
	}
}

func TestRunner_CommandNotFound(t *testing.T) {
	_, err := NewRunner(nil).Launch(context.Background(), Command{Prefix: "definitely-not-a-real-binary-xyz", Script: "m.py"})
	if err == nil {
		t.Fatal("Launch() should fail for a missing program")
	}
	if !strings.Contains(err.Error(), "command not found") {
		t.Errorf("Launch() error = %v, want command not found", err)
	}
}

func TestRunner_Kill(t *testing.T) {
	script := writeScript(t, `
echo "ready"
sleep 30 &
wait
`)
	r := NewRunner(nil)
	h, err := r.Launch(context.Background(), Command{Prefix: "sh", Script: script})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	select {
	case line := <-h.Lines():
		if line != "ready" {
			t.Fatalf("first line = %q, want ready", line)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for first line")
	}

	if err := r.Kill(h.PID()); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	collect(t, h)
	if _, err := h.Wait(); err == nil {
		t.Error("Wait() after Kill should report an error")
	}
}

func TestRunner_ContextCancelKills(t *testing.T) {
	script := writeScript(t, "echo up\nsleep 30\n")
	ctx, cancel := context.WithCancel(context.Background())

	h, err := NewRunner(nil).Launch(ctx, Command{Prefix: "sh", Script: script})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	cancel()

	collect(t, h)
	if _, err := h.Wait(); err == nil {
		t.Error("Wait() after context cancel should report an error")
	}
}

func TestRunner_KillInvalidPID(t *testing.T) {
	if err := NewRunner(nil).Kill(0); err == nil {
		t.Error("Kill(0) should fail")
	}
}

func TestRunner_OversizedLineKeepsLaterOutput(t *testing.T) {
	script := writeScript(t, `
head -c 3000000 /dev/zero | tr '\0' x
echo
echo "after 1.5%"
`)
	h, err := NewRunner(nil).Launch(context.Background(), Command{Prefix: "sh", Script: script})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	lines := collect(t, h)
	if len(lines) != 2 {
		t.Fatalf("streamed %d lines, want 2", len(lines))
	}
	if len(lines[0]) != maxLineBytes {
		t.Errorf("first line length = %d, want %d", len(lines[0]), maxLineBytes)
	}
	if lines[1] != "after 1.5%" {
		t.Errorf("second line = %q, want %q", lines[1], "after 1.5%")
	}

	final, err := h.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if !strings.HasSuffix(final, "after 1.5%") {
		t.Errorf("final log (%d bytes) does not end with the line after the long one", len(final))
	}
}

func TestRunner_TrailingLineWithoutNewline(t *testing.T) {
	script := writeScript(t, `printf "first\nlast 2%%"`)
	h, err := NewRunner(nil).Launch(context.Background(), Command{Prefix: "sh", Script: script})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	lines := collect(t, h)
	if strings.Join(lines, "|") != "first|last 2%" {
		t.Errorf("streamed lines = %q", lines)
	}
	if final, _ := h.Wait(); final != "first\nlast 2%" {
		t.Errorf("Wait() final = %q", final)
	}
}
