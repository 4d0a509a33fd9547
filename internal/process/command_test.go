package process

import (
	"errors"
	"reflect"
	"testing"
)

func TestCommand_Argv(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		want    []string
		wantErr error
	}{
		{
			name: "default prefix",
			cmd:  Command{Script: "model.py", Args: "--time-limit 60  --seed 1"},
			want: []string{"uv", "run", "python", "-u", "model.py", "--time-limit", "60", "--seed", "1"},
		},
		{
			name: "custom prefix",
			cmd:  Command{Prefix: "python3 -u", Script: "/tmp/m.py"},
			want: []string{"python3", "-u", "/tmp/m.py"},
		},
		{
			name: "blank prefix falls back",
			cmd:  Command{Prefix: "   ", Script: "m.py", Args: " "},
			want: []string{"uv", "run", "python", "-u", "m.py"},
		},
		{
			name:    "missing script",
			cmd:     Command{Script: "  ", Args: "x"},
			wantErr: ErrNoScript,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Argv()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Argv() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Argv() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Argv() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommand_String(t *testing.T) {
	c := Command{Prefix: "python -u", Script: "m.py", Args: "a b"}
	if got := c.String(); got != "python -u m.py a b" {
		t.Errorf("String() = %q", got)
	}
	if got := (Command{}).String(); got != "" {
		t.Errorf("String() without script = %q, want empty", got)
	}
}

func TestCommand_Environ(t *testing.T) {
	c := Command{Env: map[string]string{"GRB_LICENSE_FILE": "/opt/gurobi.lic"}}
	got := c.environ([]string{"PATH=/bin"})
	want := []string{"PATH=/bin", "GRB_LICENSE_FILE=/opt/gurobi.lic"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("environ() = %q, want %q", got, want)
	}
}

func TestCleanLog(t *testing.T) {
	raw := "Set parameter Username\r\n" +
		"Academic license - for non-commercial use only\r\n" +
		"Gurobi Optimizer version 11.0.0 build v11.0.0rc2\n" +
		"CPU model: Apple M2\n" +
		"Thread count: 8 physical cores, 8 logical processors\n" +
		"Optimize a model with 3 rows, 2 columns\n" +
		"Model fingerprint: 0xdeadbeef\n" +
		"Optimal solution found (tolerance 1.00e-04)\n" +
		"{\"objective\": 42}\n"

	want := "Optimize a model with 3 rows, 2 columns\n" +
		"Optimal solution found (tolerance 1.00e-04)\n" +
		"{\"objective\": 42}"

	if got := CleanLog(raw, DefaultFilters); got != want {
		t.Errorf("CleanLog() = %q, want %q", got, want)
	}

	if got := CleanLog("", DefaultFilters); got != "" {
		t.Errorf("CleanLog(\"\") = %q", got)
	}
	if got := CleanLog("a\n\nb\n", nil); got != "a\n\nb" {
		t.Errorf("CleanLog() without filters = %q, want blank lines kept", got)
	}
	if got := CleanLog("keep\n", []string{""}); got != "keep" {
		t.Errorf("CleanLog() with empty filter = %q", got)
	}
}

func TestExitError(t *testing.T) {
	err := &ExitError{Code: 3, Stderr: "Traceback: boom\n"}
	if got := err.Error(); got != "Exit Code: 3\nTraceback: boom\n" {
		t.Errorf("Error() = %q", got)
	}
}
