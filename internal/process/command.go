// Package process launches solver scripts, streams their output line by line
// and kills their process trees on request.
package process

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultPrefix runs the script through uv with unbuffered Python output.
const DefaultPrefix = "uv run python -u"

// ErrNoScript is returned when a command has no script to run.
var ErrNoScript = errors.New("no script selected")

// Command describes one solver invocation.
type Command struct {
	Prefix  string
	Script  string
	Args    string
	Workdir string
	Env     map[string]string
}

// Argv splits the command into program and arguments: the prefix fields,
// the script path, then the whitespace-separated args.
func (c Command) Argv() ([]string, error) {
	if strings.TrimSpace(c.Script) == "" {
		return nil, ErrNoScript
	}

	prefix := c.Prefix
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultPrefix
	}

	argv := strings.Fields(prefix)
	argv = append(argv, c.Script)
	argv = append(argv, strings.Fields(c.Args)...)
	return argv, nil
}

// String renders the command for logs and status lines.
func (c Command) String() string {
	argv, err := c.Argv()
	if err != nil {
		return ""
	}
	return strings.Join(argv, " ")
}

// environ merges c.Env over base.
func (c Command) environ(base []string) []string {
	env := append([]string(nil), base...)
	for k, v := range c.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
