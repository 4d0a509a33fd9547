package session

import (
	"fmt"
)

// Status is the orchestrator's current phase. Exactly one is active.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusCancelling
	StatusAnalyzing
	StatusPreviewing
	StatusErrored
)

var statusNames = map[Status]string{
	StatusIdle:       "idle",
	StatusRunning:    "running",
	StatusCancelling: "cancelling",
	StatusAnalyzing:  "analyzing",
	StatusPreviewing: "previewing",
	StatusErrored:    "errored",
}

// String returns the label shown in status bars.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusRunning:
		return "Running..."
	case StatusCancelling:
		return "Cancelling..."
	case StatusAnalyzing:
		return "Analyzing..."
	case StatusPreviewing:
		return "Previewing Prompt"
	case StatusErrored:
		return "Error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText encodes the status as a stable lowercase name for JSON.
func (s Status) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(name), nil
}

// Busy reports whether a run or an analysis is in flight.
func (s Status) Busy() bool {
	return s == StatusRunning || s == StatusCancelling || s == StatusAnalyzing
}
