package analysis

import (
	"strings"
	"unicode/utf8"
)

// DefaultInstruction opens every prompt unless a system instruction
// override is configured.
const DefaultInstruction = "You are a data scientist. Analyse the optimisation log below " +
	"(it often ends with a JSON result) and output only a readable report in **Markdown**.\n" +
	"# Constraints\n" +
	"- Do not write any greeting or preamble such as \"Here is the analysis\".\n" +
	"- Start directly with a Markdown heading (#).\n" +
	"- Do not quote the raw log back."

// DefaultFocus is always requested.
const DefaultFocus = "In particular, summarise the result and comment on the health of the solve process."

// TruncationMarker prefixes a log that was cut to its tail.
const TruncationMarker = "... (truncated) ...\n"

// DefaultMaxLogBytes is how much of the log tail is sent.
const DefaultMaxLogBytes = 12000

// Request carries everything one analysis or preview needs.
type Request struct {
	Log               string
	Focus             string
	Model             string
	SystemInstruction string
	APIKey            string
}

// BuildPrompt renders the exact text sent to the model.
func BuildPrompt(req Request, maxLogBytes int) string {
	instruction := DefaultInstruction
	if strings.TrimSpace(req.SystemInstruction) != "" {
		instruction = req.SystemInstruction
	}

	focus := DefaultFocus
	if point := strings.TrimSpace(req.Focus); point != "" {
		focus += " **Also examine the following point in depth**: \"" + point + "\""
	}

	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n")
	b.WriteString(focus)
	b.WriteString("\n\n--- Log ---\n")
	b.WriteString(TruncateLog(req.Log, maxLogBytes))
	return b.String()
}

// TruncateLog keeps the last max bytes of log, moving the cut forward to the
// next rune boundary so multi-byte text stays valid.
func TruncateLog(log string, max int) string {
	if max <= 0 || len(log) <= max {
		return log
	}
	cut := len(log) - max
	for cut < len(log) && !utf8.RuneStart(log[cut]) {
		cut++
	}
	return TruncationMarker + log[cut:]
}
