package process

import (
	"strings"
)

// DefaultFilters drop Gurobi banner and licence chatter from the final log.
var DefaultFilters = []string{
	"Set parameter",
	"Academic license",
	"Gurobi Optimizer version",
	"CPU model",
	"Thread count",
	"Model fingerprint",
}

// CleanLog removes every line containing one of filters and joins the rest
// with "\n". Carriage returns from Windows line endings are dropped.
func CleanLog(raw string, filters []string) string {
	raw = strings.TrimSuffix(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if raw == "" {
		return ""
	}

	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if !containsAny(line, filters) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func containsAny(line string, filters []string) bool {
	for _, f := range filters {
		if f != "" && strings.Contains(line, f) {
			return true
		}
	}
	return false
}
