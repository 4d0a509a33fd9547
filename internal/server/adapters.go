package server

import (
	"strings"

	"github.com/twil3akine/gurobilab/internal/history"
	"github.com/twil3akine/gurobilab/internal/session"
)

// summarize converts stored records into list entries, newest first.
func summarize(records []history.Record, limit int) []HistorySummary {
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	out := make([]HistorySummary, len(records))
	for i, r := range records {
		out[i] = HistorySummary{
			Index:       i,
			ID:          r.ID,
			Timestamp:   r.Timestamp,
			Script:      r.Script,
			Args:        r.Args,
			LogLines:    countLines(r.Log),
			HasAnalysis: strings.TrimSpace(r.Analysis) != "",
		}
	}
	return out
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}

var eventNames = map[session.EventKind]string{
	session.EventStatus: "status",
	session.EventLine:   "line",
	session.EventSample: "sample",
	session.EventText:   "text",
}

// eventPayload picks the body of a server-sent event. Line and sample
// events carry only the increment; the others carry a full snapshot so
// clients can resynchronise after dropped events.
func eventPayload(ev session.Event, snap func() session.Snapshot) (string, any) {
	name := eventNames[ev.Kind]
	switch ev.Kind {
	case session.EventLine:
		return name, map[string]string{"line": ev.Line}
	case session.EventSample:
		return name, ev.Sample
	default:
		return name, snap()
	}
}
