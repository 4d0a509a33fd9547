package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// Seconds are optional so "*/30 * * * * *" works alongside 5-field specs.
	cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	intervalRegex = regexp.MustCompile(`^every\s+(\d+)\s*(s|sec|second|seconds|m|min|minute|minutes|h|hour|hours|d|day|days)$`)
)

var unitDurations = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
}

// ParseSchedule parses a cron expression (5 or 6 fields), a descriptor such
// as "@daily" or "@every 1h", or a plain interval like "every 30m".
func ParseSchedule(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("schedule expression cannot be empty")
	}

	if strings.HasPrefix(strings.ToLower(expr), "every ") {
		d, err := parseInterval(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid interval expression %q: %w", expr, err)
		}
		return cron.Every(d), nil
	}

	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

func parseInterval(expr string) (time.Duration, error) {
	m := intervalRegex.FindStringSubmatch(strings.ToLower(expr))
	if m == nil {
		return 0, fmt.Errorf("expected 'every <number> <unit>' (e.g. 'every 5m')")
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("interval must be a positive integer")
	}

	d := time.Duration(n) * unitDurations[m[2]]
	if d > 365*24*time.Hour {
		return 0, fmt.Errorf("interval cannot exceed 1 year")
	}
	return d, nil
}

// NextRun returns the first activation of expr after from.
func NextRun(expr string, from time.Time) (time.Time, error) {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(from), nil
}
