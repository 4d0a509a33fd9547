// Package progress turns free-text solver output into a chartable series of
// optimality-gap samples.
package progress

import (
	"math"
	"regexp"
	"strconv"
)

const (
	// Floor is the smallest value a sample may carry. Gap charts use a
	// logarithmic axis, so zero and negative readings are lifted to it.
	Floor = 0.0001

	// MaxValue is the largest accepted reading. Anything above it is a
	// parse artefact (node counts, timestamps glued to a '%').
	MaxValue = 1000.0
)

// percentPattern captures a signed decimal right before '%'. A minus sign
// only counts when it does not follow a digit, so "5-10%" reads as 10.
var percentPattern = regexp.MustCompile(`(?:^|[^\d.])(-?(?:\d+(?:\.\d*)?|\.\d+))%`)

// Extract returns the first percentage found in line.
// The second return value is false when the line carries no usable reading.
func Extract(line string) (float64, bool) {
	m := percentPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}

	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v > MaxValue {
		return 0, false
	}

	return math.Max(v, Floor), true
}
