package tui

import (
	"math"
	"strings"

	"github.com/twil3akine/gurobilab/internal/progress"
)

var sparkGlyphs = []rune("▁▂▃▄▅▆▇█")

// sparkline renders the most recent width values on a log10 scale.
func sparkline(values []float64, width int) string {
	if width <= 0 || len(values) == 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	logs := make([]float64, len(values))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range values {
		logs[i] = math.Log10(math.Max(v, progress.Floor))
		lo = math.Min(lo, logs[i])
		hi = math.Max(hi, logs[i])
	}

	var b strings.Builder
	top := len(sparkGlyphs) - 1
	for _, l := range logs {
		idx := top / 2
		if hi > lo {
			idx = int(math.Round((l - lo) / (hi - lo) * float64(top)))
		}
		b.WriteRune(sparkGlyphs[idx])
	}
	return b.String()
}
