package server

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/twil3akine/gurobilab/internal/progress"
)

const (
	chartWidth  = 720
	chartHeight = 240
	chartPad    = 40
)

// Chart is a gap series laid out for an SVG polyline on a log10 axis.
type Chart struct {
	Width  int
	Height int
	Points string
	Ticks  []ChartTick
	Last   string
	Count  int
}

// ChartTick is one horizontal grid line.
type ChartTick struct {
	Y     float64
	Label string
}

// Empty reports whether there is nothing to draw.
func (c Chart) Empty() bool { return c.Count == 0 }

// buildChart maps samples onto a width x height canvas. The y axis spans
// whole decades around the observed values.
func buildChart(samples []progress.Sample, width, height int) Chart {
	c := Chart{Width: width, Height: height, Count: len(samples)}
	if len(samples) == 0 {
		return c
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		v := math.Log10(math.Max(s.Value, progress.Floor))
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	// Log10 of an exact power of ten can land a hair off the integer.
	lo, hi = math.Floor(lo+1e-9), math.Ceil(hi-1e-9)
	if hi <= lo {
		hi = lo + 1
	}

	plotW := float64(width - 2*chartPad)
	plotH := float64(height - 2*chartPad)
	y := func(v float64) float64 {
		return float64(height-chartPad) - (v-lo)/(hi-lo)*plotH
	}

	points := make([]string, len(samples))
	for i, s := range samples {
		x := float64(chartPad) + plotW/2
		if len(samples) > 1 {
			x = float64(chartPad) + float64(i)/float64(len(samples)-1)*plotW
		}
		v := math.Log10(math.Max(s.Value, progress.Floor))
		points[i] = fmtCoord(x) + "," + fmtCoord(y(v))
	}
	c.Points = strings.Join(points, " ")

	for d := lo; d <= hi; d++ {
		c.Ticks = append(c.Ticks, ChartTick{Y: y(d), Label: decadeLabel(d)})
	}

	c.Last = strconv.FormatFloat(samples[len(samples)-1].Value, 'g', 4, 64) + "%"
	return c
}

func fmtCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func decadeLabel(d float64) string {
	v := math.Pow(10, d)
	if d >= 0 {
		return fmt.Sprintf("%.0f%%", v)
	}
	return strconv.FormatFloat(v, 'g', -1, 64) + "%"
}
