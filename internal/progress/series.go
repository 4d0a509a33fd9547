package progress

import (
	"strings"
)

// Sample is one extracted reading. Index is its position among samples,
// not the line number it came from.
type Sample struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// Series is an append-only sequence of samples.
// It is not safe for concurrent use; callers serialise access.
type Series struct {
	samples []Sample
}

// Reset drops all samples.
func (s *Series) Reset() {
	s.samples = s.samples[:0]
}

// Append adds a reading and returns the stored sample.
func (s *Series) Append(value float64) Sample {
	sample := Sample{Index: len(s.samples), Value: value}
	s.samples = append(s.samples, sample)
	return sample
}

// Observe runs Extract over line and appends the reading if there is one.
func (s *Series) Observe(line string) (Sample, bool) {
	v, ok := Extract(line)
	if !ok {
		return Sample{}, false
	}
	return s.Append(v), true
}

// Rebuild replaces the series with the readings found in a complete log.
// The result is identical to streaming the same lines through Observe.
func (s *Series) Rebuild(log string) {
	s.Reset()
	for _, line := range strings.Split(log, "\n") {
		s.Observe(line)
	}
}

// Samples returns a copy of the stored samples.
func (s *Series) Samples() []Sample {
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Values returns the sample values in order.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.samples))
	for i, sample := range s.samples {
		out[i] = sample.Value
	}
	return out
}

// Len returns the number of samples.
func (s *Series) Len() int {
	return len(s.samples)
}

// Last returns the most recent sample.
func (s *Series) Last() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}
