// Package testutil provides shared test infrastructure for the simulator:
// scripted uniform sequences, replay file fixtures and float assertions used
// across sim/ and its sub-package tests.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// FixedUniform replays a scripted list of uniforms and cycles when it runs out.
type FixedUniform struct {
	Values []float64
	next   int
}

// NewFixedUniform creates a FixedUniform over values.
func NewFixedUniform(values ...float64) *FixedUniform {
	return &FixedUniform{Values: values}
}

// Float64 returns the next scripted value.
func (f *FixedUniform) Float64() float64 {
	v := f.Values[f.next%len(f.Values)]
	f.next++
	return v
}

// Draws returns how many values have been taken.
func (f *FixedUniform) Draws() int { return f.next }

// Lines renders values one per line, optionally after a header line.
func Lines(header string, values ...float64) string {
	var b strings.Builder
	if header != "" {
		b.WriteString(header)
		b.WriteByte('\n')
	}
	for _, v := range values {
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteFile writes content to name under dir and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
