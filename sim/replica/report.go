package replica

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Report is the cross-replica aggregation of every metric and histogram bin.
type Report struct {
	Replicas   int
	Confidence float64
	Exhausted  int // replicas that ended on an exhausted replay stream
	Metrics    map[string]Aggregate
	Histograms map[string][]Aggregate
}

// BuildReport aggregates replica summaries. Every summary must carry the same
// metric names and histogram shapes; a metric absent from one replica is an
// error rather than a silent zero.
func BuildReport(summaries []Summary, confidence float64) (*Report, error) {
	if len(summaries) < 2 {
		return nil, fmt.Errorf("confidence intervals need at least 2 replicas, got %d", len(summaries))
	}
	rep := &Report{
		Replicas:   len(summaries),
		Confidence: confidence,
		Metrics:    make(map[string]Aggregate),
		Histograms: make(map[string][]Aggregate),
	}
	for _, s := range summaries {
		if s.Exhausted {
			rep.Exhausted++
		}
	}

	first := summaries[0]
	for _, name := range sortedKeys(first.Metrics) {
		values := make([]float64, len(summaries))
		for i, s := range summaries {
			v, ok := s.Metrics[name]
			if !ok {
				return nil, fmt.Errorf("replica %d has no metric %q", s.Replica, name)
			}
			values[i] = v
		}
		agg, err := Summarize(values, confidence)
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", name, err)
		}
		rep.Metrics[name] = agg
	}

	for _, name := range sortedKeys(first.Histograms) {
		bins := len(first.Histograms[name])
		aggs := make([]Aggregate, bins)
		for b := 0; b < bins; b++ {
			values := make([]float64, len(summaries))
			for i, s := range summaries {
				h, ok := s.Histograms[name]
				if !ok || len(h) != bins {
					return nil, fmt.Errorf("replica %d histogram %q does not have %d bins", s.Replica, name, bins)
				}
				values[i] = h[b]
			}
			agg, err := Summarize(values, confidence)
			if err != nil {
				return nil, fmt.Errorf("histogram %q bin %d: %w", name, b, err)
			}
			aggs[b] = agg
		}
		rep.Histograms[name] = aggs
	}
	return rep, nil
}

// MetricNames returns the metric names in sorted order.
func (r *Report) MetricNames() []string {
	return sortedKeys(r.Metrics)
}

// HistogramNames returns the histogram names in sorted order.
func (r *Report) HistogramNames() []string {
	return sortedKeys(r.Histograms)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
