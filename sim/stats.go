package sim

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// StatisticSnapshot is the state of one node at one instant. Snapshots are
// immutable once recorded.
type StatisticSnapshot struct {
	Clock       float64
	Node        NodeID
	Departures  int64 // departures from this node so far
	QueueSize   int   // customers waiting, excluding the one in service
	Busy        bool
	Delay       float64 // Lindley delay of the node's most recent arrival
	Utilization float64
	Pending     int // size of the future event list
}

// InSystem is the number of customers at the node, including the one in service.
func (s StatisticSnapshot) InSystem() int {
	if s.Busy {
		return s.QueueSize + 1
	}
	return s.QueueSize
}

// HistogramBounds are the inclusive upper bounds of the queue-length bins.
// A final overflow bin collects every backlog larger than the last bound.
var HistogramBounds = [...]int{5, 10, 15, 20, 25}

// HistogramBins is the number of queue-length bins, overflow included.
const HistogramBins = len(HistogramBounds) + 1

// QueueHistogram counts backlog sizes observed at departures.
type QueueHistogram struct {
	counts [HistogramBins]int64
}

// Bin returns the bin index for a backlog size.
func (h *QueueHistogram) Bin(size int) int {
	for i, bound := range HistogramBounds {
		if size <= bound {
			return i
		}
	}
	return len(HistogramBounds)
}

// Observe increments the bin matching size.
func (h *QueueHistogram) Observe(size int) {
	h.counts[h.Bin(size)]++
}

// Counts returns a copy of the bin counters.
func (h *QueueHistogram) Counts() []int64 {
	return slices.Clone(h.counts[:])
}

// BinLabel names bin i, e.g. "<=5" or ">25".
func BinLabel(i int) string {
	if i < len(HistogramBounds) {
		return fmt.Sprintf("<=%d", HistogramBounds[i])
	}
	return fmt.Sprintf(">%d", HistogramBounds[len(HistogramBounds)-1])
}

// CollectorSummary holds running averages over every recorded snapshot.
type CollectorSummary struct {
	Snapshots       int64
	MeanDelay       float64
	MeanInSystem    float64
	MeanUtilization float64
	MaxDelay        float64
	// Occupancy maps customers-in-system to the number of snapshots that saw it.
	Occupancy map[int]int64
}

// StatisticsCollector records snapshots. Summaries are always maintained;
// the snapshot sequence itself is only kept when retention is enabled.
type StatisticsCollector struct {
	retain    bool
	snapshots []StatisticSnapshot

	count          int64
	delaySum       float64
	inSystemSum    float64
	utilizationSum float64
	maxDelay       float64
	occupancy      map[int]int64
}

// NewStatisticsCollector creates a collector. With retain false only the
// running summary is kept, which bounds memory for long replicated runs.
func NewStatisticsCollector(retain bool) *StatisticsCollector {
	return &StatisticsCollector{
		retain:    retain,
		snapshots: make([]StatisticSnapshot, 0),
		occupancy: make(map[int]int64),
	}
}

// Record appends a snapshot and folds it into the running summary.
func (c *StatisticsCollector) Record(s StatisticSnapshot) {
	if c.retain {
		c.snapshots = append(c.snapshots, s)
	}
	c.count++
	c.delaySum += s.Delay
	c.inSystemSum += float64(s.InSystem())
	c.utilizationSum += s.Utilization
	c.maxDelay = max(c.maxDelay, s.Delay)
	c.occupancy[s.InSystem()]++
}

// Snapshots returns the retained snapshots in recording order.
func (c *StatisticsCollector) Snapshots() []StatisticSnapshot {
	return slices.Clone(c.snapshots)
}

// Len returns the number of snapshots recorded, retained or not.
func (c *StatisticsCollector) Len() int64 { return c.count }

// Summary returns the averages over every recorded snapshot.
func (c *StatisticsCollector) Summary() CollectorSummary {
	s := CollectorSummary{
		Snapshots: c.count,
		MaxDelay:  c.maxDelay,
		Occupancy: make(map[int]int64, len(c.occupancy)),
	}
	for k, v := range c.occupancy {
		s.Occupancy[k] = v
	}
	if c.count > 0 {
		n := float64(c.count)
		s.MeanDelay = c.delaySum / n
		s.MeanInSystem = c.inSystemSum / n
		s.MeanUtilization = c.utilizationSum / n
	}
	return s
}
