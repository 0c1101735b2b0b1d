package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueHistogram_Bin(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{0, 0}, {5, 0}, {6, 1}, {10, 1}, {11, 2}, {15, 2}, {20, 3}, {25, 4}, {26, 5}, {1000, 5},
	}
	var h QueueHistogram
	for _, tt := range tests {
		assert.Equal(t, tt.want, h.Bin(tt.size), "Bin(%d)", tt.size)
	}
}

func TestQueueHistogram_ObserveAndCounts(t *testing.T) {
	var h QueueHistogram
	for _, size := range []int{0, 3, 7, 30, 30} {
		h.Observe(size)
	}
	counts := h.Counts()
	assert.Equal(t, []int64{2, 1, 0, 0, 0, 2}, counts)

	counts[0] = 99
	assert.Equal(t, int64(2), h.Counts()[0], "Counts must return a copy")
}

func TestBinLabel(t *testing.T) {
	assert.Equal(t, "<=5", BinLabel(0))
	assert.Equal(t, "<=25", BinLabel(4))
	assert.Equal(t, ">25", BinLabel(HistogramBins-1))
}

func TestStatisticSnapshot_InSystem(t *testing.T) {
	assert.Equal(t, 0, StatisticSnapshot{}.InSystem())
	assert.Equal(t, 1, StatisticSnapshot{Busy: true}.InSystem())
	assert.Equal(t, 4, StatisticSnapshot{Busy: true, QueueSize: 3}.InSystem())
}

func TestStatisticsCollector_Summary(t *testing.T) {
	c := NewStatisticsCollector(true)
	c.Record(StatisticSnapshot{Clock: 1, Node: Node1, Busy: true, Delay: 0, Utilization: 0.5})
	c.Record(StatisticSnapshot{Clock: 2, Node: Node1, Busy: true, QueueSize: 2, Delay: 3, Utilization: 0.75})
	c.Record(StatisticSnapshot{Clock: 3, Node: Node1, Delay: 1.5, Utilization: 1})

	s := c.Summary()
	assert.Equal(t, int64(3), s.Snapshots)
	assert.InDelta(t, 1.5, s.MeanDelay, 1e-12)
	assert.InDelta(t, 4.0/3.0, s.MeanInSystem, 1e-12)
	assert.InDelta(t, 0.75, s.MeanUtilization, 1e-12)
	assert.Equal(t, 3.0, s.MaxDelay)
	assert.Equal(t, map[int]int64{0: 1, 1: 1, 3: 1}, s.Occupancy)
	assert.Len(t, c.Snapshots(), 3)
}

func TestStatisticsCollector_WithoutRetention(t *testing.T) {
	c := NewStatisticsCollector(false)
	c.Record(StatisticSnapshot{Clock: 1, Delay: 2})
	c.Record(StatisticSnapshot{Clock: 2, Delay: 4})

	assert.Empty(t, c.Snapshots())
	assert.Equal(t, int64(2), c.Len())
	assert.InDelta(t, 3.0, c.Summary().MeanDelay, 1e-12)
}

func TestStatisticsCollector_EmptySummary(t *testing.T) {
	s := NewStatisticsCollector(false).Summary()
	assert.Equal(t, int64(0), s.Snapshots)
	assert.Equal(t, 0.0, s.MeanDelay)
	assert.Empty(t, s.Occupancy)
}
