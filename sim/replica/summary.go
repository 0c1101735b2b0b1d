package replica

import (
	"fmt"

	"github.com/qnetsim/qnetsim/sim"
)

// DefaultOccupancyBins is the number of customers-in-system values, 0 through
// 19, whose occurrence counts are aggregated across replicas.
const DefaultOccupancyBins = 20

// Metric names reported for every replica.
const (
	MetricUtilization = "utilization" // mean utilization over snapshots
	MetricDelay       = "delay"       // mean Lindley delay over snapshots
	MetricInSystem    = "in_system"   // mean customers in system over snapshots
	MetricClock       = "clock"       // simulated time at termination
	MetricDepartures  = "departures"
)

// Histogram names. Per-node queue histograms are named "node1.queue".
const (
	HistogramOccupancy = "occupancy" // customers-in-system distribution
	HistogramQueue     = "queue"
)

// Summary holds the scalar metrics and histograms of one finished replica.
type Summary struct {
	Replica    int
	Exhausted  bool
	Metrics    map[string]float64
	Histograms map[string][]float64
}

// NodeMetric names a per-node metric, e.g. "node1.delay".
func NodeMetric(node sim.NodeID, metric string) string {
	return fmt.Sprintf("%s.%s", node, metric)
}

// SummarizeResult reduces a run result to the values aggregated across
// replicas. Occupancy counts beyond occupancyBins-1 customers are dropped.
func SummarizeResult(replica int, res *sim.Result, occupancyBins int) Summary {
	s := Summary{
		Replica:   replica,
		Exhausted: res.Exhausted,
		Metrics: map[string]float64{
			MetricUtilization: res.Summary.MeanUtilization,
			MetricDelay:       res.Summary.MeanDelay,
			MetricInSystem:    res.Summary.MeanInSystem,
			MetricClock:       res.Clock,
			MetricDepartures:  float64(res.Departures),
		},
		Histograms: make(map[string][]float64),
	}
	for _, n := range res.Nodes {
		s.Metrics[NodeMetric(n.ID, MetricUtilization)] = n.Utilization
		s.Metrics[NodeMetric(n.ID, MetricDelay)] = n.MeanDelay
		bins := make([]float64, len(n.Histogram))
		for i, c := range n.Histogram {
			bins[i] = float64(c)
		}
		s.Histograms[NodeMetric(n.ID, HistogramQueue)] = bins
	}
	occupancy := make([]float64, occupancyBins)
	for k, c := range res.Summary.Occupancy {
		if k >= 0 && k < occupancyBins {
			occupancy[k] = float64(c)
		}
	}
	s.Histograms[HistogramOccupancy] = occupancy
	return s
}
