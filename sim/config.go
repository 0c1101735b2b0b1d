package sim

import (
	"fmt"
	"math"
)

// Topology selects the shape of the queueing network.
type Topology string

const (
	// TopologySingle is one FIFO server fed by one arrival stream.
	TopologySingle Topology = "single"
	// TopologyRouting is two servers sharing one external arrival stream
	// that a RoutingPolicy splits between them.
	TopologyRouting Topology = "routing"
	// TopologyFeedback is two servers, each with its own external arrival
	// stream, that send departing customers to each other with probability
	// FeedbackP (node 1 to node 2) and FeedbackQ (node 2 to node 1).
	TopologyFeedback Topology = "feedback"
)

// NumNodes returns the number of servers in the topology.
func (t Topology) NumNodes() int {
	if t == TopologySingle {
		return 1
	}
	return 2
}

// IsValidTopology reports whether name is a known topology.
func IsValidTopology(name string) bool {
	switch Topology(name) {
	case TopologySingle, TopologyRouting, TopologyFeedback:
		return true
	}
	return false
}

// ModelConfig groups the structural parameters of a NetworkModel.
type ModelConfig struct {
	Topology  Topology
	Routing   string  // routing policy name; routing topology only
	FeedbackP float64 // node 1 -> node 2 feedback probability; feedback topology only
	FeedbackQ float64 // node 2 -> node 1 feedback probability; feedback topology only

	// Termination: the run stops when either positive target is reached.
	MaxDepartures int64 // total departures across nodes
	MaxEvents     int64 // processed events, excluding initialization

	RetainSnapshots bool // keep every StatisticSnapshot, not just running summaries
}

// NewModelConfig creates a ModelConfig.
func NewModelConfig(topology Topology, routing string, p, q float64, maxDepartures, maxEvents int64, retain bool) ModelConfig {
	return ModelConfig{
		Topology:        topology,
		Routing:         routing,
		FeedbackP:       p,
		FeedbackQ:       q,
		MaxDepartures:   maxDepartures,
		MaxEvents:       maxEvents,
		RetainSnapshots: retain,
	}
}

// Validate checks the configuration. Nothing is defaulted silently.
func (c ModelConfig) Validate() error {
	if !IsValidTopology(string(c.Topology)) {
		return fmt.Errorf("unknown topology %q; valid: %s, %s, %s", c.Topology, TopologySingle, TopologyRouting, TopologyFeedback)
	}
	if c.Topology == TopologyRouting && !IsValidRoutingPolicy(c.Routing) {
		return fmt.Errorf("unknown routing policy %q; valid: %s, %s", c.Routing, RoutingRoundRobin, RoutingShortestQueue)
	}
	if c.Topology != TopologyRouting && c.Routing != "" {
		return fmt.Errorf("routing policy %q is only valid for the %s topology", c.Routing, TopologyRouting)
	}
	if err := validateProbability("feedback p", c.FeedbackP); err != nil {
		return err
	}
	if err := validateProbability("feedback q", c.FeedbackQ); err != nil {
		return err
	}
	if c.Topology != TopologyFeedback && (c.FeedbackP != 0 || c.FeedbackQ != 0) {
		return fmt.Errorf("feedback probabilities are only valid for the %s topology", TopologyFeedback)
	}
	if c.MaxDepartures < 0 || c.MaxEvents < 0 {
		return fmt.Errorf("termination targets must be non-negative, got departures=%d events=%d", c.MaxDepartures, c.MaxEvents)
	}
	if c.MaxDepartures == 0 && c.MaxEvents == 0 {
		return fmt.Errorf("a termination target is required: set max departures or max events")
	}
	return nil
}

func validateProbability(name string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%s must be in [0, 1], got %v", name, p)
	}
	return nil
}
