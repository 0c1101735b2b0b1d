package sim

import (
	"fmt"
	"strings"
)

// Routing policy names accepted by NewRoutingPolicy.
const (
	RoutingRoundRobin    = "round-robin"
	RoutingShortestQueue = "shortest-queue"
)

// RoutingPolicy decides which node an incoming external arrival joins.
// Implementations receive the nodes in index order (node 1 first).
type RoutingPolicy interface {
	ChooseNode(nodes []*QueueNode) NodeID
	// ResolveAtDequeue reports whether the decision depends on node state and
	// must therefore be taken when the arrival fires rather than when it is scheduled.
	ResolveAtDequeue() bool
}

// RoundRobin alternates between two nodes with a single toggle.
// The zero value returns Node1 first: Node1, Node2, Node1, ...
type RoundRobin struct {
	toggle bool
}

// ChooseNode implements RoutingPolicy for RoundRobin.
func (rr *RoundRobin) ChooseNode(nodes []*QueueNode) NodeID {
	if len(nodes) < 2 {
		panic("RoundRobin.ChooseNode: need two nodes")
	}
	rr.toggle = !rr.toggle
	if rr.toggle {
		return Node1
	}
	return Node2
}

// ResolveAtDequeue implements RoutingPolicy; the toggle ignores node state.
func (rr *RoundRobin) ResolveAtDequeue() bool { return false }

// ShortestQueue prefers an idle node; when every node is busy it picks the one
// with the fewest waiting customers. Ties go to the lowest node index.
type ShortestQueue struct{}

// ChooseNode implements RoutingPolicy for ShortestQueue.
func (sq *ShortestQueue) ChooseNode(nodes []*QueueNode) NodeID {
	if len(nodes) == 0 {
		panic("ShortestQueue.ChooseNode: no nodes")
	}
	for _, n := range nodes {
		if !n.Busy() {
			return n.ID
		}
	}
	target := nodes[0]
	for _, n := range nodes[1:] {
		if n.QueueSize() < target.QueueSize() {
			target = n
		}
	}
	return target.ID
}

// ResolveAtDequeue implements RoutingPolicy; the choice reads queue state.
func (sq *ShortestQueue) ResolveAtDequeue() bool { return true }

// NewRoutingPolicy creates a routing policy by name. Accepted names are
// "round-robin" (or "rr") and "shortest-queue" (or "stq"), case-insensitive.
func NewRoutingPolicy(name string) (RoutingPolicy, error) {
	switch strings.ToLower(name) {
	case RoutingRoundRobin, "rr":
		return &RoundRobin{}, nil
	case RoutingShortestQueue, "stq":
		return &ShortestQueue{}, nil
	default:
		return nil, fmt.Errorf("unknown routing policy %q; valid: %s, %s", name, RoutingRoundRobin, RoutingShortestQueue)
	}
}

// IsValidRoutingPolicy reports whether name is accepted by NewRoutingPolicy.
func IsValidRoutingPolicy(name string) bool {
	_, err := NewRoutingPolicy(name)
	return err == nil
}
