package sim

import "fmt"

// NodeID identifies a queueing node. Node IDs are 1-based so that the zero
// value can stand for an arrival whose node has not been decided yet.
type NodeID int

const (
	// Unassigned marks an external arrival that is routed when it is dequeued.
	Unassigned NodeID = iota
	Node1
	Node2
)

// Index returns the zero-based slot of the node in NetworkModel.Nodes.
func (n NodeID) Index() int {
	return int(n) - 1
}

func (n NodeID) String() string {
	if n == Unassigned {
		return "unassigned"
	}
	return fmt.Sprintf("node%d", int(n))
}

// EventKind distinguishes the transitions a node can go through.
type EventKind int

const (
	Arrival EventKind = iota
	Departure
	// Feedback is an arrival re-entering the network from the other node.
	// It is handled like an Arrival but never schedules a new external arrival.
	Feedback
)

func (k EventKind) String() string {
	switch k {
	case Arrival:
		return "Arrival"
	case Departure:
		return "Departure"
	case Feedback:
		return "Feedback"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is an entry of the future event list. Events are values and are never
// modified after they are scheduled.
type Event struct {
	Time        float64   // simulated time at which the event fires
	Kind        EventKind // transition to apply
	Node        NodeID    // target node; Unassigned only for shortest-queue arrivals
	ServiceTime float64   // service duration carried by departures and feedback arrivals
}

func (e Event) String() string {
	return fmt.Sprintf("(%s; %s; %.9g)", e.Kind, e.Node, e.Time)
}
