package sim

// QueueNode is a single FIFO server: a busy flag, the service times of the
// customers waiting behind the one in service, and idle-time accounting.
type QueueNode struct {
	ID NodeID

	busy           bool
	backlog        []float64 // service times of waiting customers, head first
	cumulativeIdle float64   // total length of completed idle periods
	idleSince      float64   // start of the current idle period
	departures     int64
	arrivals       int64

	Delay     *DelayEstimator
	Histogram QueueHistogram
}

// NewQueueNode creates an idle node whose first idle period starts at time 0.
func NewQueueNode(id NodeID) *QueueNode {
	return &QueueNode{
		ID:      id,
		backlog: make([]float64, 0),
		Delay:   &DelayEstimator{},
	}
}

// Arrive admits a customer with the given service time at clock.
// It returns true when the server was idle and the customer goes straight
// into service; the caller must then schedule its departure. Otherwise the
// customer joins the backlog.
func (n *QueueNode) Arrive(clock, serviceTime float64) bool {
	n.arrivals++
	if n.busy {
		n.backlog = append(n.backlog, serviceTime)
		return false
	}
	n.busy = true
	n.cumulativeIdle += clock - n.idleSince
	return true
}

// Depart completes the customer in service at clock. If another customer is
// waiting its service time is returned with ok == true and the node stays busy;
// otherwise the node goes idle.
func (n *QueueNode) Depart(clock float64) (next float64, ok bool) {
	n.departures++
	if len(n.backlog) > 0 {
		next = n.backlog[0]
		n.backlog = n.backlog[1:]
		return next, true
	}
	n.busy = false
	n.idleSince = clock
	return 0, false
}

// Busy reports whether a customer is in service.
func (n *QueueNode) Busy() bool { return n.busy }

// QueueSize is the number of customers waiting, excluding the one in service.
func (n *QueueNode) QueueSize() int { return len(n.backlog) }

// InSystem is the number of customers at the node, including the one in service.
func (n *QueueNode) InSystem() int {
	if n.busy {
		return len(n.backlog) + 1
	}
	return len(n.backlog)
}

// Departures returns the number of customers that completed service here.
func (n *QueueNode) Departures() int64 { return n.departures }

// Arrivals returns the number of customers admitted, feedback included.
func (n *QueueNode) Arrivals() int64 { return n.arrivals }

// CumulativeIdle returns the total length of completed idle periods.
func (n *QueueNode) CumulativeIdle() float64 { return n.cumulativeIdle }

// Utilization is the busy fraction of [0, clock]: (clock - idle) / clock.
// Only completed idle periods count as idle. Zero at clock 0.
func (n *QueueNode) Utilization(clock float64) float64 {
	if clock == 0 {
		return 0
	}
	return (clock - n.cumulativeIdle) / clock
}

// Valid reports whether the idle/backlog invariant holds: an idle server
// never has customers waiting.
func (n *QueueNode) Valid() bool {
	return n.busy || len(n.backlog) == 0
}
