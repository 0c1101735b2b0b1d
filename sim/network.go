package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/qnetsim/qnetsim/sim/variate"
)

// contextCheckInterval is how many events run between cancellation checks.
const contextCheckInterval = 4096

// NodeResult is the end-of-run state of one node.
type NodeResult struct {
	ID          NodeID
	Utilization float64
	Arrivals    int64
	Departures  int64
	MeanDelay   float64
	Histogram   []int64
	Busy        bool
	QueueSize   int
}

// Result is what a finished run reports.
type Result struct {
	Clock      float64
	Events     int64 // processed events, excluding initialization
	Departures int64
	Arrivals   int64 // external arrivals admitted
	Feedbacks  int64
	// Exhausted is true when a replay stream ran dry before the termination
	// target; the statistics cover the partial run.
	Exhausted bool
	Nodes     []NodeResult
	Summary   CollectorSummary
	Snapshots []StatisticSnapshot
}

// NetworkModel is the simulation kernel: it owns the clock, the future event
// list and the nodes, and applies arrival, departure and feedback transitions
// until the termination target is met.
type NetworkModel struct {
	Config    ModelConfig
	Nodes     []*QueueNode
	Scheduler *Scheduler
	Collector *StatisticsCollector

	sources   []variate.Source
	routing   RoutingPolicy
	feedbackU variate.Uniform
	onEvent   func(Event)

	clock      float64
	events     int64
	departures int64
	arrivals   int64
	feedbacks  int64
	exhausted  bool
	started    bool
}

// NewNetworkModel creates a model. sources holds either one Source shared by
// every node or one Source per node. feedback is the uniform used for feedback
// coin flips and is required only by the feedback topology.
func NewNetworkModel(cfg ModelConfig, sources []variate.Source, feedback variate.Uniform) (*NetworkModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	numNodes := cfg.Topology.NumNodes()
	if len(sources) != 1 && len(sources) != numNodes {
		return nil, fmt.Errorf("%s topology needs 1 or %d variate sources, got %d", cfg.Topology, numNodes, len(sources))
	}
	for i, s := range sources {
		if s == nil {
			return nil, fmt.Errorf("variate source %d is nil", i)
		}
	}
	if cfg.Topology == TopologyFeedback && feedback == nil {
		return nil, fmt.Errorf("%s topology needs a feedback uniform", TopologyFeedback)
	}

	m := &NetworkModel{
		Config:    cfg,
		Nodes:     make([]*QueueNode, numNodes),
		Scheduler: NewScheduler(),
		Collector: NewStatisticsCollector(cfg.RetainSnapshots),
		sources:   sources,
		feedbackU: feedback,
	}
	for i := range m.Nodes {
		m.Nodes[i] = NewQueueNode(NodeID(i + 1))
	}
	if cfg.Topology == TopologyRouting {
		policy, err := NewRoutingPolicy(cfg.Routing)
		if err != nil {
			return nil, err
		}
		m.routing = policy
	}
	return m, nil
}

// OnEvent registers a hook called after every processed event.
func (m *NetworkModel) OnEvent(hook func(Event)) {
	m.onEvent = hook
}

// Clock returns the current simulated time.
func (m *NetworkModel) Clock() float64 { return m.clock }

// Node returns the node with the given ID.
func (m *NetworkModel) Node(id NodeID) *QueueNode {
	return m.Nodes[id.Index()]
}

// Run drives the simulation to its termination target. An exhausted replay
// stream ends the run early without an error; a malformed stream, or a
// cancelled ctx, is returned as an error.
func (m *NetworkModel) Run(ctx context.Context) (*Result, error) {
	if m.started {
		return nil, errors.New("network model has already been run")
	}
	m.started = true
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulation not started: %w", err)
	}
	logrus.Infof("Starting %s simulation: departures=%d events=%d routing=%q p=%v q=%v",
		m.Config.Topology, m.Config.MaxDepartures, m.Config.MaxEvents, m.Config.Routing, m.Config.FeedbackP, m.Config.FeedbackQ)

	if err := m.initialize(); err != nil {
		return m.stop(err)
	}
	for !m.done() {
		if m.Scheduler.IsEmpty() {
			panic(fmt.Sprintf("future event list drained at clock %v before termination", m.clock))
		}
		ev := m.Scheduler.PopMinimum()
		if ev.Time < m.clock {
			panic(fmt.Sprintf("clock went backwards: %v < %v", ev.Time, m.clock))
		}
		m.clock = ev.Time
		m.events++
		logrus.Debugf("[clock %.6f] executing %s", m.clock, ev)

		if err := m.execute(ev); err != nil {
			return m.stop(err)
		}
		m.checkInvariants()
		if m.onEvent != nil {
			m.onEvent(ev)
		}
		if m.events%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("simulation interrupted at clock %v after %d events: %w", m.clock, m.events, err)
			}
		}
	}
	logrus.Infof("[clock %.6f] Simulation ended after %d events, %d departures", m.clock, m.events, m.departures)
	return m.result(), nil
}

// stop ends the run on an error from a transition. Stream exhaustion is the
// expected end of a replay run and yields the partial result.
func (m *NetworkModel) stop(err error) (*Result, error) {
	if errors.Is(err, variate.ErrExhausted) {
		m.exhausted = true
		logrus.Infof("[clock %.6f] Variate stream exhausted after %d events, %d departures", m.clock, m.events, m.departures)
		return m.result(), nil
	}
	return nil, fmt.Errorf("simulation failed at clock %v: %w", m.clock, err)
}

func (m *NetworkModel) done() bool {
	if m.Config.MaxDepartures > 0 && m.departures >= m.Config.MaxDepartures {
		return true
	}
	if m.Config.MaxEvents > 0 && m.events >= m.Config.MaxEvents {
		return true
	}
	return false
}

// initialize starts the clock at the first interarrival time and admits the
// first customer. The feedback topology also starts node 2's arrival stream.
func (m *NetworkModel) initialize() error {
	first, err := m.arrivalSource(Node1).NextArrivalTime()
	if err != nil {
		return err
	}
	m.clock = first

	target := Node1
	if m.routing != nil {
		target = m.routing.ChooseNode(m.Nodes)
	}
	if err := m.admit(target, 0, true); err != nil {
		return err
	}

	if m.Config.Topology == TopologyFeedback {
		ia, err := m.arrivalSource(Node2).NextArrivalTime()
		if err != nil {
			return err
		}
		m.Scheduler.Insert(Event{Time: m.clock + ia, Kind: Arrival, Node: Node2})
	}
	if m.Config.Topology == TopologySingle {
		m.snapshot(Node1)
	}
	return nil
}

func (m *NetworkModel) execute(ev Event) error {
	switch ev.Kind {
	case Arrival:
		target := ev.Node
		if target == Unassigned {
			target = m.routing.ChooseNode(m.Nodes)
		}
		return m.admit(target, 0, true)
	case Feedback:
		m.feedbacks++
		return m.admit(ev.Node, ev.ServiceTime, false)
	case Departure:
		m.depart(ev)
		return nil
	default:
		panic(fmt.Sprintf("unknown event kind %v", ev.Kind))
	}
}

// admit applies an arrival at node. External arrivals draw a fresh service
// time and schedule the next external arrival; feedback arrivals reuse the
// carried service time. All draws happen before any state changes.
func (m *NetworkModel) admit(id NodeID, carried float64, external bool) error {
	service := carried
	var interarrival float64
	if external {
		var err error
		if service, err = m.serviceSource(id).NextServiceTime(); err != nil {
			return err
		}
		if interarrival, err = m.arrivalSource(id).NextArrivalTime(); err != nil {
			return err
		}
	}

	node := m.Node(id)
	if node.Arrive(m.clock, service) {
		m.Scheduler.Insert(Event{Time: m.clock + service, Kind: Departure, Node: id, ServiceTime: service})
	}
	node.Delay.Update(m.clock, service)

	if external {
		m.arrivals++
		m.Scheduler.Insert(Event{Time: m.clock + interarrival, Kind: Arrival, Node: m.nextArrivalNode(id)})
	}
	return nil
}

// nextArrivalNode tags the next external arrival. Feedback nodes own their
// arrival streams; the routing topology either decides now or defers the
// decision to dequeue time when the policy depends on queue state.
func (m *NetworkModel) nextArrivalNode(current NodeID) NodeID {
	switch m.Config.Topology {
	case TopologyFeedback:
		return current
	case TopologyRouting:
		if m.routing.ResolveAtDequeue() {
			return Unassigned
		}
		return m.routing.ChooseNode(m.Nodes)
	default:
		return Node1
	}
}

func (m *NetworkModel) depart(ev Event) {
	node := m.Node(ev.Node)
	if next, ok := node.Depart(m.clock); ok {
		m.Scheduler.Insert(Event{Time: m.clock + next, Kind: Departure, Node: ev.Node, ServiceTime: next})
	}
	m.departures++
	node.Histogram.Observe(node.QueueSize())

	if m.Config.Topology == TopologyFeedback {
		prob, other := m.Config.FeedbackP, Node2
		if ev.Node == Node2 {
			prob, other = m.Config.FeedbackQ, Node1
		}
		if m.feedbackU.Float64() < prob {
			m.Scheduler.Insert(Event{Time: m.clock, Kind: Feedback, Node: other, ServiceTime: ev.ServiceTime})
		}
	}
	m.snapshot(ev.Node)
}

func (m *NetworkModel) snapshot(id NodeID) {
	node := m.Node(id)
	m.Collector.Record(StatisticSnapshot{
		Clock:       m.clock,
		Node:        id,
		Departures:  node.Departures(),
		QueueSize:   node.QueueSize(),
		Busy:        node.Busy(),
		Delay:       node.Delay.Current(),
		Utilization: node.Utilization(m.clock),
		Pending:     m.Scheduler.Len(),
	})
}

func (m *NetworkModel) checkInvariants() {
	for _, n := range m.Nodes {
		if !n.Valid() {
			panic(fmt.Sprintf("%s is idle with %d customers waiting at clock %v", n.ID, n.QueueSize(), m.clock))
		}
	}
}

// arrivalSource returns the source of the external arrival stream feeding id.
// The routing topology has a single external stream.
func (m *NetworkModel) arrivalSource(id NodeID) variate.Source {
	if m.Config.Topology == TopologyRouting {
		return m.sources[0]
	}
	return m.serviceSource(id)
}

func (m *NetworkModel) serviceSource(id NodeID) variate.Source {
	return m.sources[min(id.Index(), len(m.sources)-1)]
}

func (m *NetworkModel) result() *Result {
	r := &Result{
		Clock:      m.clock,
		Events:     m.events,
		Departures: m.departures,
		Arrivals:   m.arrivals,
		Feedbacks:  m.feedbacks,
		Exhausted:  m.exhausted,
		Nodes:      make([]NodeResult, len(m.Nodes)),
		Summary:    m.Collector.Summary(),
		Snapshots:  m.Collector.Snapshots(),
	}
	for i, n := range m.Nodes {
		r.Nodes[i] = NodeResult{
			ID:          n.ID,
			Utilization: n.Utilization(m.clock),
			Arrivals:    n.Arrivals(),
			Departures:  n.Departures(),
			MeanDelay:   n.Delay.Mean(),
			Histogram:   n.Histogram.Counts(),
			Busy:        n.Busy(),
			QueueSize:   n.QueueSize(),
		}
	}
	return r
}
