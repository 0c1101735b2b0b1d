package experiment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/qnetsim/qnetsim/sim"
	"github.com/qnetsim/qnetsim/sim/replica"
	"github.com/qnetsim/qnetsim/sim/variate"
)

// Model is a NetworkModel together with the files its sources read from.
type Model struct {
	*sim.NetworkModel
	closers []interface{ Close() error }
}

// Close releases replay files held by the model.
func (m *Model) Close() error {
	var errs []error
	for _, c := range m.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// NewModel builds the model of one replica. Replica i draws from streams
// keyed by seed+i, so replicas are independent and reproducible.
func (s *Spec) NewModel(replicaIndex int, retain bool) (*Model, error) {
	cfg := s.ModelConfig()
	cfg.RetainSnapshots = retain
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	uniforms := s.uniformFactory(replicaIndex)

	model := &Model{}
	n := cfg.Topology.NumNodes()
	if cfg.Topology == sim.TopologyRouting {
		// one shared arrival stream
		n = 1
	}
	sources := make([]variate.Source, 0, n)
	for i := 0; i < n; i++ {
		node := sim.NodeID(i + 1)
		src, err := s.newSource(node, replicaIndex, uniforms)
		if err != nil {
			_ = model.Close()
			return nil, err
		}
		if c, ok := src.(interface{ Close() error }); ok {
			model.closers = append(model.closers, c)
		}
		sources = append(sources, src)
	}

	var feedback variate.Uniform
	if cfg.Topology == sim.TopologyFeedback {
		feedback = uniforms(sim.SubsystemFeedback)
	}
	network, err := sim.NewNetworkModel(cfg, sources, feedback)
	if err != nil {
		_ = model.Close()
		return nil, err
	}
	model.NetworkModel = network
	logrus.Debugf("built replica %d: topology=%s kind=%s rng=%s", replicaIndex, cfg.Topology, s.Variates.Kind, s.RNG)
	return model, nil
}

// Factory adapts NewModel to replica.Runner.
func (s *Spec) Factory() replica.Factory {
	return func(i int) (replica.Model, error) {
		m, err := s.NewModel(i, false)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// Runner returns a replica.Runner configured from the experiment.
func (s *Spec) Runner() *replica.Runner {
	r := replica.NewRunner(s.Replicas, s.Workers)
	r.Confidence = s.Confidence
	return r
}

func (s *Spec) newSource(node sim.NodeID, replicaIndex int, uniforms func(string) variate.Uniform) (variate.Source, error) {
	arrivals := uniforms(sim.SubsystemArrivals(node))
	services := uniforms(sim.SubsystemServices(node))
	switch s.Variates.Kind {
	case KindExponential:
		return variate.NewExponential(s.ArrivalRate, s.ServiceRate, arrivals, services), nil
	case KindTES:
		service := s.Variates.TES
		if s.Variates.ServiceTES != nil {
			service = s.Variates.ServiceTES
		}
		return variate.NewCorrelated(*s.Variates.TES, *service, s.ArrivalRate, s.ServiceRate, arrivals, services), nil
	case KindReplay:
		ia := ReplayPath(s.Variates.Replay.Interarrival, replicaIndex, node)
		st := ReplayPath(s.Variates.Replay.Service, replicaIndex, node)
		replay, err := variate.OpenReplay(ia, st)
		if err != nil {
			return nil, err
		}
		return replay, nil
	}
	return nil, fmt.Errorf("unknown variates kind %q", s.Variates.Kind)
}

// uniformFactory returns the per-subsystem uniform constructor of a replica.
func (s *Spec) uniformFactory(replicaIndex int) func(string) variate.Uniform {
	if s.RNG == RNGStreams {
		return func(name string) variate.Uniform {
			return variate.NewStreamUniform(s.Seed, fmt.Sprintf("replica%d/%s", replicaIndex, name))
		}
	}
	rng := sim.NewPartitionedRNG(sim.ReplicaKey(s.Seed, replicaIndex))
	return func(name string) variate.Uniform {
		return rng.ForSubsystem(name)
	}
}

// ReplayPath substitutes the replica index into a replay path template. In
// two-node topologies with per-node streams the node name is appended to the
// file stem for node 2 ("ia.txt" becomes "ia.node2.txt").
func ReplayPath(template string, replicaIndex int, node sim.NodeID) string {
	path := strings.ReplaceAll(template, ReplicaPlaceholder, strconv.Itoa(replicaIndex))
	if node <= sim.Node1 {
		return path
	}
	dot := strings.LastIndex(path, ".")
	slash := strings.LastIndex(path, "/")
	if dot <= slash+1 {
		return path + "." + node.String()
	}
	return path[:dot] + "." + node.String() + path[dot:]
}
