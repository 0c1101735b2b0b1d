package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qnetsim/qnetsim/sim"
	"github.com/qnetsim/qnetsim/sim/experiment"
	"github.com/qnetsim/qnetsim/sim/variate"
)

var (
	// Experiment file; when set, model flags other than --seed are rejected
	configPath string

	// Model flags
	seed            int64   // Seed for the partitioned RNG
	topology        string  // single, routing or feedback
	routingPolicy   string  // round-robin or shortest-queue
	feedbackP       float64 // node 1 -> node 2 feedback probability
	feedbackQ       float64 // node 2 -> node 1 feedback probability
	arrivalRate     float64 // lambda
	serviceRate     float64 // mu
	variateKind     string  // exponential, tes or replay
	tesInterval     float64 // arrival TES innovation half-width
	serviceInterval float64 // service TES innovation half-width
	tesXi           float64 // TES stitching parameter
	iaFile          string  // replayed interarrival times
	stFile          string  // replayed service times
	maxDepartures   int64   // departure target
	maxEvents       int64   // processed-event target
	rngKind         string  // partitioned or mrg32k3a
)

// modelFlags lists the flags that describe a model and so conflict with --config.
var modelFlags = []string{
	"topology", "routing", "p", "q", "arrival-rate", "service-rate", "variates",
	"interval", "service-interval", "xi", "ia-file", "st-file", "departures", "events", "rng",
}

func registerModelFlags(c *cobra.Command) {
	c.Flags().StringVar(&configPath, "config", "", "Path to YAML experiment file")
	c.Flags().Int64Var(&seed, "seed", 42, "Seed for random variate generation")
	c.Flags().StringVar(&topology, "topology", string(sim.TopologySingle), "Network topology (single, routing, feedback)")
	c.Flags().StringVar(&routingPolicy, "routing", "", "Routing policy for the routing topology (round-robin, shortest-queue)")
	c.Flags().Float64Var(&feedbackP, "p", 0, "Feedback probability node 1 -> node 2")
	c.Flags().Float64Var(&feedbackQ, "q", 0, "Feedback probability node 2 -> node 1")
	c.Flags().Float64Var(&arrivalRate, "arrival-rate", 1, "Arrival rate lambda")
	c.Flags().Float64Var(&serviceRate, "service-rate", 10, "Service rate mu")
	c.Flags().StringVar(&variateKind, "variates", experiment.KindExponential, "Variate kind (exponential, tes, replay)")
	c.Flags().Float64Var(&tesInterval, "interval", 0.1, "TES innovation half-width of interarrival times")
	c.Flags().Float64Var(&serviceInterval, "service-interval", 0.5, "TES innovation half-width of service times")
	c.Flags().Float64Var(&tesXi, "xi", 0.7, "TES stitching parameter in (0, 1)")
	c.Flags().StringVar(&iaFile, "ia-file", "", "Interarrival times file for replay")
	c.Flags().StringVar(&stFile, "st-file", "", "Service times file for replay")
	c.Flags().Int64Var(&maxDepartures, "departures", 110000, "Stop after this many departures (0 disables)")
	c.Flags().Int64Var(&maxEvents, "events", 0, "Stop after this many processed events (0 disables)")
	c.Flags().StringVar(&rngKind, "rng", experiment.RNGPartitioned, "Random streams (partitioned, mrg32k3a)")
	c.Flags().DurationVar(&maxWallTime, "max-wall-time", 0, "Abort the run after this much wall-clock time (0 disables)")
}

// loadSpec builds the experiment spec from --config or from the model flags.
// The returned Spec is defaulted but not validated.
func loadSpec(cmd *cobra.Command) *experiment.Spec {
	if configPath != "" {
		for _, name := range modelFlags {
			if cmd.Flags().Changed(name) {
				logrus.Fatalf("--%s cannot be combined with --config; set it in the experiment file", name)
			}
		}
		spec, err := experiment.LoadSpec(configPath)
		if err != nil {
			logrus.Fatalf("Failed to load experiment config: %v", err)
		}
		if cmd.Flags().Changed("seed") {
			logrus.Infof("CLI --seed %d overrides experiment seed %d", seed, spec.Seed)
			spec.Seed = seed
		}
		return spec
	}

	spec := &experiment.Spec{
		Seed:       seed,
		Topology:   topology,
		Routing:    routingPolicy,
		Feedback:   experiment.FeedbackSpec{P: feedbackP, Q: feedbackQ},
		Departures: maxDepartures,
		Events:     maxEvents,
		Replicas:   1,
		RNG:        rngKind,
		Variates:   experiment.VariateSpec{Kind: variateKind},
	}
	switch variateKind {
	case experiment.KindReplay:
		spec.Variates.Replay = &experiment.ReplaySpec{Interarrival: iaFile, Service: stFile}
		if !cmd.Flags().Changed("departures") {
			spec.Departures = 0
		}
	case experiment.KindTES:
		arrival := variate.SymmetricTES(tesInterval, tesXi)
		service := variate.SymmetricTES(serviceInterval, tesXi)
		spec.Variates.TES = &arrival
		spec.Variates.ServiceTES = &service
		spec.ArrivalRate, spec.ServiceRate = arrivalRate, serviceRate
	default:
		spec.ArrivalRate, spec.ServiceRate = arrivalRate, serviceRate
	}
	spec.ApplyDefaults()
	return spec
}
