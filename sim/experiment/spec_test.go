package experiment

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnetsim/qnetsim/sim"
	"github.com/qnetsim/qnetsim/sim/internal/testutil"
	"github.com/qnetsim/qnetsim/sim/replica"
	"github.com/qnetsim/qnetsim/sim/variate"
)

const sweepYAML = `
version: "1"
seed: 42
topology: routing
routing: shortest-queue
arrival_rate: 5
service_rate: 10
departures: 1000
replicas: 3
variates:
  kind: tes
  tes: {low: -0.1, high: 0.1, xi: 0.7}
sweep:
  arrival_rates: [1, 3]
  intervals: [0.01, 0.5]
`

// validSpec returns a minimal exponential single-node spec.
func validSpec() *Spec {
	s := &Spec{
		Seed:        42,
		Topology:    string(sim.TopologySingle),
		ArrivalRate: 5,
		ServiceRate: 10,
		Departures:  1000,
		Replicas:    2,
		Variates:    VariateSpec{Kind: KindExponential},
	}
	s.ApplyDefaults()
	return s
}

func TestLoadSpec_ParsesAndDefaults(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "exp.yaml", sweepYAML)

	spec, err := LoadSpec(path)
	require.NoError(t, err)
	require.NoError(t, spec.Validate())

	assert.Equal(t, int64(42), spec.Seed)
	assert.Equal(t, "shortest-queue", spec.Routing)
	assert.Equal(t, replica.DefaultConfidence, spec.Confidence)
	assert.Equal(t, RNGPartitioned, spec.RNG)
	require.NotNil(t, spec.Variates.TES)
	assert.Equal(t, variate.TESParams{Low: -0.1, High: 0.1, Xi: 0.7}, *spec.Variates.TES)
	require.NotNil(t, spec.Variates.ServiceTES, "service TES defaults to the arrival parameters")
	assert.Equal(t, *spec.Variates.TES, *spec.Variates.ServiceTES)
}

func TestLoadSpec_RejectsUnknownKeys(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "exp.yaml", "version: \"1\"\ntopolgy: single\n")

	_, err := LoadSpec(path)
	assert.ErrorContains(t, err, "topolgy")
}

func TestLoadSpec_MissingFile(t *testing.T) {
	_, err := LoadSpec(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading experiment spec")
}

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Spec)
		wantErr string
	}{
		{"valid", func(s *Spec) {}, ""},
		{"bad version", func(s *Spec) { s.Version = "2" }, "unsupported spec version"},
		{"unknown topology", func(s *Spec) { s.Topology = "mesh" }, "unknown topology"},
		{"zero replicas", func(s *Spec) { s.Replicas = 0 }, "replicas must be at least 1"},
		{"negative workers", func(s *Spec) { s.Workers = -2 }, "workers"},
		{"bad confidence", func(s *Spec) { s.Confidence = 1.2 }, "confidence level"},
		{"unknown rng", func(s *Spec) { s.RNG = "lcg" }, "unknown rng"},
		{"unknown kind", func(s *Spec) { s.Variates.Kind = "pareto" }, "unknown variates kind"},
		{"zero arrival rate", func(s *Spec) { s.ArrivalRate = 0 }, "arrival_rate must be positive"},
		{"infinite service rate", func(s *Spec) { s.ServiceRate = math.Inf(1) }, "service_rate must be a finite number"},
		{"tes without params", func(s *Spec) { s.Variates.Kind = KindTES }, "variates.tes is required"},
		{"tes params on exponential", func(s *Spec) {
			p := variate.SymmetricTES(0.1, 0.7)
			s.Variates.TES = &p
		}, "only valid for the tes kind"},
		{"bad tes xi", func(s *Spec) {
			p := variate.SymmetricTES(0.1, 1.5)
			s.Variates.Kind, s.Variates.TES = KindTES, &p
		}, "variates.tes"},
		{"replay without files", func(s *Spec) {
			s.Variates.Kind, s.ArrivalRate, s.ServiceRate = KindReplay, 0, 0
		}, "variates.replay.interarrival"},
		{"replay with rates", func(s *Spec) {
			s.Variates = VariateSpec{Kind: KindReplay, Replay: &ReplaySpec{Interarrival: "a", Service: "b"}}
		}, "not used by the replay kind"},
		{"replay replicas without placeholder", func(s *Spec) {
			s.ArrivalRate, s.ServiceRate = 0, 0
			s.Variates = VariateSpec{Kind: KindReplay, Replay: &ReplaySpec{Interarrival: "ia.txt", Service: "st-{replica}.txt"}}
		}, ReplicaPlaceholder},
		{"intervals without tes", func(s *Spec) { s.Sweep = &SweepSpec{Intervals: []float64{0.1}} }, "sweep.intervals is only valid"},
		{"negative sweep rate", func(s *Spec) { s.Sweep = &SweepSpec{ArrivalRates: []float64{1, -1}} }, "sweep.arrival_rates[1]"},
		{"routing on single", func(s *Spec) { s.Routing = "rr" }, "only valid for the routing topology"},
		{"no termination", func(s *Spec) { s.Departures = 0 }, "termination target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSpec()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSpec_ReplayWithoutTargetRunsToExhaustion(t *testing.T) {
	s := validSpec()
	s.ArrivalRate, s.ServiceRate, s.Departures = 0, 0, 0
	s.Replicas = 1
	s.Variates = VariateSpec{Kind: KindReplay, Replay: &ReplaySpec{Interarrival: "ia", Service: "st"}}

	require.NoError(t, s.Validate())
	assert.Equal(t, int64(math.MaxInt64), s.ModelConfig().MaxDepartures)
}

func TestSpec_Points(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "exp.yaml", sweepYAML)
	spec, err := LoadSpec(path)
	require.NoError(t, err)

	points := spec.Points()
	require.Len(t, points, 4)

	labels := make([]string, len(points))
	for i, p := range points {
		labels[i] = p.Label
		assert.Nil(t, p.Spec.Sweep)
		assert.NoError(t, p.Spec.Validate())
		assert.Equal(t, -0.1, p.Spec.Variates.ServiceTES.Low, "service TES is not swept")
	}
	assert.Equal(t, []string{"routing-1-10-0.01", "routing-3-10-0.01", "routing-1-10-0.5", "routing-3-10-0.5"}, labels)
	assert.Equal(t, -0.5, points[3].Spec.Variates.TES.Low)
	assert.Equal(t, 0.5, points[3].Spec.Variates.TES.High)
	assert.Equal(t, -0.01, points[0].Spec.Variates.TES.Low)
	assert.Equal(t, -0.1, spec.Variates.TES.Low, "expansion must not modify the base spec")
}

func TestSpec_PointsWithoutSweep(t *testing.T) {
	s := validSpec()
	points := s.Points()
	require.Len(t, points, 1)
	assert.Equal(t, "single-5-10", points[0].Label)
}
