package sim

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnetsim/qnetsim/sim/internal/testutil"
	"github.com/qnetsim/qnetsim/sim/variate"
)

func replaySource(interarrivals, services []float64) variate.Source {
	return variate.NewReplay(
		strings.NewReader(testutil.Lines("", interarrivals...)),
		strings.NewReader(testutil.Lines("", services...)),
	)
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func exponentialSource(seed int64, lambda, mu float64) variate.Source {
	return variate.NewExponential(lambda, mu, rand.New(rand.NewSource(seed)), rand.New(rand.NewSource(seed+1000)))
}

func mustModel(t *testing.T, cfg ModelConfig, sources []variate.Source, feedback variate.Uniform) *NetworkModel {
	t.Helper()
	m, err := NewNetworkModel(cfg, sources, feedback)
	require.NoError(t, err)
	return m
}

// TestNetworkModel_SingleDepartureUtilization runs one customer that arrives
// at time 0 and is served for 5: the server was never idle.
func TestNetworkModel_SingleDepartureUtilization(t *testing.T) {
	cfg := NewModelConfig(TopologySingle, "", 0, 0, 1, 0, true)
	m := mustModel(t, cfg, []variate.Source{replaySource([]float64{0, 100}, []float64{5})}, nil)

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5.0, res.Clock)
	assert.Equal(t, int64(1), res.Departures)
	assert.InDelta(t, 1.0, res.Nodes[0].Utilization, 1e-12)
	require.Len(t, res.Snapshots, 2, "initialization snapshot plus one departure")
	assert.Equal(t, 0.0, res.Snapshots[0].Clock)
	assert.True(t, res.Snapshots[0].Busy)
	assert.Equal(t, 5.0, res.Snapshots[1].Clock)
	assert.InDelta(t, 1.0, res.Snapshots[1].Utilization, 1e-12)
	assert.False(t, res.Exhausted)
}

func TestNetworkModel_ClockStartsAtFirstInterarrival(t *testing.T) {
	cfg := NewModelConfig(TopologySingle, "", 0, 0, 1, 0, true)
	m := mustModel(t, cfg, []variate.Source{replaySource([]float64{2, 10}, []float64{1})}, nil)

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2.0, res.Snapshots[0].Clock)
	assert.Equal(t, 3.0, res.Clock)
	assert.InDelta(t, 1.0/3.0, res.Nodes[0].Utilization, 1e-12, "idle [0, 2] completed on the first arrival")
}

func TestNetworkModel_ReplayExhaustionEndsRunCleanly(t *testing.T) {
	cfg := NewModelConfig(TopologySingle, "", 0, 0, 10, 0, false)
	m := mustModel(t, cfg, []variate.Source{replaySource([]float64{1, 1, 1}, []float64{2, 2, 2})}, nil)

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Exhausted)
	assert.Equal(t, int64(1), res.Departures)
	assert.Equal(t, 3.0, res.Clock)
	assert.True(t, m.Node(Node1).Valid())
}

func TestNetworkModel_ReplayParseErrorFails(t *testing.T) {
	cfg := NewModelConfig(TopologySingle, "", 0, 0, 10, 0, false)
	src := variate.NewReplay(strings.NewReader("1\nabc\n"), strings.NewReader("2\n"))
	m := mustModel(t, cfg, []variate.Source{src}, nil)

	_, err := m.Run(context.Background())
	require.Error(t, err)
	var perr *variate.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 2, perr.Line)
}

func TestNetworkModel_RoundRobinAlternates(t *testing.T) {
	cfg := NewModelConfig(TopologyRouting, RoutingRoundRobin, 0, 0, 4, 0, false)
	m := mustModel(t, cfg, []variate.Source{replaySource(repeat(1, 20), repeat(0.5, 20))}, nil)

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.Nodes[0].Departures)
	assert.Equal(t, int64(2), res.Nodes[1].Departures)
	assert.Equal(t, 4.5, res.Clock)
}

func TestNetworkModel_ShortestQueuePrefersIdleNode1(t *testing.T) {
	cfg := NewModelConfig(TopologyRouting, RoutingShortestQueue, 0, 0, 4, 0, false)
	m := mustModel(t, cfg, []variate.Source{replaySource(repeat(1, 20), repeat(0.5, 20))}, nil)

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), res.Nodes[0].Departures)
	assert.Equal(t, int64(0), res.Nodes[1].Departures)
}

func TestNetworkModel_ShortestQueueSpillsToNode2(t *testing.T) {
	// Arrivals every 1, service 3: node 1 is still busy at the second arrival.
	cfg := NewModelConfig(TopologyRouting, RoutingShortestQueue, 0, 0, 2, 0, false)
	m := mustModel(t, cfg, []variate.Source{replaySource(repeat(1, 20), repeat(3, 20))}, nil)

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Nodes[0].Departures)
	assert.Equal(t, int64(1), res.Nodes[1].Departures)
}

func TestNetworkModel_FeedbackCarriesServiceTime(t *testing.T) {
	cfg := NewModelConfig(TopologyFeedback, "", 1, 0, 2, 0, false)
	node1 := replaySource([]float64{1, 100}, []float64{0.5})
	node2 := replaySource([]float64{1000}, nil)
	m := mustModel(t, cfg, []variate.Source{node1, node2}, testutil.NewFixedUniform(0))

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Feedbacks)
	assert.Equal(t, int64(1), res.Arrivals, "feedback is not an external arrival")
	assert.Equal(t, 2.0, res.Clock, "node 2 serves the fed-back customer for the same 0.5")
	assert.Equal(t, int64(1), res.Nodes[1].Departures)
	assert.Equal(t, int64(1), res.Nodes[1].Arrivals)
}

func TestNetworkModel_FeedbackNeverFiresAtZeroProbability(t *testing.T) {
	cfg := NewModelConfig(TopologyFeedback, "", 0, 0, 500, 0, false)
	sources := []variate.Source{exponentialSource(1, 3, 10), exponentialSource(2, 3, 10)}
	m := mustModel(t, cfg, sources, rand.New(rand.NewSource(3)))

	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(0), res.Feedbacks)
	assert.Equal(t, res.Arrivals, res.Nodes[0].Arrivals+res.Nodes[1].Arrivals)
}

// TestNetworkModel_ClockMonotonicAndLive drives every topology with
// exponential variates and checks time never goes backwards.
func TestNetworkModel_ClockMonotonicAndLive(t *testing.T) {
	tests := []struct {
		name string
		cfg  ModelConfig
	}{
		{"single", NewModelConfig(TopologySingle, "", 0, 0, 2000, 0, false)},
		{"round-robin", NewModelConfig(TopologyRouting, RoutingRoundRobin, 0, 0, 2000, 0, false)},
		{"shortest-queue", NewModelConfig(TopologyRouting, RoutingShortestQueue, 0, 0, 2000, 0, false)},
		{"feedback", NewModelConfig(TopologyFeedback, "", 0.3, 0.2, 2000, 0, false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources := []variate.Source{exponentialSource(7, 5, 10), exponentialSource(8, 5, 10)}
			if tt.cfg.Topology != TopologyFeedback {
				sources = sources[:1]
			}
			m := mustModel(t, tt.cfg, sources, rand.New(rand.NewSource(9)))

			last := 0.0
			events := 0
			m.OnEvent(func(ev Event) {
				events++
				assert.GreaterOrEqual(t, ev.Time, last)
				assert.Equal(t, ev.Time, m.Clock())
				for _, n := range m.Nodes {
					assert.True(t, n.Valid())
				}
				last = ev.Time
			})

			res, err := m.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, int64(2000), res.Departures)
			assert.Equal(t, int64(events), res.Events)
			assert.Greater(t, res.Clock, 0.0)
			for _, n := range res.Nodes {
				assert.GreaterOrEqual(t, n.Utilization, 0.0)
				assert.LessOrEqual(t, n.Utilization, 1.0)
			}
		})
	}
}

func TestNetworkModel_EventTarget(t *testing.T) {
	cfg := NewModelConfig(TopologySingle, "", 0, 0, 0, 25, false)
	m := mustModel(t, cfg, []variate.Source{exponentialSource(1, 1, 2)}, nil)

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(25), res.Events)
}

func TestNetworkModel_Deterministic(t *testing.T) {
	run := func() *Result {
		cfg := NewModelConfig(TopologyFeedback, "", 0.4, 0.1, 1000, 0, false)
		sources := []variate.Source{exponentialSource(11, 4, 10), exponentialSource(12, 4, 10)}
		m := mustModel(t, cfg, sources, rand.New(rand.NewSource(13)))
		res, err := m.Run(context.Background())
		require.NoError(t, err)
		return res
	}
	assert.Equal(t, run(), run())
}

func TestNetworkModel_CancelledContext(t *testing.T) {
	cfg := NewModelConfig(TopologySingle, "", 0, 0, 10, 0, false)
	m := mustModel(t, cfg, []variate.Source{exponentialSource(1, 1, 2)}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNetworkModel_RunTwiceFails(t *testing.T) {
	cfg := NewModelConfig(TopologySingle, "", 0, 0, 10, 0, false)
	m := mustModel(t, cfg, []variate.Source{exponentialSource(1, 1, 2)}, nil)

	_, err := m.Run(context.Background())
	require.NoError(t, err)
	_, err = m.Run(context.Background())
	assert.Error(t, err)
}

func TestNewNetworkModel_Errors(t *testing.T) {
	src := exponentialSource(1, 1, 2)
	tests := []struct {
		name     string
		cfg      ModelConfig
		sources  []variate.Source
		feedback variate.Uniform
		wantErr  string
	}{
		{"invalid config", NewModelConfig(TopologySingle, "", 0, 0, 0, 0, false), []variate.Source{src}, nil, "termination target"},
		{"too many sources", NewModelConfig(TopologySingle, "", 0, 0, 1, 0, false), []variate.Source{src, src}, nil, "variate sources"},
		{"nil source", NewModelConfig(TopologySingle, "", 0, 0, 1, 0, false), []variate.Source{nil}, nil, "is nil"},
		{"feedback without uniform", NewModelConfig(TopologyFeedback, "", 0.5, 0.5, 1, 0, false), []variate.Source{src, src}, nil, "feedback uniform"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNetworkModel(tt.cfg, tt.sources, tt.feedback)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
