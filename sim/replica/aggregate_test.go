package replica

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCritical(t *testing.T) {
	tests := []struct {
		df   int
		p    float64
		want float64
	}{
		{1, 0.975, 12.706},
		{4, 0.975, 2.776},
		{19, 0.975, 2.093},
		{19, 0.95, 1.729},
		{1000, 0.975, 1.962},
	}
	for _, tt := range tests {
		got, err := TCritical(tt.df, tt.p)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-3, "TCritical(%d, %v)", tt.df, tt.p)
	}
}

func TestTCritical_InvalidInputs(t *testing.T) {
	_, err := TCritical(0, 0.975)
	assert.Error(t, err)
	_, err = TCritical(5, 1)
	assert.Error(t, err)
	_, err = TCritical(5, 0)
	assert.Error(t, err)
}

// TestSummarize_OneToTwenty checks the interval of the values 1..20.
func TestSummarize_OneToTwenty(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i + 1)
	}

	agg, err := Summarize(values, 0.95)
	require.NoError(t, err)

	sd := math.Sqrt(35)
	assert.Equal(t, 20, agg.N)
	assert.InDelta(t, 10.5, agg.Mean, 1e-12)
	assert.InDelta(t, sd, agg.StdDev, 1e-12)
	assert.InDelta(t, 2.093*sd/math.Sqrt(19), agg.HalfWidth, 1e-3)
	assert.InDelta(t, agg.Mean-agg.HalfWidth, agg.Lower(), 1e-12)
	assert.InDelta(t, agg.Mean+agg.HalfWidth, agg.Upper(), 1e-12)
}

func TestSummarize_ConstantValues(t *testing.T) {
	agg, err := Summarize([]float64{3, 3, 3}, 0.95)
	require.NoError(t, err)
	assert.Equal(t, 3.0, agg.Mean)
	assert.Equal(t, 0.0, agg.StdDev)
	assert.Equal(t, 0.0, agg.HalfWidth)
}

func TestSummarize_Errors(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		confidence float64
		wantErr    string
	}{
		{"no replicas", nil, 0.95, "at least 2 replicas"},
		{"one replica", []float64{1}, 0.95, "at least 2 replicas"},
		{"confidence 1", []float64{1, 2}, 1, "confidence level"},
		{"confidence 0", []float64{1, 2}, 0, "confidence level"},
		{"nan value", []float64{1, math.NaN()}, 0.95, "finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Summarize(tt.values, tt.confidence)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestBuildReport(t *testing.T) {
	summaries := []Summary{
		{Replica: 0, Metrics: map[string]float64{"delay": 1}, Histograms: map[string][]float64{"occupancy": {1, 3}}},
		{Replica: 1, Metrics: map[string]float64{"delay": 3}, Histograms: map[string][]float64{"occupancy": {3, 5}}, Exhausted: true},
	}

	rep, err := BuildReport(summaries, 0.95)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Replicas)
	assert.Equal(t, 1, rep.Exhausted)
	assert.Equal(t, []string{"delay"}, rep.MetricNames())
	assert.Equal(t, []string{"occupancy"}, rep.HistogramNames())
	assert.InDelta(t, 2.0, rep.Metrics["delay"].Mean, 1e-12)
	require.Len(t, rep.Histograms["occupancy"], 2)
	assert.InDelta(t, 2.0, rep.Histograms["occupancy"][0].Mean, 1e-12)
	assert.InDelta(t, 4.0, rep.Histograms["occupancy"][1].Mean, 1e-12)
}

func TestBuildReport_MismatchedSummaries(t *testing.T) {
	missing := []Summary{
		{Replica: 0, Metrics: map[string]float64{"delay": 1}},
		{Replica: 1, Metrics: map[string]float64{}},
	}
	_, err := BuildReport(missing, 0.95)
	assert.ErrorContains(t, err, `no metric "delay"`)

	shape := []Summary{
		{Replica: 0, Histograms: map[string][]float64{"occupancy": {1, 2}}},
		{Replica: 1, Histograms: map[string][]float64{"occupancy": {1}}},
	}
	_, err = BuildReport(shape, 0.95)
	assert.ErrorContains(t, err, "does not have 2 bins")
}
