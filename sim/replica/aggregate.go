// Package replica runs independent replicas of a network model and turns
// their per-replica summaries into means with Student-t confidence intervals.
package replica

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultConfidence is the two-sided confidence level used when none is given.
const DefaultConfidence = 0.95

// Aggregate is the cross-replica summary of one scalar metric.
type Aggregate struct {
	N         int
	Mean      float64
	StdDev    float64 // sample standard deviation, n-1 denominator
	HalfWidth float64 // confidence interval half-width
}

// Lower returns the lower confidence bound.
func (a Aggregate) Lower() float64 { return a.Mean - a.HalfWidth }

// Upper returns the upper confidence bound.
func (a Aggregate) Upper() float64 { return a.Mean + a.HalfWidth }

// TCritical returns the p-quantile of Student's t distribution with df
// degrees of freedom, e.g. TCritical(19, 0.975) ≈ 2.093.
func TCritical(df int, p float64) (float64, error) {
	if df < 1 {
		return 0, fmt.Errorf("student-t needs at least 1 degree of freedom, got %d", df)
	}
	if math.IsNaN(p) || p <= 0 || p >= 1 {
		return 0, fmt.Errorf("student-t quantile probability must be in (0, 1), got %v", p)
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	return t.Quantile(p), nil
}

// ValidateConfidence checks a two-sided confidence level.
func ValidateConfidence(confidence float64) error {
	if math.IsNaN(confidence) || confidence <= 0 || confidence >= 1 {
		return fmt.Errorf("confidence level must be in (0, 1), got %v", confidence)
	}
	return nil
}

// Summarize computes the mean, sample standard deviation and confidence
// half-width of one metric across replicas:
//
//	mean      = Σx / R
//	stddev    = sqrt(Σ(x-mean)² / (R-1))
//	halfWidth = t(R-1, 1-(1-confidence)/2) * stddev / sqrt(R-1)
//
// At least two values are required.
func Summarize(values []float64, confidence float64) (Aggregate, error) {
	r := len(values)
	if r < 2 {
		return Aggregate{}, fmt.Errorf("confidence intervals need at least 2 replicas, got %d", r)
	}
	if err := ValidateConfidence(confidence); err != nil {
		return Aggregate{}, err
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Aggregate{}, fmt.Errorf("replica %d value must be finite, got %v", i, v)
		}
	}
	t, err := TCritical(r-1, 1-(1-confidence)/2)
	if err != nil {
		return Aggregate{}, err
	}
	sd := stat.StdDev(values, nil)
	return Aggregate{
		N:         r,
		Mean:      stat.Mean(values, nil),
		StdDev:    sd,
		HalfWidth: t * sd / math.Sqrt(float64(r-1)),
	}, nil
}
