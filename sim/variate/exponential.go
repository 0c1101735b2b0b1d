package variate

import "math"

// InverseExponential maps a uniform u in [0, 1) to an exponential variate with
// the given rate by inverting the CDF: -ln(1-u)/rate.
func InverseExponential(rate, u float64) float64 {
	// u == 1 can only come out of the stitch transform at u' == xi.
	if u >= 1 {
		u = math.Nextafter(1, 0)
	}
	return -math.Log(1-u) / rate
}

// Exponential draws independent exponential interarrival and service times.
// Arrivals and services use separate uniforms so that the two streams do not
// influence each other.
type Exponential struct {
	arrivalRate float64
	serviceRate float64
	arrivalU    Uniform
	serviceU    Uniform
}

// NewExponential creates an M/M source with arrival rate lambda and service rate mu.
func NewExponential(lambda, mu float64, arrivalU, serviceU Uniform) *Exponential {
	return &Exponential{
		arrivalRate: lambda,
		serviceRate: mu,
		arrivalU:    arrivalU,
		serviceU:    serviceU,
	}
}

// NextArrivalTime implements Source.
func (e *Exponential) NextArrivalTime() (float64, error) {
	return InverseExponential(e.arrivalRate, e.arrivalU.Float64()), nil
}

// NextServiceTime implements Source.
func (e *Exponential) NextServiceTime() (float64, error) {
	return InverseExponential(e.serviceRate, e.serviceU.Float64()), nil
}
