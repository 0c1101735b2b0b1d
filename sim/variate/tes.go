package variate

import (
	"fmt"
	"math"
)

// TESParams configures a TES (Transform-Expand-Sample) process.
// Innovations are drawn from [Low, High); the bounds may come in either order
// because the scale is Low + (High-Low)*v. Xi is the stitching parameter.
type TESParams struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
	Xi   float64 `yaml:"xi"`
}

// SymmetricTES returns the parameters for innovations drawn from
// [-interval, interval), scaled as -interval + 2*interval*v.
func SymmetricTES(interval, xi float64) TESParams {
	return TESParams{Low: -interval, High: interval, Xi: xi}
}

// Validate checks that xi lies strictly inside (0, 1) and the bounds are finite.
func (p TESParams) Validate() error {
	if math.IsNaN(p.Xi) || p.Xi <= 0 || p.Xi >= 1 {
		return fmt.Errorf("tes xi must be in (0, 1), got %v", p.Xi)
	}
	if math.IsNaN(p.Low) || math.IsInf(p.Low, 0) || math.IsNaN(p.High) || math.IsInf(p.High, 0) {
		return fmt.Errorf("tes interval bounds must be finite, got [%v, %v)", p.Low, p.High)
	}
	return nil
}

// Modulo1 returns the fractional part x - floor(x), always in [0, 1).
func Modulo1(x float64) float64 {
	return x - math.Floor(x)
}

// Stitch applies the stitching transform with parameter xi:
// u/xi for u <= xi, (1-u)/(1-xi) otherwise.
func Stitch(u, xi float64) float64 {
	if u <= xi {
		return u / xi
	}
	return (1 - u) / (1 - xi)
}

// TES generates serially correlated uniforms by modulo-1 addition of scaled
// innovations to the previous background uniform, followed by stitching.
type TES struct {
	params TESParams
	prev   float64 // previous background uniform U', in [0, 1)
}

// NewTES creates a process whose background state starts at initial.
func NewTES(params TESParams, initial float64) *TES {
	return &TES{params: params, prev: Modulo1(initial)}
}

// Step consumes one raw uniform v and returns the next stitched uniform.
func (t *TES) Step(v float64) float64 {
	scaled := t.params.Low + (t.params.High-t.params.Low)*v
	u := Modulo1(t.prev + scaled)
	t.prev = u
	return Stitch(u, t.params.Xi)
}

// Previous returns the current background uniform.
func (t *TES) Previous() float64 { return t.prev }

// Current returns the stitched value of the current background uniform
// without advancing the process.
func (t *TES) Current() float64 {
	return Stitch(t.prev, t.params.Xi)
}

// Correlated draws TES-correlated exponential interarrival and service times.
// Each stream has its own TES state and its own uniform generator.
type Correlated struct {
	arrival     *TES
	service     *TES
	arrivalU    Uniform
	serviceU    Uniform
	arrivalRate float64
	serviceRate float64
}

// NewCorrelated creates a correlated source with arrival rate lambda and
// service rate mu. The initial background uniform of each stream is the first
// draw of that stream's generator.
func NewCorrelated(arrivalParams, serviceParams TESParams, lambda, mu float64, arrivalU, serviceU Uniform) *Correlated {
	return &Correlated{
		arrival:     NewTES(arrivalParams, arrivalU.Float64()),
		service:     NewTES(serviceParams, serviceU.Float64()),
		arrivalU:    arrivalU,
		serviceU:    serviceU,
		arrivalRate: lambda,
		serviceRate: mu,
	}
}

// NextArrivalTime implements Source.
func (c *Correlated) NextArrivalTime() (float64, error) {
	return InverseExponential(c.arrivalRate, c.arrival.Step(c.arrivalU.Float64())), nil
}

// NextServiceTime implements Source.
func (c *Correlated) NextServiceTime() (float64, error) {
	return InverseExponential(c.serviceRate, c.service.Step(c.serviceU.Float64())), nil
}

// GenerateTES transforms a fixed list of raw uniforms into correlated
// exponential times. The first uniform seeds the background state and yields
// the first output; every later uniform is one innovation.
func GenerateTES(params TESParams, rate float64, uniforms []float64) []float64 {
	if len(uniforms) == 0 {
		return nil
	}
	t := NewTES(params, uniforms[0])
	out := make([]float64, 0, len(uniforms))
	out = append(out, InverseExponential(rate, t.Current()))
	for _, v := range uniforms[1:] {
		out = append(out, InverseExponential(rate, t.Step(v)))
	}
	return out
}
