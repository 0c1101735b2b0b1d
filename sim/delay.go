package sim

// DelayEstimator tracks the waiting time of successive customers at one FIFO
// node with the Lindley recursion
//
//	d(n) = max(0, d(n-1) + a(n-1) + s(n-1) - a(n))
//
// where a is the arrival instant and s the service time.
type DelayEstimator struct {
	current             float64
	previousArrivalTime float64
	previousServiceTime float64

	sum   float64
	count int64
}

// Update applies one arrival and returns the new customer's delay.
func (d *DelayEstimator) Update(arrivalTime, serviceTime float64) float64 {
	d.current = max(0, d.current+d.previousArrivalTime+d.previousServiceTime-arrivalTime)
	d.previousArrivalTime = arrivalTime
	d.previousServiceTime = serviceTime
	d.sum += d.current
	d.count++
	return d.current
}

// Current returns the delay of the most recent arrival.
func (d *DelayEstimator) Current() float64 { return d.current }

// Count returns the number of arrivals seen.
func (d *DelayEstimator) Count() int64 { return d.count }

// Mean returns the average delay over all arrivals, or 0 before the first one.
func (d *DelayEstimator) Mean() float64 {
	if d.count == 0 {
		return 0
	}
	return d.sum / float64(d.count)
}
