// Package variate provides the interarrival and service time generators that
// drive the queueing network: replay of pre-generated streams, independent
// exponential draws, and TES-correlated exponential draws.
package variate

import (
	"errors"
	"hash/fnv"
	"sync"

	"github.com/iti/rngstream"
)

// ErrExhausted is returned by finite sources once a stream has no values left.
// It ends a run early; it is not a failure.
var ErrExhausted = errors.New("variate stream exhausted")

// Source produces interarrival and service times on demand.
// Infinite sources never return an error.
type Source interface {
	NextArrivalTime() (float64, error)
	NextServiceTime() (float64, error)
}

// Uniform draws uniform variates in [0, 1). *rand.Rand satisfies it.
type Uniform interface {
	Float64() float64
}

// rngstream.New advances a package-level seed, so stream creation is
// serialized.
var streamMu sync.Mutex

// MRG32k3a moduli. Seed components must be nonzero and below their modulus.
const (
	mrgM1 = 4294967087
	mrgM2 = 4294944443
)

// StreamUniform is a Uniform backed by an MRG32k3a stream.
type StreamUniform struct {
	stream *rngstream.RngStream
}

// NewStreamUniform creates a stream whose state depends only on seed and
// name, never on how many streams were created before it.
func NewStreamUniform(seed int64, name string) *StreamUniform {
	streamMu.Lock()
	defer streamMu.Unlock()
	stream := rngstream.New(name)
	stream.SetSeed(streamSeed(seed, name))
	return &StreamUniform{stream: stream}
}

// streamSeed expands (seed, name) into a valid six-component MRG32k3a seed
// with splitmix64.
func streamSeed(seed int64, name string) []uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	x := uint64(seed) ^ h.Sum64()
	out := make([]uint64, 6)
	for i := range out {
		x += 0x9e3779b97f4a7c15
		z := x
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31
		if i < 3 {
			out[i] = z%(mrgM1-1) + 1
		} else {
			out[i] = z%(mrgM2-1) + 1
		}
	}
	return out
}

// Float64 implements Uniform.
func (s *StreamUniform) Float64() float64 {
	return s.stream.RandU01()
}
