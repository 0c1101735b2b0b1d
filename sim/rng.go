package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SimulationKey identifies a reproducible replica. Two runs with the same key
// and identical configuration produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// ReplicaKey derives the key of replica i from a base seed.
func ReplicaKey(seed int64, replica int) SimulationKey {
	return SimulationKey(seed + int64(replica))
}

// SubsystemFeedback is the RNG subsystem for feedback coin flips.
const SubsystemFeedback = "feedback"

// SubsystemArrivals returns the subsystem name of a node's interarrival stream.
func SubsystemArrivals(node NodeID) string {
	return fmt.Sprintf("arrivals_%s", node)
}

// SubsystemServices returns the subsystem name of a node's service stream.
func SubsystemServices(node NodeID) string {
	return fmt.Sprintf("services_%s", node)
}

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem,
// so that adding draws to one stream never shifts another.
//
// Derivation: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: NOT thread-safe. Each replica owns its own instance.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same name always returns the same *rand.Rand instance.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
