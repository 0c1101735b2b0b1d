// Package sim provides the discrete-event engine for small queueing networks.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go: Event kinds (Arrival, Departure, Feedback) and node identifiers
//   - node.go: QueueNode state transitions (idle/busy, FIFO backlog, idle time)
//   - network.go: The event loop, topologies and termination
//
// # Architecture
//
// The sim package holds the kernel; strategies and drivers live in
// sub-packages:
//   - sim/variate/: interarrival and service time sources (replay, exponential, TES)
//   - sim/replica/: parallel independent replicas and Student-t confidence intervals
//   - sim/experiment/: YAML experiment files, sweeps and model construction
//   - sim/report/: snapshot traces and aggregate tables
//
// # Key Interfaces
//
//   - variate.Source: next interarrival and service time
//   - RoutingPolicy: choose the node of an arrival in the routing topology
//
// A run is deterministic for a given configuration and set of uniforms: the
// future event list breaks time ties by insertion order and every random
// stream is owned by exactly one model.
package sim
