// Package sim provides the core discrete-event simulation engine for the
// agent-based multimodal freight simulation.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - event.go: the event kinds that drive the simulation and their fixed tie-break order
//   - environment.go: the clock, the event loop, and the vehicle/container state machine
//   - agents.go: the shipper -> LSP -> carrier quote chain
//
// # Architecture
//
// The Environment owns the event queue and the simulation clock. Each drained
// event is dispatched to a handler that mutates registry state (vehicles,
// requests, location matrices) and may enqueue follow-up events. The Registry
// owns every entity by integer id; relations between agents are id slices,
// never embedded pointers. The Network is read-only after construction.
//
// Negotiation (agents.go) and the decision policy (policy.go) are pure with
// respect to engine state: they compute quotes and assignment plans, and only
// the dispatch path commits them.
//
// # Determinism
//
// Two runs with identical inputs and the same seed produce identical event
// order, identical matrices at every snapshot, and identical final request
// state. The event queue breaks timestamp ties by a fixed kind order, then by
// insertion sequence; every stochastic term draws from a PartitionedRNG
// subsystem derived from the master seed.
package sim
