// Package trace provides run recording for the freight simulation: the
// ordered event log and the periodic state snapshots, plus their JSON
// persistence. The package stores pure data types and has no dependency on
// the engine.
package trace

// EventRecord is one processed event in the run's ordered event log.
type EventRecord struct {
	Timestamp int64  `json:"timestamp"`
	Kind      string `json:"kind"`
}

// SnapshotRecord captures the per-mode vehicle matrices and the container
// matrix at one simulation time.
type SnapshotRecord struct {
	Time       int64              `json:"time"`
	Vehicles   map[string][][]int `json:"vehicles"`
	Containers [][]int            `json:"containers"`
}
