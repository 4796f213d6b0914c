package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// RunTrace collects the event log and state snapshots of one simulation run.
type RunTrace struct {
	Events    []EventRecord    `json:"events"`
	Snapshots []SnapshotRecord `json:"snapshots"`
}

// NewRunTrace creates a RunTrace ready for recording.
func NewRunTrace() *RunTrace {
	return &RunTrace{
		Events:    make([]EventRecord, 0),
		Snapshots: make([]SnapshotRecord, 0),
	}
}

// RecordEvent appends a processed event to the ordered log.
func (rt *RunTrace) RecordEvent(record EventRecord) {
	rt.Events = append(rt.Events, record)
}

// RecordSnapshot appends a state snapshot.
func (rt *RunTrace) RecordSnapshot(record SnapshotRecord) {
	rt.Snapshots = append(rt.Snapshots, record)
}

// WriteFile persists the trace as indented JSON, creating the parent
// directory if needed.
func (rt *RunTrace) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating trace directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(rt, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	return nil
}
