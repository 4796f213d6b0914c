package trace

// Summary aggregates a RunTrace for quick inspection.
type Summary struct {
	TotalEvents    int
	EventCounts    map[string]int // keyed by kind name
	FirstTimestamp int64
	LastTimestamp  int64
	SnapshotCount  int
}

// Summarize computes aggregate statistics from a RunTrace. Safe for nil or
// empty traces (returns zero-value fields).
func Summarize(rt *RunTrace) *Summary {
	summary := &Summary{
		EventCounts: make(map[string]int),
	}
	if rt == nil {
		return summary
	}

	summary.TotalEvents = len(rt.Events)
	summary.SnapshotCount = len(rt.Snapshots)
	for i, ev := range rt.Events {
		summary.EventCounts[ev.Kind]++
		if i == 0 || ev.Timestamp < summary.FirstTimestamp {
			summary.FirstTimestamp = ev.Timestamp
		}
		if ev.Timestamp > summary.LastTimestamp {
			summary.LastTimestamp = ev.Timestamp
		}
	}
	return summary
}
