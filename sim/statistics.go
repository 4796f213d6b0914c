package sim

import "fmt"

// Statistics aggregates run-wide outcomes for final reporting. The distance
// ledger is appended on the dispatch path; modal share and other derived
// figures are computed post-hoc, never during dispatch.
type Statistics struct {
	DistanceByMode    map[Mode]float64
	CompletedRequests int
	UnservedRequests  int
	// DroppedEvents counts past-timestamp events rejected at schedule time
	// (clock monotonicity anomalies).
	DroppedEvents int
	EventCounts   map[string]int
}

// NewStatistics returns zeroed statistics.
func NewStatistics() *Statistics {
	return &Statistics{
		DistanceByMode: make(map[Mode]float64),
		EventCounts:    make(map[string]int),
	}
}

// AddDistance appends a completed leg to the per-mode distance ledger.
func (s *Statistics) AddDistance(m Mode, distance float64) {
	s.DistanceByMode[m] += distance
}

// CountEvent tallies a processed event by kind name.
func (s *Statistics) CountEvent(kind string) {
	s.EventCounts[kind]++
}

// TotalDistance returns the distance covered across all modes.
func (s *Statistics) TotalDistance() float64 {
	total := 0.0
	for _, d := range s.DistanceByMode {
		total += d
	}
	return total
}

// ModalShare returns each mode's fraction of the total distance covered.
// All shares are zero when nothing moved.
func (s *Statistics) ModalShare() map[Mode]float64 {
	shares := make(map[Mode]float64, len(Modes))
	total := s.TotalDistance()
	for _, m := range Modes {
		if total > 0 {
			shares[m] = s.DistanceByMode[m] / total
		} else {
			shares[m] = 0
		}
	}
	return shares
}

// Print displays the aggregate statistics at the end of a run.
func (s *Statistics) Print(clock int64) {
	fmt.Println("=== Simulation Statistics ===")
	fmt.Printf("Simulation ended at  : t=%d\n", clock)
	fmt.Printf("Completed Requests   : %d\n", s.CompletedRequests)
	fmt.Printf("Unserved Requests    : %d\n", s.UnservedRequests)
	if s.DroppedEvents > 0 {
		fmt.Printf("Dropped Events       : %d\n", s.DroppedEvents)
	}
	shares := s.ModalShare()
	for _, m := range Modes {
		fmt.Printf("%-6s distance       : %.2f (share %.2f)\n", m, s.DistanceByMode[m], shares[m])
	}
}
