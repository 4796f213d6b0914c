package sim

import "fmt"

// RequestState represents the lifecycle state of a transport request.
type RequestState string

const (
	RequestPending   RequestState = "pending"
	RequestInTransit RequestState = "in_transit"
	RequestFulfilled RequestState = "fulfilled"
	RequestUnserved  RequestState = "unserved"
)

// TimeWindow bounds when a request may be serviced, in ticks.
type TimeWindow struct {
	Lower int64
	Upper int64
}

// Request models a single transport demand: move Amount units from Origin to
// Destination inside Window. Requests are created at instance-build time,
// mutated only by the dispatch path as vehicle legs complete, and retained
// for final reporting.
//
// PendingLegs holds one remaining-leg counter per assigned request-service.
// The request is fulfilled iff every counter has reached zero.
type Request struct {
	ID          int
	Origin      int
	Destination int
	Amount      int
	Window      TimeWindow
	ShipperID   int
	Distance    float64

	PendingLegs []int
	State       RequestState
}

// AssignServices installs the per-request-service leg counters and moves the
// request into transit. Called once when the decision policy's plan is
// committed.
func (r *Request) AssignServices(legCounts []int) {
	r.PendingLegs = legCounts
	r.State = RequestInTransit
}

// LegDone decrements the remaining-leg counter of the given request-service.
// Counters are non-increasing: decrementing one that is already zero means
// an arrival event was double-counted.
func (r *Request) LegDone(serviceIdx int) error {
	if serviceIdx < 0 || serviceIdx >= len(r.PendingLegs) {
		return fmt.Errorf("request %d has no request-service %d: %w", r.ID, serviceIdx, ErrUnknownEntity)
	}
	if r.PendingLegs[serviceIdx] == 0 {
		return fmt.Errorf("request %d request-service %d already complete: %w", r.ID, serviceIdx, ErrInfeasiblePlan)
	}
	r.PendingLegs[serviceIdx]--
	return nil
}

// Fulfilled reports whether every request-service counter reached zero.
// A request with no assigned services is never fulfilled.
func (r *Request) Fulfilled() bool {
	if len(r.PendingLegs) == 0 {
		return false
	}
	for _, legs := range r.PendingLegs {
		if legs > 0 {
			return false
		}
	}
	return true
}

func (r Request) String() string {
	return fmt.Sprintf("Request(ID: %d, %d->%d, amount: %d, window: [%d,%d], state: %s)",
		r.ID, r.Origin, r.Destination, r.Amount, r.Window.Lower, r.Window.Upper, r.State)
}
