package sim

import "errors"

// Fatal invariant and configuration errors. Any of these surfacing from the
// dispatch path halts the simulation: they indicate the instance data, the
// agent wiring, or a decision-policy plan is malformed and state can no
// longer be trusted.
var (
	// ErrUnknownEventKind is returned when an event with an unrecognized kind
	// reaches the dispatcher. This is a configuration error, never skipped.
	ErrUnknownEventKind = errors.New("unknown event kind")

	// ErrUnknownEntity is returned by registry lookups for ids that were
	// never registered.
	ErrUnknownEntity = errors.New("unknown entity id")

	// ErrCapacityExceeded is returned when a load would push a vehicle past
	// its container capacity. The decision policy guarantees feasible plans,
	// so this is a precondition violation.
	ErrCapacityExceeded = errors.New("vehicle capacity exceeded")

	// ErrEmptyServiceQueue is returned when a departure or arrival event
	// references a vehicle with no queued service.
	ErrEmptyServiceQueue = errors.New("vehicle service queue is empty")

	// ErrMatrixUnderflow is returned when a location-matrix move would drive
	// a cell negative, which means dispatch/arrival bookkeeping got out of
	// sync.
	ErrMatrixUnderflow = errors.New("location matrix cell underflow")

	// ErrInfeasiblePlan is returned when a decision-policy plan references a
	// service or vehicle that cannot execute it.
	ErrInfeasiblePlan = errors.New("infeasible assignment plan")
)

// ErrNoOffer is the recoverable no-offer condition: a shipper, LSP, or
// carrier with no eligible responders. It propagates up the quote chain and
// leaves the request unserved; it never halts the run.
var ErrNoOffer = errors.New("no offer available")
