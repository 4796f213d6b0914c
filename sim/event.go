package sim

import "fmt"

// EventKind tags the four events that drive the simulation.
type EventKind int

const (
	// EventRequestArrived fires at a request's time-window lower bound: the
	// shipper negotiates, the decision policy assigns vehicles, and loading
	// begins.
	EventRequestArrived EventKind = iota
	// EventVehicleDeparted moves a vehicle from (origin,origin) onto the
	// (origin,destination) edge.
	EventVehicleDeparted
	// EventVehicleArrived moves a vehicle from the (origin,destination) edge
	// to (destination,destination) and completes the current service leg.
	EventVehicleArrived
	// EventRequestCompleted unloads the delivering vehicle and marks the
	// request fulfilled, one load-time tick after its final leg arrived.
	EventRequestCompleted

	numEventKinds
)

// kindPriority is the fixed total order applied when two events carry the
// same timestamp: request admissions first, then departures, then arrivals,
// then completions. Changing this order changes reproducibility, so it is
// pinned here and covered by TestEventQueue_EqualTimestamps_KindOrder.
var kindPriority = map[EventKind]int{
	EventRequestArrived:   0,
	EventVehicleDeparted:  1,
	EventVehicleArrived:   2,
	EventRequestCompleted: 3,
}

func (k EventKind) String() string {
	switch k {
	case EventRequestArrived:
		return "request_arrived"
	case EventVehicleDeparted:
		return "vehicle_departed"
	case EventVehicleArrived:
		return "vehicle_arrived"
	case EventRequestCompleted:
		return "request_completed"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Event is a scheduled state transition. RequestID, VehicleID, and
// ServiceIdx are -1 when the kind does not use them; ServiceIdx indexes the
// request-service whose leg the event belongs to.
type Event struct {
	Timestamp  int64
	Kind       EventKind
	RequestID  int
	VehicleID  int
	ServiceIdx int

	// seq is assigned by the queue on insertion and is the final tie-break,
	// making pop order a total order.
	seq uint64
}

func (ev Event) String() string {
	return fmt.Sprintf("Event(t=%d kind=%s req=%d veh=%d)", ev.Timestamp, ev.Kind, ev.RequestID, ev.VehicleID)
}
