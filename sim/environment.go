package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kmirinski/Agent-Based-Simulation/sim/trace"
)

// Snapshot is the observable state persisted after each step: one location
// matrix per vehicle mode plus the container matrix, keyed by simulation
// time.
type Snapshot struct {
	Time       int64
	Vehicles   map[Mode][][]int
	Containers [][]int
}

// Environment owns the simulation clock, the event queue, and all mutable
// run state. It is the only driver of time: every entity mutation happens on
// its single-threaded dispatch path. Lifecycle is one simulation run.
type Environment struct {
	Clock    int64
	StepSize int64
	// Horizon is an optional safety stop for Run; zero means run until the
	// queue drains.
	Horizon int64
	// LoadTime is the ticks spent loading or unloading, separating a
	// request's arrival from its first departure and its final arrival from
	// completion.
	LoadTime int64
	// ContainerCapacity is the amount units one container holds.
	ContainerCapacity int

	Queue    *EventQueue
	Registry *Registry
	Network  *Network
	Policy   DecisionPolicy
	Stats    *Statistics
	Trace    *trace.RunTrace
}

// NewEnvironment wires an environment from its collaborators. The registry's
// agent wiring must already be validated.
func NewEnvironment(cfg *ScenarioConfig, reg *Registry, net *Network, policy DecisionPolicy) *Environment {
	return &Environment{
		StepSize:          cfg.StepSize,
		Horizon:           cfg.Horizon,
		LoadTime:          cfg.LoadTime,
		ContainerCapacity: cfg.ContainerCapacity,
		Queue:             NewEventQueue(),
		Registry:          reg,
		Network:           net,
		Policy:            policy,
		Stats:             NewStatistics(),
		Trace:             trace.NewRunTrace(),
	}
}

// Schedule inserts a follow-up event. Scheduling into the past is a clock
// monotonicity violation: the event is logged, counted, and dropped rather
// than executed (the lenient policy; capacity and queue violations are never
// lenient).
func (e *Environment) Schedule(ev Event) {
	if ev.Timestamp < e.Clock {
		logrus.Warnf("[t=%d] dropping past-timestamp event %s", e.Clock, ev)
		e.Stats.DroppedEvents++
		return
	}
	e.Queue.Push(ev)
}

// Step advances the clock by one fixed step and drains every event due at or
// before it, in deterministic order. It returns the post-drain snapshot and
// whether further events remain; a false second return is the normal halt
// signal, not an error. The fixed-step policy (rather than jumping to the
// next event time) is pinned: it defines which events share a drain and is
// covered by the scenario tests.
func (e *Environment) Step() (Snapshot, bool, error) {
	e.Clock += e.StepSize
	for {
		ev, ok := e.Queue.Peek()
		if !ok || ev.Timestamp > e.Clock {
			break
		}
		ev, _ = e.Queue.Pop()
		logrus.Debugf("[t=%d] executing %s", e.Clock, ev)
		e.Trace.RecordEvent(trace.EventRecord{Timestamp: ev.Timestamp, Kind: ev.Kind.String()})
		e.Stats.CountEvent(ev.Kind.String())
		if err := e.dispatch(ev); err != nil {
			return Snapshot{}, false, fmt.Errorf("t=%d: dispatching %s: %w", e.Clock, ev, err)
		}
	}
	snap := e.Snapshot()
	e.Trace.RecordSnapshot(snapshotRecord(snap))
	return snap, !e.Queue.IsEmpty(), nil
}

// Run steps the environment until the event queue is empty or the horizon is
// reached. An empty queue is the normal end of the run.
func (e *Environment) Run() error {
	for !e.Queue.IsEmpty() {
		if e.Horizon > 0 && e.Clock >= e.Horizon {
			logrus.Infof("[t=%d] horizon reached with %d events pending", e.Clock, e.Queue.Len())
			return nil
		}
		if _, _, err := e.Step(); err != nil {
			return err
		}
	}
	logrus.Infof("[t=%d] no events in the queue, simulation ended", e.Clock)
	return nil
}

// Snapshot captures the current location matrices.
func (e *Environment) Snapshot() Snapshot {
	vehicles := make(map[Mode][][]int, len(Modes))
	for _, m := range Modes {
		vehicles[m] = e.Registry.Matrix(m).Rows()
	}
	return Snapshot{
		Time:       e.Clock,
		Vehicles:   vehicles,
		Containers: e.Registry.ContainerMatrix().Rows(),
	}
}

func snapshotRecord(s Snapshot) trace.SnapshotRecord {
	vehicles := make(map[string][][]int, len(s.Vehicles))
	for m, rows := range s.Vehicles {
		vehicles[string(m)] = rows
	}
	return trace.SnapshotRecord{Time: s.Time, Vehicles: vehicles, Containers: s.Containers}
}

// dispatch routes a popped event to its handler. The match is exhaustive
// over the event kinds; anything else is a fatal configuration error.
func (e *Environment) dispatch(ev Event) error {
	switch ev.Kind {
	case EventRequestArrived:
		return e.handleRequestArrived(ev)
	case EventVehicleDeparted:
		return e.handleVehicleDeparted(ev)
	case EventVehicleArrived:
		return e.handleVehicleArrived(ev)
	case EventRequestCompleted:
		return e.handleRequestCompleted(ev)
	default:
		return fmt.Errorf("kind %d: %w", int(ev.Kind), ErrUnknownEventKind)
	}
}

// handleRequestArrived runs the negotiation chain and the decision policy
// for a newly due request, then commits the plan: loads vehicles, creates or
// joins services, and schedules departures. A no-offer outcome marks the
// request unserved and the run continues.
func (e *Environment) handleRequestArrived(ev Event) error {
	req, err := e.Registry.Request(ev.RequestID)
	if err != nil {
		return err
	}
	shipper, err := e.Registry.Shipper(req.ShipperID)
	if err != nil {
		return err
	}

	quote, err := shipper.Quote(req, e.Registry)
	if err != nil {
		if isNoOffer(err) {
			logrus.Infof("[t=%d] request %d unserved: %v", e.Clock, req.ID, err)
			req.State = RequestUnserved
			e.Stats.UnservedRequests++
			return nil
		}
		return err
	}

	plans, err := e.Policy.Decide(req, quote, e.Registry, e.Network, ev.Timestamp)
	if err != nil {
		if isNoOffer(err) {
			logrus.Infof("[t=%d] request %d unserved by policy: %v", e.Clock, req.ID, err)
			req.State = RequestUnserved
			e.Stats.UnservedRequests++
			return nil
		}
		return err
	}

	legCounts := make([]int, len(plans))
	for serviceIdx, plan := range plans {
		legCounts[serviceIdx] = len(plan.Legs)
		for legIdx, leg := range plan.Legs {
			if err := e.commitLeg(req, serviceIdx, legIdx == 0, leg, ev.Timestamp); err != nil {
				return err
			}
		}
	}
	req.AssignServices(legCounts)
	logrus.Debugf("[t=%d] request %d assigned %d request-service(s) via carrier %d (price %.2f, time %d)",
		e.Clock, req.ID, len(plans), quote.CarrierID, quote.Price, quote.Time)
	return nil
}

// commitLeg attaches the leg's rider to its service and, for new services,
// schedules the departure. Containers enter the container matrix once per
// request-service, at the first leg's origin; each vehicle physically loads
// its riders when its own departure fires. Capacity failures here are fatal
// precondition violations per the decision-policy contract.
func (e *Environment) commitLeg(req *Request, serviceIdx int, firstLeg bool, leg Leg, now int64) error {
	containers := containersFor(leg.Quantity, e.ContainerCapacity)
	rider := Rider{RequestID: req.ID, ServiceIdx: serviceIdx, Containers: containers}

	if leg.Scheduled {
		svc, err := e.Registry.ScheduledService(leg.ServiceID)
		if err != nil {
			return fmt.Errorf("request %d leg references %w", req.ID, err)
		}
		if err := svc.Attach(rider); err != nil {
			return err
		}
		if firstLeg {
			e.Registry.ContainerMatrix().Place(svc.Origin, containers)
		}
		// The fixed-route departure was scheduled at build time.
		return nil
	}

	if leg.Spec == nil {
		return fmt.Errorf("request %d leg has neither service nor spec: %w", req.ID, ErrInfeasiblePlan)
	}
	spec := leg.Spec
	v, err := e.Registry.Vehicle(spec.VehicleID)
	if err != nil {
		return err
	}
	svc := &Service{
		ID:                e.Registry.NextServiceID(),
		Origin:            spec.Origin,
		Destination:       spec.Destination,
		Departure:         spec.Departure,
		Arrival:           spec.Arrival,
		Cost:              spec.Cost,
		Capacity:          spec.Capacity,
		VehicleID:         spec.VehicleID,
		Distance:          spec.Distance,
		RemainingDistance: spec.Distance,
	}
	if err := svc.Attach(rider); err != nil {
		return err
	}
	v.Services.Push(svc)
	if spec.Departure <= now+e.LoadTime {
		v.Status = StatusLoading
	}
	if firstLeg {
		e.Registry.ContainerMatrix().Place(spec.Origin, containers)
	}
	e.Schedule(Event{
		Timestamp:  spec.Departure,
		Kind:       EventVehicleDeparted,
		RequestID:  req.ID,
		VehicleID:  spec.VehicleID,
		ServiceIdx: serviceIdx,
	})
	return nil
}

// handleVehicleDeparted moves the due service from the vehicle's queue into
// execution: riders are loaded, the mode matrix entry shifts from
// (origin,origin) to (origin,destination), and the container matrix mirrors
// it by rider container count. A departure while another service is still en
// route means overlapping commitments, which the decision-policy contract
// forbids.
func (e *Environment) handleVehicleDeparted(ev Event) error {
	v, err := e.Registry.Vehicle(ev.VehicleID)
	if err != nil {
		return err
	}
	if v.Current != nil {
		return fmt.Errorf("vehicle %d departing while service %d is en route: %w",
			v.ID, v.Current.ID, ErrInfeasiblePlan)
	}
	svc := v.Services.Pop()
	if svc == nil {
		return fmt.Errorf("departure for vehicle %d: %w", v.ID, ErrEmptyServiceQueue)
	}
	for _, rider := range svc.Riders {
		if err := v.Load(rider.RequestID, rider.Containers); err != nil {
			return err
		}
	}
	if err := e.Registry.Matrix(v.Mode).Depart(svc.Origin, svc.Destination, 1); err != nil {
		return fmt.Errorf("vehicle %d departing: %w", v.ID, err)
	}
	if err := e.Registry.ContainerMatrix().Depart(svc.Origin, svc.Destination, svc.RiderContainers()); err != nil {
		return fmt.Errorf("vehicle %d containers departing: %w", v.ID, err)
	}
	v.Current = svc
	v.Location = Location{From: svc.Origin, To: svc.Destination}
	v.Status = StatusEnRoute
	e.Schedule(Event{
		Timestamp:  svc.Arrival,
		Kind:       EventVehicleArrived,
		RequestID:  ev.RequestID,
		VehicleID:  v.ID,
		ServiceIdx: ev.ServiceIdx,
	})
	return nil
}

// handleVehicleArrived completes the service en route: the mode matrix entry
// shifts from (origin,destination) to (destination,destination), every rider
// is unloaded at the destination and its pending-leg counter decremented,
// and fully fulfilled requests get a completion scheduled one load-time tick
// later. An arrival with no service en route is a fatal invariant violation.
func (e *Environment) handleVehicleArrived(ev Event) error {
	v, err := e.Registry.Vehicle(ev.VehicleID)
	if err != nil {
		return err
	}
	svc := v.Current
	if svc == nil {
		return fmt.Errorf("arrival for vehicle %d: %w", v.ID, ErrEmptyServiceQueue)
	}
	v.Current = nil
	if err := e.Registry.Matrix(v.Mode).Arrive(svc.Origin, svc.Destination, 1); err != nil {
		return fmt.Errorf("vehicle %d arriving: %w", v.ID, err)
	}
	if err := e.Registry.ContainerMatrix().Arrive(svc.Origin, svc.Destination, svc.RiderContainers()); err != nil {
		return fmt.Errorf("vehicle %d containers arriving: %w", v.ID, err)
	}
	v.Location = Location{From: svc.Destination, To: svc.Destination}
	svc.RemainingDistance = 0
	e.Stats.AddDistance(v.Mode, svc.Distance)

	delivering := false
	for _, rider := range svc.Riders {
		req, err := e.Registry.Request(rider.RequestID)
		if err != nil {
			return err
		}
		v.Unload(rider.RequestID)
		if err := req.LegDone(rider.ServiceIdx); err != nil {
			return err
		}
		if req.Fulfilled() {
			delivering = true
			e.Schedule(Event{
				Timestamp:  ev.Timestamp + e.LoadTime,
				Kind:       EventRequestCompleted,
				RequestID:  req.ID,
				VehicleID:  v.ID,
				ServiceIdx: rider.ServiceIdx,
			})
		}
	}

	// A queued future service leaves the vehicle idle until its own loading
	// begins; delivering vehicles stay unloading until the completion fires.
	if delivering {
		v.Status = StatusUnloading
	} else {
		v.Status = StatusIdle
	}
	return nil
}

// handleRequestCompleted retires the request once unloading is done. The
// containers stay stationed at the destination node; the delivering vehicle
// already unloaded when its leg arrived.
func (e *Environment) handleRequestCompleted(ev Event) error {
	req, err := e.Registry.Request(ev.RequestID)
	if err != nil {
		return err
	}
	v, err := e.Registry.Vehicle(ev.VehicleID)
	if err != nil {
		return err
	}
	if v.Status == StatusUnloading {
		v.Status = StatusIdle
	}
	req.State = RequestFulfilled
	e.Stats.CompletedRequests++
	logrus.Infof("[t=%d] request %d fulfilled", e.Clock, req.ID)
	return nil
}
