package sim

import "fmt"

// ServiceSpec describes a new service the decision policy wants created for
// an on-demand leg, bound to a chosen vehicle.
type ServiceSpec struct {
	VehicleID   int
	Origin      int
	Destination int
	Departure   int64
	Arrival     int64
	Cost        float64
	Capacity    int
	Distance    float64
}

// Leg is one element of a request-service: either an attachment to an
// already-scheduled service (Scheduled true, ServiceID set) or a new service
// to create (Scheduled false, Spec set). Quantity is in request amount
// units.
type Leg struct {
	Scheduled bool
	Quantity  int
	ServiceID int
	Spec      *ServiceSpec
}

// RequestService is one complete fulfillment path for a request: an ordered
// sequence of legs. Dependency ordering between chained legs (a downstream
// departure never before its upstream arrival) is a policy guarantee the
// engine trusts.
type RequestService struct {
	Legs []Leg
}

// DecisionPolicy decides which vehicles or existing scheduled services carry
// an arrived request. Implementations must be pure: they read registry and
// network state but commit nothing. The engine executes the returned plan
// faithfully and fails fast if it is infeasible.
type DecisionPolicy interface {
	Decide(req *Request, quote Quote, reg *Registry, net *Network, now int64) ([]RequestService, error)
}

// CheapestDirectPolicy is the default assignment policy. It first tries to
// attach the request to a pre-scheduled fixed-route service covering the
// origin-destination pair with spare capacity and a departure inside the
// request's window; otherwise it creates one direct leg on the negotiated
// carrier's cheapest stationed vehicle with sufficient idle capacity.
type CheapestDirectPolicy struct {
	LoadTime          int64
	ContainerCapacity int
}

func (p *CheapestDirectPolicy) Decide(req *Request, quote Quote, reg *Registry, net *Network, now int64) ([]RequestService, error) {
	containers := containersFor(req.Amount, p.ContainerCapacity)

	if svc := p.findScheduledService(req, reg, now, containers); svc != nil {
		return []RequestService{{Legs: []Leg{{
			Scheduled: true,
			Quantity:  req.Amount,
			ServiceID: svc.ID,
		}}}}, nil
	}

	v, err := reg.Vehicle(quote.VehicleID)
	if err != nil {
		return nil, fmt.Errorf("deciding request %d: %w", req.ID, err)
	}
	if !vehicleFree(v, req.Origin, containers) {
		// The quoted vehicle is elsewhere, already committed, or filled up
		// since the quote; fall back to a free fleet vehicle of the committed
		// carrier stationed at the origin with room.
		v = p.fallbackVehicle(quote.CarrierID, req.Origin, reg, containers)
		if v == nil {
			return nil, fmt.Errorf("carrier %d has no free vehicle at node %d with capacity for request %d: %w",
				quote.CarrierID, req.Origin, req.ID, ErrNoOffer)
		}
	}

	departure := now + p.LoadTime
	spec := &ServiceSpec{
		VehicleID:   v.ID,
		Origin:      req.Origin,
		Destination: req.Destination,
		Departure:   departure,
		Arrival:     departure + v.TravelTime(req.Distance),
		Cost:        quote.Price,
		Capacity:    v.MaxContainers,
		Distance:    req.Distance,
	}
	return []RequestService{{Legs: []Leg{{
		Quantity: req.Amount,
		Spec:     spec,
	}}}}, nil
}

// findScheduledService scans the fixed-route services in id order for one
// that covers the pair, departs after loading can finish and inside the
// window, and has room for the request's containers.
func (p *CheapestDirectPolicy) findScheduledService(req *Request, reg *Registry, now int64, containers int) *Service {
	for _, svc := range reg.ScheduledServices {
		if svc.Origin != req.Origin || svc.Destination != req.Destination {
			continue
		}
		if svc.Departure < now+p.LoadTime || svc.Departure > req.Window.Upper {
			continue
		}
		if svc.RiderContainers()+containers > svc.Capacity {
			continue
		}
		return svc
	}
	return nil
}

// vehicleFree reports whether a vehicle can be bound to a new direct leg:
// stationed at the origin, no committed or en-route service, and room for
// the containers. Binding a vehicle with queued work would overlap its
// commitments and is the engine's definition of an infeasible plan.
func vehicleFree(v *Vehicle, origin, containers int) bool {
	return v.Location == Location{From: origin, To: origin} &&
		v.Current == nil &&
		v.Services.Len() == 0 &&
		v.RemainingCapacity() >= containers
}

// fallbackVehicle picks the lowest-cost free fleet vehicle stationed at the
// origin, ties by vehicle id ascending.
func (p *CheapestDirectPolicy) fallbackVehicle(carrierID, origin int, reg *Registry, containers int) *Vehicle {
	c, err := reg.Carrier(carrierID)
	if err != nil {
		return nil
	}
	var best *Vehicle
	for _, vehicleID := range c.Fleet {
		v, err := reg.Vehicle(vehicleID)
		if err != nil {
			continue
		}
		if !vehicleFree(v, origin, containers) {
			continue
		}
		if best == nil || v.UnitCost < best.UnitCost {
			best = v
		}
	}
	return best
}

// containersFor converts a request amount into containers: amount divided by
// container capacity, rounded up.
func containersFor(amount, containerCapacity int) int {
	return (amount + containerCapacity - 1) / containerCapacity
}
