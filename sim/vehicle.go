package sim

import (
	"fmt"
	"math"
)

// Mode is a vehicle category with its own routing and scheduling rules.
type Mode string

const (
	ModeTruck Mode = "Truck"
	ModeTrain Mode = "Train"
	ModeBarge Mode = "Barge"
)

// FixedRoute reports whether the mode runs pre-scheduled services (trains
// and barges) rather than on-demand ones (trucks). This capability flag is
// the only behavioral difference between modes.
func (m Mode) FixedRoute() bool {
	return m == ModeTrain || m == ModeBarge
}

// ParseMode validates a mode name from instance data.
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case ModeTruck, ModeTrain, ModeBarge:
		return Mode(name), nil
	default:
		return "", fmt.Errorf("unknown vehicle mode %q: %w", name, ErrUnknownEntity)
	}
}

// Modes lists all vehicle modes in a fixed order.
var Modes = []Mode{ModeTruck, ModeTrain, ModeBarge}

// VehicleStatus is the state-machine status of a vehicle. Transitions happen
// only on the dispatch path: Idle -> Loading -> EnRoute -> Unloading -> Idle,
// cyclic per leg.
type VehicleStatus string

const (
	StatusIdle      VehicleStatus = "idle"
	StatusLoading   VehicleStatus = "loading"
	StatusEnRoute   VehicleStatus = "en_route"
	StatusUnloading VehicleStatus = "unloading"
)

// Location is an edge position: (From,To) while traversing a leg, (x,x)
// while stationed at node x.
type Location struct {
	From int
	To   int
}

// Stationary reports whether the location is a node rather than an edge.
func (l Location) Stationary() bool { return l.From == l.To }

// Vehicle is a physical carrier asset. Contents maps request id to the
// number of containers loaded for it; NumContainers is their sum and never
// exceeds MaxContainers.
type Vehicle struct {
	ID             int
	Mode           Mode
	Location       Location
	MaxContainers  int
	Speed          float64 // distance units per tick
	UnitCost       float64 // cost per tick of travel
	EmissionFactor float64
	CarrierID      int

	NumContainers int
	Contents      map[int]int
	Status        VehicleStatus
	Services      *ServiceQueue

	// Current is the service being executed, moved out of the queue when its
	// departure fires and cleared when the arrival is processed. A vehicle
	// with a non-nil Current is on an edge.
	Current *Service
}

// NewVehicle returns an idle vehicle stationed at the given node.
func NewVehicle(id int, mode Mode, node, maxContainers int, speed, unitCost, emissionFactor float64, carrierID int) *Vehicle {
	return &Vehicle{
		ID:             id,
		Mode:           mode,
		Location:       Location{From: node, To: node},
		MaxContainers:  maxContainers,
		Speed:          speed,
		UnitCost:       unitCost,
		EmissionFactor: emissionFactor,
		CarrierID:      carrierID,
		Contents:       make(map[int]int),
		Status:         StatusIdle,
		Services:       NewServiceQueue(),
	}
}

// RemainingCapacity returns the number of additional containers the vehicle
// can take.
func (v *Vehicle) RemainingCapacity() int {
	return v.MaxContainers - v.NumContainers
}

// Load puts containers for a request onto the vehicle. Loading beyond
// MaxContainers is a fatal precondition violation, never silently tolerated:
// it would corrupt the container location matrix.
func (v *Vehicle) Load(requestID, containers int) error {
	if containers <= 0 {
		return fmt.Errorf("loading %d containers on vehicle %d: %w", containers, v.ID, ErrInfeasiblePlan)
	}
	if v.NumContainers+containers > v.MaxContainers {
		return fmt.Errorf("vehicle %d holds %d/%d containers, cannot load %d more: %w",
			v.ID, v.NumContainers, v.MaxContainers, containers, ErrCapacityExceeded)
	}
	v.Contents[requestID] += containers
	v.NumContainers += containers
	return nil
}

// Unload removes all containers loaded for a request and returns their
// count. Unloading a request the vehicle does not carry returns zero.
func (v *Vehicle) Unload(requestID int) int {
	containers := v.Contents[requestID]
	if containers > 0 {
		delete(v.Contents, requestID)
		v.NumContainers -= containers
	}
	return containers
}

// TravelTime returns the ticks needed to cover distance at the vehicle's
// speed, rounded up.
func (v *Vehicle) TravelTime(distance float64) int64 {
	return int64(math.Ceil(distance / v.Speed))
}

func (v Vehicle) String() string {
	return fmt.Sprintf("Vehicle(ID: %d, mode: %s, at: (%d,%d), containers: %d/%d, status: %s)",
		v.ID, v.Mode, v.Location.From, v.Location.To, v.NumContainers, v.MaxContainers, v.Status)
}
