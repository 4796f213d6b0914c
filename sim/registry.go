package sim

import "fmt"

// Registry owns the canonical, id-indexed collections of every entity in a
// run: requests, vehicles, negotiation agents, per-mode location matrices,
// and the pre-scheduled fixed-route services. Every cross-entity relation is
// stored as an id, never as an embedded pointer, so there are no ownership
// cycles.
//
// Entity ids equal their arena index; Add methods enforce this so that
// instance data with gaps or duplicates fails fast at build time.
type Registry struct {
	Requests []*Request
	Vehicles []*Vehicle
	Shippers []*Shipper
	LSPs     []*LSP
	Carriers []*Carrier

	// ScheduledServices are the fixed-route services known at build time.
	// They also live in their vehicles' queues; this slice is what the
	// decision policy consults when attaching requests to running services.
	ScheduledServices []*Service

	vehicleMatrices map[Mode]*LocationMatrix
	containerMatrix *LocationMatrix

	nextServiceID int
}

// NewRegistry returns a registry with zeroed location matrices for a network
// of numNodes nodes.
func NewRegistry(numNodes int) *Registry {
	matrices := make(map[Mode]*LocationMatrix, len(Modes))
	for _, m := range Modes {
		matrices[m] = NewLocationMatrix(numNodes)
	}
	return &Registry{
		vehicleMatrices: matrices,
		containerMatrix: NewLocationMatrix(numNodes),
	}
}

// AddRequest registers a request. Its id must equal the next arena index.
func (reg *Registry) AddRequest(r *Request) error {
	if r.ID != len(reg.Requests) {
		return fmt.Errorf("request id %d out of order, want %d: %w", r.ID, len(reg.Requests), ErrUnknownEntity)
	}
	reg.Requests = append(reg.Requests, r)
	return nil
}

// AddVehicle registers a vehicle and stations it on its mode's matrix.
func (reg *Registry) AddVehicle(v *Vehicle) error {
	if v.ID != len(reg.Vehicles) {
		return fmt.Errorf("vehicle id %d out of order, want %d: %w", v.ID, len(reg.Vehicles), ErrUnknownEntity)
	}
	if !v.Location.Stationary() {
		return fmt.Errorf("vehicle %d must start stationed at a node, got (%d,%d): %w",
			v.ID, v.Location.From, v.Location.To, ErrInfeasiblePlan)
	}
	reg.Vehicles = append(reg.Vehicles, v)
	reg.vehicleMatrices[v.Mode].Place(v.Location.From, 1)
	return nil
}

// AddShipper, AddLSP, and AddCarrier register negotiation agents.
func (reg *Registry) AddShipper(s *Shipper) error {
	if s.ID != len(reg.Shippers) {
		return fmt.Errorf("shipper id %d out of order, want %d: %w", s.ID, len(reg.Shippers), ErrUnknownEntity)
	}
	reg.Shippers = append(reg.Shippers, s)
	return nil
}

func (reg *Registry) AddLSP(l *LSP) error {
	if l.ID != len(reg.LSPs) {
		return fmt.Errorf("lsp id %d out of order, want %d: %w", l.ID, len(reg.LSPs), ErrUnknownEntity)
	}
	reg.LSPs = append(reg.LSPs, l)
	return nil
}

func (reg *Registry) AddCarrier(c *Carrier) error {
	if c.ID != len(reg.Carriers) {
		return fmt.Errorf("carrier id %d out of order, want %d: %w", c.ID, len(reg.Carriers), ErrUnknownEntity)
	}
	reg.Carriers = append(reg.Carriers, c)
	return nil
}

// Request returns the request with the given id.
func (reg *Registry) Request(id int) (*Request, error) {
	if id < 0 || id >= len(reg.Requests) {
		return nil, fmt.Errorf("request %d: %w", id, ErrUnknownEntity)
	}
	return reg.Requests[id], nil
}

// Vehicle returns the vehicle with the given id.
func (reg *Registry) Vehicle(id int) (*Vehicle, error) {
	if id < 0 || id >= len(reg.Vehicles) {
		return nil, fmt.Errorf("vehicle %d: %w", id, ErrUnknownEntity)
	}
	return reg.Vehicles[id], nil
}

// Shipper returns the shipper with the given id.
func (reg *Registry) Shipper(id int) (*Shipper, error) {
	if id < 0 || id >= len(reg.Shippers) {
		return nil, fmt.Errorf("shipper %d: %w", id, ErrUnknownEntity)
	}
	return reg.Shippers[id], nil
}

// LSP returns the LSP with the given id.
func (reg *Registry) LSP(id int) (*LSP, error) {
	if id < 0 || id >= len(reg.LSPs) {
		return nil, fmt.Errorf("lsp %d: %w", id, ErrUnknownEntity)
	}
	return reg.LSPs[id], nil
}

// Carrier returns the carrier with the given id.
func (reg *Registry) Carrier(id int) (*Carrier, error) {
	if id < 0 || id >= len(reg.Carriers) {
		return nil, fmt.Errorf("carrier %d: %w", id, ErrUnknownEntity)
	}
	return reg.Carriers[id], nil
}

// ScheduledService returns the pre-scheduled service with the given id.
func (reg *Registry) ScheduledService(id int) (*Service, error) {
	for _, s := range reg.ScheduledServices {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("scheduled service %d: %w", id, ErrUnknownEntity)
}

// AddScheduledService queues a fixed-route service on its vehicle and
// records it for policy consultation.
func (reg *Registry) AddScheduledService(s *Service) error {
	v, err := reg.Vehicle(s.VehicleID)
	if err != nil {
		return err
	}
	if !v.Mode.FixedRoute() {
		return fmt.Errorf("pre-scheduled service %d on on-demand vehicle %d (%s): %w",
			s.ID, v.ID, v.Mode, ErrInfeasiblePlan)
	}
	s.ID = reg.nextServiceID
	reg.nextServiceID++
	reg.ScheduledServices = append(reg.ScheduledServices, s)
	v.Services.Push(s)
	return nil
}

// NextServiceID hands out the next service id for dynamically created
// services.
func (reg *Registry) NextServiceID() int {
	id := reg.nextServiceID
	reg.nextServiceID++
	return id
}

// Matrix returns the location matrix of a vehicle mode.
func (reg *Registry) Matrix(m Mode) *LocationMatrix {
	return reg.vehicleMatrices[m]
}

// ContainerMatrix returns the container location matrix.
func (reg *Registry) ContainerMatrix() *LocationMatrix {
	return reg.containerMatrix
}

// VehiclesOfMode counts registered vehicles of a mode, for conservation
// checks against the matrix totals.
func (reg *Registry) VehiclesOfMode(m Mode) int {
	count := 0
	for _, v := range reg.Vehicles {
		if v.Mode == m {
			count++
		}
	}
	return count
}

// ValidateWiring checks that every agent relation references a registered
// entity. Inconsistent wiring is a configuration error that must surface
// before the first event fires.
func (reg *Registry) ValidateWiring() error {
	for _, s := range reg.Shippers {
		for _, lspID := range s.LSPs {
			if lspID < 0 || lspID >= len(reg.LSPs) {
				return fmt.Errorf("shipper %d references lsp %d: %w", s.ID, lspID, ErrUnknownEntity)
			}
		}
	}
	for _, l := range reg.LSPs {
		for _, carrierID := range l.Carriers {
			if carrierID < 0 || carrierID >= len(reg.Carriers) {
				return fmt.Errorf("lsp %d references carrier %d: %w", l.ID, carrierID, ErrUnknownEntity)
			}
		}
	}
	for _, c := range reg.Carriers {
		for _, vehicleID := range c.Fleet {
			v, err := reg.Vehicle(vehicleID)
			if err != nil {
				return fmt.Errorf("carrier %d fleet: %w", c.ID, err)
			}
			if v.CarrierID != c.ID {
				return fmt.Errorf("vehicle %d belongs to carrier %d, listed in fleet of %d: %w",
					v.ID, v.CarrierID, c.ID, ErrInfeasiblePlan)
			}
		}
	}
	for _, r := range reg.Requests {
		if r.ShipperID < 0 || r.ShipperID >= len(reg.Shippers) {
			return fmt.Errorf("request %d references shipper %d: %w", r.ID, r.ShipperID, ErrUnknownEntity)
		}
	}
	return nil
}
